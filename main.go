package main

import (
	"log"
	"os"

	"spendsense/app"
	"spendsense/config"
)

func main() {
	// Load config from .env file
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal(err)
	}

	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatal(err)
	}
	defer application.Close()

	userIDs := os.Args[1:]
	if len(userIDs) == 0 {
		log.Fatal("usage: spendsense <user_id> [user_id ...]")
	}

	for _, userID := range userIDs {
		if err := application.RunUser(userID); err != nil {
			log.Printf("❌ %v", err)
		}
	}
}
