package app

import (
	"fmt"
	"log"
	"strconv"

	"spendsense/cache"
	"spendsense/catalog"
	"spendsense/config"
	"spendsense/database"
	"spendsense/database/audit"
	"spendsense/database/personas"
	"spendsense/database/users"
)

// App wires the engine against PostgreSQL, Redis, and the YAML catalog.
type App struct {
	config   *config.Config
	db       *database.Database
	redis    *cache.RedisClient
	columnar *database.ColumnarStore
	engine   *Engine
}

// New creates a new application instance
func New(cfg *config.Config) *App {
	return &App{config: cfg}
}

// Engine returns the wired decision engine. Valid after Start.
func (a *App) Engine() *Engine {
	return a.engine
}

// Start validates configuration, connects storage, loads the catalog, and
// builds the engine. Configuration problems fail here, never per-user.
func (a *App) Start() error {
	if err := a.config.Validate(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	// 1. Database Connection
	log.Println("🗄️  Connecting to database...")
	dbPort, err := strconv.Atoi(a.config.DatabasePort)
	if err != nil {
		return fmt.Errorf("invalid database port: %w", err)
	}
	db, err := database.Connect(
		a.config.DatabaseHost,
		dbPort,
		a.config.DatabaseName,
		a.config.DatabaseUser,
		a.config.DatabasePassword,
	)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	a.db = db

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}

	// 2. Columnar signal row store
	columnar, err := database.NewColumnarStore(
		a.config.DatabaseHost,
		a.config.DatabasePort,
		a.config.DatabaseUser,
		a.config.DatabasePassword,
		a.config.DatabaseName,
	)
	if err != nil {
		return fmt.Errorf("columnar store connection failed: %w", err)
	}
	if err := columnar.InitSchema(); err != nil {
		return fmt.Errorf("columnar schema initialization failed: %w", err)
	}
	a.columnar = columnar

	// 3. Redis Connection
	log.Println("🧠 Connecting to Redis...")
	redisClient := cache.NewRedisClient(
		a.config.RedisHost,
		a.config.RedisPort,
		a.config.RedisPassword,
	)
	if redisClient == nil {
		log.Println("⚠️  Redis connection failed. Consent caching disabled.")
	} else {
		a.redis = redisClient
	}

	// 4. Catalog
	cat, err := catalog.Load(a.config.CatalogPath)
	if err != nil {
		return fmt.Errorf("catalog load failed: %w", err)
	}
	if a.config.CatalogOverridePath != "" {
		if err := cat.LoadOverrides(a.config.CatalogOverridePath); err != nil {
			return fmt.Errorf("catalog overrides failed: %w", err)
		}
		log.Printf("✅ Catalog overrides applied from %s", a.config.CatalogOverridePath)
	}

	// 5. Engine
	gormDB := db.DB()
	engine := NewEngine(
		a.config,
		users.NewRepository(gormDB),
		personas.NewRepository(gormDB),
		audit.NewRepository(gormDB),
		cat,
	)
	engine.SetSignalSink(columnar)
	if a.redis != nil {
		engine.SetCache(a.redis)
	}
	a.engine = engine

	log.Println("✅ Recommendation engine ready")
	return nil
}

// RunUser executes the full pipeline for one user and logs the outcome.
func (a *App) RunUser(userID string) error {
	set, err := a.engine.GenerateRecommendations(userID)
	if err != nil {
		return fmt.Errorf("run failed for %s: %w", userID, err)
	}

	if len(set.Recommendations) == 0 {
		log.Printf("ℹ️  %s → %s: no recommendations (%s)", userID, set.Persona, set.Metadata.Reason)
		return nil
	}
	log.Printf("✅ %s → %s: %d education, %d offers (run %s)",
		userID, set.Persona, set.Metadata.EducationCount, set.Metadata.OfferCount, set.Metadata.RunID)
	return nil
}

// Close releases storage connections.
func (a *App) Close() {
	if a.columnar != nil {
		if err := a.columnar.Close(); err != nil {
			log.Printf("⚠️  Failed to close columnar store: %v", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Printf("⚠️  Failed to close Redis: %v", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Printf("⚠️  Failed to close database: %v", err)
		}
	}
}
