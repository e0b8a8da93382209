package users

import (
	"errors"
	"fmt"
	"time"

	"spendsense/database"
	models "spendsense/database/models_pkg"

	"gorm.io/gorm"
)

// Repository handles read access to user, account, liability, and
// transaction records. The engine never writes through this repository.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetUser fetches a user row. A missing user is a lookup failure the
// caller must handle, never a silent default.
func (r *Repository) GetUser(userID string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &database.NotFoundError{Resource: "user", ID: userID}
		}
		return nil, fmt.Errorf("GetUser: %w", err)
	}
	return &user, nil
}

// IsConsentGranted reports the user's consent state at call time.
func (r *Repository) IsConsentGranted(userID string) (bool, error) {
	user, err := r.GetUser(userID)
	if err != nil {
		return false, err
	}
	return user.ConsentGranted, nil
}

// GetAccounts returns all accounts owned by the user.
func (r *Repository) GetAccounts(userID string) ([]models.Account, error) {
	var accounts []models.Account
	if err := r.db.Where("user_id = ?", userID).Order("id").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("GetAccounts: %w", err)
	}
	return accounts, nil
}

// GetLiabilities returns all liabilities attached to the user's credit accounts.
func (r *Repository) GetLiabilities(userID string) ([]models.Liability, error) {
	var liabilities []models.Liability
	if err := r.db.Where("user_id = ?", userID).Order("account_id").Find(&liabilities).Error; err != nil {
		return nil, fmt.Errorf("GetLiabilities: %w", err)
	}
	return liabilities, nil
}

// GetTransactionsSince returns the user's transactions posted on or after
// the cutoff, oldest first. Window math belongs to the caller so that one
// fetch can serve both look-back windows.
func (r *Repository) GetTransactionsSince(userID string, since time.Time) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := r.db.
		Where("user_id = ? AND date >= ?", userID, since).
		Order("date ASC, id ASC").
		Find(&txns).Error
	if err != nil {
		return nil, fmt.Errorf("GetTransactionsSince: %w", err)
	}
	return txns, nil
}
