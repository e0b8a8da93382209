package personas

import (
	"errors"
	"fmt"

	"spendsense/database"
	models "spendsense/database/models_pkg"

	"gorm.io/gorm"
)

// Repository handles persistence of persona assignments. Assignments are
// append-only: a new row supersedes older ones for the same user, and
// history is kept for audit.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new personas repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SaveAssignment appends a new persona assignment row.
func (r *Repository) SaveAssignment(assignment *models.PersonaAssignment) error {
	if err := r.db.Create(assignment).Error; err != nil {
		return fmt.Errorf("SaveAssignment: %w", err)
	}
	return nil
}

// GetLatestAssignment returns the most recent assignment for the user.
func (r *Repository) GetLatestAssignment(userID string) (*models.PersonaAssignment, error) {
	var assignment models.PersonaAssignment
	err := r.db.
		Where("user_id = ?", userID).
		Order("assigned_at DESC, id DESC").
		First(&assignment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &database.NotFoundError{Resource: "persona assignment", ID: userID}
		}
		return nil, fmt.Errorf("GetLatestAssignment: %w", err)
	}
	return &assignment, nil
}

// GetAssignmentHistory returns every assignment for the user, newest first.
func (r *Repository) GetAssignmentHistory(userID string) ([]models.PersonaAssignment, error) {
	var assignments []models.PersonaAssignment
	err := r.db.
		Where("user_id = ?", userID).
		Order("assigned_at DESC, id DESC").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("GetAssignmentHistory: %w", err)
	}
	return assignments, nil
}
