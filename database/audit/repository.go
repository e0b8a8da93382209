package audit

import (
	"fmt"

	models "spendsense/database/models_pkg"

	"gorm.io/gorm"
)

// Repository is the PostgreSQL-backed TraceStore.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new audit repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Append writes one trace record. Records carry their own timestamps; the
// store only assigns the monotonically increasing row ID.
func (r *Repository) Append(record *models.AuditRecord) error {
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	return nil
}

// ReadAllForUser returns the full trace for a user in append order.
func (r *Repository) ReadAllForUser(userID string) ([]models.AuditRecord, error) {
	var records []models.AuditRecord
	err := r.db.
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("ReadAllForUser: %w", err)
	}
	return records, nil
}
