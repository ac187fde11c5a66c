package profiles

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/naili/storefront/pkg/auth/session"
	"github.com/naili/storefront/pkg/db/models"
)

// Repository exposes profile persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a profiles repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads the profile row of a user.
func (r *Repository) FindByID(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindProfile implements session.ProfileLoader.
func (r *Repository) FindProfile(ctx context.Context, userID string) (*session.Profile, error) {
	profile, err := r.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, session.ErrProfileNotFound
		}
		return nil, err
	}
	return toSessionProfile(profile), nil
}

func toSessionProfile(p *models.Profile) *session.Profile {
	return &session.Profile{
		ID:            p.ID,
		FullName:      deref(p.FullName),
		PhoneNumber:   deref(p.PhoneNumber),
		Address:       deref(p.Address),
		CurrentCartID: deref(p.CurrentCartID),
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
