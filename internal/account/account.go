// Package account tracks users and their subscription tier.
package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Tier is a subscription level
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// Valid reports whether t is a known tier
func (t Tier) Valid() bool {
	return t == TierFree || t == TierPremium
}

var ErrNotFound = errors.New("account not found")

// Profile is the account row of a user
type Profile struct {
	ID               string    `gorm:"primaryKey;size:64" json:"id"`
	Email            string    `gorm:"size:255;index" json:"email,omitempty"`
	SubscriptionTier Tier      `gorm:"size:16;not null;default:free" json:"subscription_tier"`
	StripeCustomerID string    `gorm:"size:64;index" json:"stripe_customer_id,omitempty"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// Store reads and updates profiles
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore wraps a migrated database
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger.With(zap.String("component", "account"))}
}

// Models lists the rows this package migrates
func Models() []any {
	return []any{&Profile{}}
}

// Get returns the profile of userID
func (s *Store) Get(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	err := s.db.WithContext(ctx).First(&p, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", userID, err)
	}
	return &p, nil
}

// Ensure returns the profile of userID, creating a free one when missing.
// A non-empty email is stored when the row has none.
func (s *Store) Ensure(ctx context.Context, userID, email string) (*Profile, error) {
	p := Profile{ID: userID, Email: email, SubscriptionTier: TierFree}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&p).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create account %s: %w", userID, err)
	}

	existing, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if email != "" && existing.Email == "" {
		if err := s.db.WithContext(ctx).Model(existing).Update("email", email).Error; err != nil {
			return nil, fmt.Errorf("failed to update email of %s: %w", userID, err)
		}
		existing.Email = email
	}
	return existing, nil
}

// Tier returns the subscription tier. Unknown users and lookup failures are free.
func (s *Store) Tier(ctx context.Context, userID string) Tier {
	p, err := s.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("tier lookup failed", zap.String("user", userID), zap.Error(err))
		}
		return TierFree
	}
	return p.SubscriptionTier
}

// SetTier updates the tier of a user, creating the row if needed
func (s *Store) SetTier(ctx context.Context, userID string, tier Tier) error {
	if !tier.Valid() {
		return fmt.Errorf("unknown tier %q", tier)
	}
	if _, err := s.Ensure(ctx, userID, ""); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Model(&Profile{}).Where("id = ?", userID).Update("subscription_tier", tier).Error
	if err != nil {
		return fmt.Errorf("failed to set tier of %s: %w", userID, err)
	}
	s.logger.Info("subscription changed", zap.String("user", userID), zap.String("tier", string(tier)))
	return nil
}

// SetTierByEmail updates every profile with the email and returns how many changed
func (s *Store) SetTierByEmail(ctx context.Context, email string, tier Tier) (int64, error) {
	if !tier.Valid() {
		return 0, fmt.Errorf("unknown tier %q", tier)
	}
	res := s.db.WithContext(ctx).Model(&Profile{}).Where("email = ?", email).Update("subscription_tier", tier)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to set tier for %s: %w", email, res.Error)
	}
	return res.RowsAffected, nil
}

// SetCustomer records the payment provider customer of a user
func (s *Store) SetCustomer(ctx context.Context, userID, customerID string) error {
	if _, err := s.Ensure(ctx, userID, ""); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Model(&Profile{}).Where("id = ?", userID).Update("stripe_customer_id", customerID).Error
	if err != nil {
		return fmt.Errorf("failed to set customer of %s: %w", userID, err)
	}
	return nil
}
