package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"swap-service/internal/models"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrListingNotFound = errors.New("listing not found")
)

// DirectoryRepository reads the user and listing reference data.
type DirectoryRepository interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (models.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (models.Profile, error)
	GetListing(ctx context.Context, listingID uuid.UUID) (models.Listing, error)
}

// DirectoryRepo is a sqlx implementation of DirectoryRepository.
type DirectoryRepo struct {
	db *sqlx.DB
}

// NewDirectoryRepo constructs a DirectoryRepo.
func NewDirectoryRepo(db *sqlx.DB) *DirectoryRepo {
	return &DirectoryRepo{db: db}
}

func (r *DirectoryRepo) GetProfile(ctx context.Context, userID uuid.UUID) (models.Profile, error) {
	var p models.Profile
	err := r.db.GetContext(ctx, &p, `SELECT id, email, full_name FROM profiles WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, ErrProfileNotFound
	}
	return p, err
}

func (r *DirectoryRepo) GetProfileByEmail(ctx context.Context, email string) (models.Profile, error) {
	var p models.Profile
	err := r.db.GetContext(ctx, &p, `SELECT id, email, full_name FROM profiles WHERE lower(email)=$1`, models.NormalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, ErrProfileNotFound
	}
	return p, err
}

func (r *DirectoryRepo) GetListing(ctx context.Context, listingID uuid.UUID) (models.Listing, error) {
	var l models.Listing
	err := r.db.GetContext(ctx, &l, `SELECT id, owner_id, title FROM listings WHERE id=$1`, listingID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Listing{}, ErrListingNotFound
	}
	return l, err
}
