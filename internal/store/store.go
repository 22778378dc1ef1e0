// Package store persists canonical postings in Postgres. The original link is
// the natural key: inserts of an already-known link are rejected as
// duplicates, and all updates address rows by link.
package store

import (
	"context"
	stderrors "errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"azubimine/internal/errors"
	"azubimine/internal/models"
)

// JobStore is the persistence surface the mining loop uses.
type JobStore interface {
	// GetByLink returns the posting for a link, or a NotFound error.
	GetByLink(ctx context.Context, link string) (*models.JobPosting, error)
	// Insert stores a new posting. An already-known link yields a Duplicate
	// error and leaves the stored row untouched.
	Insert(ctx context.Context, posting *models.JobPosting) error
	// UpdateFields patches selected columns of the posting with the given
	// link. Absent keys keep their stored values.
	UpdateFields(ctx context.Context, link string, fields map[string]any) error
	// ActiveLinks returns the original links of every active posting.
	ActiveLinks(ctx context.Context) ([]string, error)
	// MarkInactive clears the active flag for the given links.
	MarkInactive(ctx context.Context, links []string) (int64, error)
	// NotCheckedSince returns active postings whose last verification is
	// older than the cutoff.
	NotCheckedSince(ctx context.Context, cutoff time.Time) ([]models.JobPosting, error)
}

type gormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

func Open(dsn string, logger *zap.Logger) (JobStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Fatal("opening postgres", err)
	}
	return &gormStore{db: db, logger: logger}, nil
}

// NewWithDB wraps an existing gorm handle, for tests and migrations.
func NewWithDB(db *gorm.DB, logger *zap.Logger) JobStore {
	return &gormStore{db: db, logger: logger}
}

// Migrate creates or updates the postings schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.JobPosting{})
}

func (s *gormStore) GetByLink(ctx context.Context, link string) (*models.JobPosting, error) {
	var posting models.JobPosting
	err := s.db.WithContext(ctx).Where("original_link = ?", link).First(&posting).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("posting not stored", err)
		}
		return nil, errors.Transient("loading posting", err)
	}
	return &posting, nil
}

func (s *gormStore) Insert(ctx context.Context, posting *models.JobPosting) error {
	err := s.db.WithContext(ctx).Create(posting).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.Duplicate("posting already stored", err)
		}
		return errors.Transient("inserting posting", err)
	}
	return nil
}

func (s *gormStore) UpdateFields(ctx context.Context, link string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.JobPosting{}).
		Where("original_link = ?", link).
		Updates(fields)
	if res.Error != nil {
		return errors.Transient("updating posting", res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.NotFound("posting not stored", nil)
	}
	return nil
}

func (s *gormStore) ActiveLinks(ctx context.Context) ([]string, error) {
	var links []string
	err := s.db.WithContext(ctx).
		Model(&models.JobPosting{}).
		Where("is_active = ?", true).
		Pluck("original_link", &links).Error
	if err != nil {
		return nil, errors.Transient("listing active links", err)
	}
	return links, nil
}

func (s *gormStore) MarkInactive(ctx context.Context, links []string) (int64, error) {
	if len(links) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.JobPosting{}).
		Where("original_link IN ?", links).
		Updates(map[string]any{"is_active": false, "last_checked_at": time.Now().UTC()})
	if res.Error != nil {
		return 0, errors.Transient("marking postings inactive", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *gormStore) NotCheckedSince(ctx context.Context, cutoff time.Time) ([]models.JobPosting, error) {
	var postings []models.JobPosting
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND (last_checked_at IS NULL OR last_checked_at < ?)", true, cutoff).
		Order("last_checked_at ASC NULLS FIRST").
		Find(&postings).Error
	if err != nil {
		return nil, errors.Transient("listing stale postings", err)
	}
	return postings, nil
}
