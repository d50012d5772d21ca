package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"signalengine/src/database"
	"signalengine/src/model"
)

// SignalRepository persists accepted signals. The store assigns no
// semantics beyond storage; status transitions are driven by the engine.
type SignalRepository struct {
	db *gorm.DB
}

// NewSignalRepository creates a repository over the main database.
func NewSignalRepository() *SignalRepository {
	return &SignalRepository{db: database.MainDB}
}

// WithDB overrides the underlying *gorm.DB instance. Useful for tests and
// custom sessions/transactions.
func (r *SignalRepository) WithDB(db *gorm.DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// Save stores a newly accepted signal as ACTIVE.
func (r *SignalRepository) Save(ctx context.Context, record *model.SignalRecord) error {
	logger.WithFields(map[string]interface{}{
		"repo":   "SignalRepository",
		"op":     "Save",
		"symbol": record.Symbol,
	}).Debug("Saving signal record")

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "SignalRepository",
			"op":     "Save",
			"symbol": record.Symbol,
		}).WithError(err).Error("Failed to save signal record")
		return err
	}

	return nil
}

// FindBySignalID fetches one record by its signal UUID.
// Returns (nil, nil) if not found.
func (r *SignalRepository) FindBySignalID(ctx context.Context, signalID string) (*model.SignalRecord, error) {
	var record model.SignalRecord

	err := r.db.WithContext(ctx).
		Where("signal_id = ?", signalID).
		First(&record).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // not found is not an error
		}

		logger.WithFields(map[string]interface{}{
			"repo":      "SignalRepository",
			"op":        "FindBySignalID",
			"signal_id": signalID,
		}).WithError(err).Error("Failed to fetch signal record")

		return nil, err
	}

	return &record, nil
}

// FindActive answers the "currently active signals" query for the API and
// the notifier. Ordered newest first.
func (r *SignalRepository) FindActive(ctx context.Context, limit int) ([]model.SignalRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []model.SignalRecord

	err := r.db.WithContext(ctx).
		Where("status = ?", model.SignalStatusActive).
		Order("id DESC").
		Limit(limit).
		Find(&records).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "SignalRepository",
			"op":    "FindActive",
			"limit": limit,
		}).WithError(err).Error("Failed to fetch active signals")

		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":        "SignalRepository",
		"op":          "FindActive",
		"rows_return": len(records),
	}).Debug("Active signals fetched")

	return records, nil
}

// UpdateStatus flips the stored status for a signal.
func (r *SignalRepository) UpdateStatus(ctx context.Context, signalID, status string) error {
	logger.WithFields(map[string]interface{}{
		"repo":      "SignalRepository",
		"op":        "UpdateStatus",
		"signal_id": signalID,
		"status":    status,
	}).Debug("Updating signal status")

	err := r.db.WithContext(ctx).
		Model(&model.SignalRecord{}).
		Where("signal_id = ?", signalID).
		Update("status", status).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":      "SignalRepository",
			"op":        "UpdateStatus",
			"signal_id": signalID,
		}).WithError(err).Error("Failed to update signal status")
	}

	return err
}

// ExpireStale marks ACTIVE records whose validity window has passed as
// EXPIRED and returns how many rows changed.
func (r *SignalRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.SignalRecord{}).
		Where("status = ? AND valid_until <= ?", model.SignalStatusActive, now.UnixMilli()).
		Update("status", model.SignalStatusExpired)

	if result.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "SignalRepository",
			"op":   "ExpireStale",
		}).WithError(result.Error).Error("Failed to expire stale signals")

		return 0, result.Error
	}

	if result.RowsAffected > 0 {
		logger.WithFields(map[string]interface{}{
			"repo":    "SignalRepository",
			"op":      "ExpireStale",
			"expired": result.RowsAffected,
		}).Info("Stale signals expired")
	}

	return result.RowsAffected, nil
}
