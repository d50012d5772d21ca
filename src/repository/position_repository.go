package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"signalengine/src/database"
	"signalengine/src/model"
)

// PositionRepository stores close events for history queries.
type PositionRepository struct {
	db *gorm.DB
}

// NewPositionRepository creates a repository over the main database.
func NewPositionRepository() *PositionRepository {
	return &PositionRepository{db: database.MainDB}
}

// WithDB overrides the underlying *gorm.DB instance.
func (r *PositionRepository) WithDB(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// SaveClosed stores one close event.
func (r *PositionRepository) SaveClosed(ctx context.Context, record *model.ClosedPositionRecord) error {
	logger.WithFields(map[string]interface{}{
		"repo":   "PositionRepository",
		"op":     "SaveClosed",
		"symbol": record.Symbol,
		"reason": record.Reason,
	}).Debug("Saving closed position")

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "PositionRepository",
			"op":     "SaveClosed",
			"symbol": record.Symbol,
		}).WithError(err).Error("Failed to save closed position")
		return err
	}

	return nil
}

// FindRecentClosed fetches the latest close events, newest first.
func (r *PositionRepository) FindRecentClosed(ctx context.Context, limit int) ([]model.ClosedPositionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []model.ClosedPositionRecord

	err := r.db.WithContext(ctx).
		Order("closed_at DESC").
		Limit(limit).
		Find(&records).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "PositionRepository",
			"op":    "FindRecentClosed",
			"limit": limit,
		}).WithError(err).Error("Failed to fetch closed positions")

		return nil, err
	}

	return records, nil
}

// CountByReason aggregates close events per reason code.
func (r *PositionRepository) CountByReason(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Reason string
		Count  int64
	}

	var rows []row
	err := r.db.WithContext(ctx).
		Model(&model.ClosedPositionRecord{}).
		Select("reason, count(*) as count").
		Group("reason").
		Find(&rows).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "CountByReason",
		}).WithError(err).Error("Failed to aggregate close reasons")

		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Reason] = r.Count
	}
	return out, nil
}
