package storage

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"coolwatch-server-go/internal/models"
	"coolwatch-server-go/internal/platform/errors"
)

// ActivityFilters narrows and pages activity listings.
type ActivityFilters struct {
	Search    string
	Type      string
	Severity  string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	PageSize  int
}

// ActivityStatistics aggregates activity counts for the dashboard.
type ActivityStatistics struct {
	Total      int64            `json:"total"`
	ByType     map[string]int64 `json:"byType"`
	BySeverity map[string]int64 `json:"bySeverity"`
}

type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	if activity.Timestamp.IsZero() {
		activity.Timestamp = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(activity).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "activity.create", "failed to record activity", err)
	}
	return nil
}

func (r *ActivityRepository) List(ctx context.Context, filters ActivityFilters) ([]models.Activity, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Activity{})

	if filters.Search != "" {
		like := "%" + strings.ToLower(filters.Search) + "%"
		query = query.Where("LOWER(action) LIKE ?", like)
	}
	if filters.Type != "" {
		query = query.Where("type = ?", filters.Type)
	}
	if filters.Severity != "" {
		query = query.Where("severity = ?", filters.Severity)
	}
	if filters.StartDate != nil {
		query = query.Where("timestamp >= ?", *filters.StartDate)
	}
	if filters.EndDate != nil {
		query = query.Where("timestamp <= ?", *filters.EndDate)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(errors.KindStorage, "activity.list", "failed to count activities", err)
	}

	page, pageSize := normalizePage(filters.Page, filters.PageSize)
	var activities []models.Activity
	if err := query.
		Order("timestamp DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&activities).Error; err != nil {
		return nil, 0, errors.Wrap(errors.KindStorage, "activity.list", "failed to list activities", err)
	}
	return activities, total, nil
}

func (r *ActivityRepository) Recent(ctx context.Context, limit int) ([]models.Activity, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var activities []models.Activity
	if err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&activities).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "activity.recent", "failed to load activities", err)
	}
	return activities, nil
}

func (r *ActivityRepository) Statistics(ctx context.Context, since time.Time) (*ActivityStatistics, error) {
	stats := &ActivityStatistics{
		ByType:     map[string]int64{},
		BySeverity: map[string]int64{},
	}

	base := r.db.WithContext(ctx).Model(&models.Activity{}).Where("timestamp >= ?", since)
	if err := base.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "activity.statistics", "failed to count activities", err)
	}

	type bucket struct {
		Key   string
		Count int64
	}

	var byType []bucket
	if err := base.Session(&gorm.Session{}).
		Select("type AS key, COUNT(*) AS count").
		Group("type").
		Scan(&byType).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "activity.statistics", "failed to group by type", err)
	}
	for _, b := range byType {
		stats.ByType[b.Key] = b.Count
	}

	var bySeverity []bucket
	if err := base.Session(&gorm.Session{}).
		Select("severity AS key, COUNT(*) AS count").
		Group("severity").
		Scan(&bySeverity).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "activity.statistics", "failed to group by severity", err)
	}
	for _, b := range bySeverity {
		stats.BySeverity[b.Key] = b.Count
	}
	return stats, nil
}

// DeleteOlderThan trims the audit log beyond the retention window.
func (r *ActivityRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&models.Activity{})
	if res.Error != nil {
		return 0, errors.Wrap(errors.KindStorage, "activity.cleanup", "failed to delete activities", res.Error)
	}
	return res.RowsAffected, nil
}
