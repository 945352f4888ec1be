package services

import (
	"time"

	"github.com/winnerqin/jimeng4-image-generator/internal/models"
	"github.com/winnerqin/jimeng4-image-generator/internal/types"
	"gorm.io/gorm"
)

// OverviewStats is the operational summary across all users.
type OverviewStats struct {
	TotalUsers   int64 `json:"total_users"`
	TotalRecords int64 `json:"total_records"`
	RecordsToday int64 `json:"records_today"`
	RecordsWeek  int64 `json:"records_week"`
}

// UserStats is one user's rollup row from PerUserStats.
type UserStats struct {
	UserID       uint64 `json:"user_id"`
	Username     string `json:"username"`
	Total        int64  `json:"total"`
	Today        int64  `json:"today"`
	Week         int64  `json:"week"`
	LastRecordAt string `json:"last_record_at,omitempty"`
}

// DayStats is one calendar day's rollup from DailyStats. Days with no
// records are omitted.
type DayStats struct {
	Day     string `json:"day"`
	Records int64  `json:"records"`
	Users   int64  `json:"users"`
}

// startOfToday returns local midnight. Records carry local wall-clock
// timestamps, so day boundaries are local too.
func startOfToday() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// Overview computes the all-user summary. Pure read, recomputed per call.
func Overview(db *gorm.DB) (OverviewStats, error) {
	var stats OverviewStats
	today := startOfToday()
	weekAgo := today.AddDate(0, 0, -6)

	if err := db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return stats, &types.StorageError{Op: "Overview", Err: err}
	}
	if err := db.Model(&models.GenerationRecord{}).Count(&stats.TotalRecords).Error; err != nil {
		return stats, &types.StorageError{Op: "Overview", Err: err}
	}
	if err := db.Model(&models.GenerationRecord{}).
		Where("created_at >= ?", today).
		Count(&stats.RecordsToday).Error; err != nil {
		return stats, &types.StorageError{Op: "Overview", Err: err}
	}
	if err := db.Model(&models.GenerationRecord{}).
		Where("created_at >= ?", weekAgo).
		Count(&stats.RecordsWeek).Error; err != nil {
		return stats, &types.StorageError{Op: "Overview", Err: err}
	}
	return stats, nil
}

// PerUserStats computes a rollup row for every user. start and end, when
// non-nil, bound the Total column inclusively by date; Today and Week are
// always relative to the current clock.
func PerUserStats(db *gorm.DB, start, end *time.Time) ([]UserStats, error) {
	today := startOfToday()
	weekAgo := today.AddDate(0, 0, -6)

	// Inclusive bounds: the end date covers the whole day.
	rangeStart := time.Time{}
	rangeEnd := time.Now().AddDate(100, 0, 0)
	if start != nil {
		rangeStart = *start
	}
	if end != nil {
		rangeEnd = end.AddDate(0, 0, 1)
	}

	// MAX(created_at) comes back as time.Time on mysql (parseTime) and as
	// text on sqlite, so the scan target is left loose.
	type row struct {
		UserID       uint64
		Username     string
		Total        int64
		Today        int64
		Week         int64
		LastRecordAt interface{}
	}

	var rows []row
	err := db.Raw(`
		SELECT u.id AS user_id,
		       u.username AS username,
		       SUM(CASE WHEN r.id IS NOT NULL AND r.created_at >= ? AND r.created_at < ? THEN 1 ELSE 0 END) AS total,
		       SUM(CASE WHEN r.id IS NOT NULL AND r.created_at >= ? THEN 1 ELSE 0 END) AS today,
		       SUM(CASE WHEN r.id IS NOT NULL AND r.created_at >= ? THEN 1 ELSE 0 END) AS week,
		       MAX(r.created_at) AS last_record_at
		FROM users u
		LEFT JOIN generation_records r ON r.user_id = u.id
		GROUP BY u.id, u.username
		ORDER BY u.id`,
		rangeStart, rangeEnd, today, weekAgo).Scan(&rows).Error
	if err != nil {
		return nil, &types.StorageError{Op: "PerUserStats", Err: err}
	}

	stats := make([]UserStats, 0, len(rows))
	for _, r := range rows {
		s := UserStats{
			UserID:   r.UserID,
			Username: r.Username,
			Total:    r.Total,
			Today:    r.Today,
			Week:     r.Week,
		}
		switch v := r.LastRecordAt.(type) {
		case time.Time:
			s.LastRecordAt = v.Format(createdAtLayout)
		case string:
			if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
				s.LastRecordAt = t.Format(createdAtLayout)
			} else if len(v) >= len(createdAtLayout) {
				s.LastRecordAt = v[:len(createdAtLayout)]
			} else {
				s.LastRecordAt = v
			}
		case []byte:
			if len(v) >= len(createdAtLayout) {
				s.LastRecordAt = string(v[:len(createdAtLayout)])
			} else {
				s.LastRecordAt = string(v)
			}
		}
		stats = append(stats, s)
	}
	return stats, nil
}

// DailyStats returns per-day record and distinct-user counts for the last
// N calendar days, most recent day first.
func DailyStats(db *gorm.DB, days int) ([]DayStats, error) {
	if days <= 0 {
		days = 7
	}
	cutoff := startOfToday().AddDate(0, 0, -(days - 1))

	stats := []DayStats{}
	err := db.Raw(`
		SELECT DATE(created_at) AS day,
		       COUNT(*) AS records,
		       COUNT(DISTINCT user_id) AS users
		FROM generation_records
		WHERE created_at >= ?
		GROUP BY DATE(created_at)
		ORDER BY day DESC`,
		cutoff).Scan(&stats).Error
	if err != nil {
		return nil, &types.StorageError{Op: "DailyStats", Err: err}
	}

	// mysql's DATE() round-trips through the driver as a full timestamp;
	// keep just the date part everywhere.
	for i := range stats {
		if len(stats[i].Day) > 10 {
			stats[i].Day = stats[i].Day[:10]
		}
	}
	return stats, nil
}
