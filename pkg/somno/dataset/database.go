package dataset

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/somnolab/somno/pkg/somno/logging"
	"github.com/somnolab/somno/pkg/somno/types"
)

// dbRow mirrors the expected result columns of a sleep record query.
// Dates may arrive as date or timestamp columns; gorm scans both into
// time.Time.
type dbRow struct {
	Date          time.Time `gorm:"column:date"`
	SleepDuration float64   `gorm:"column:sleep_duration"`
	QualityScore  float64   `gorm:"column:quality_score"`
	Bedtime       float64   `gorm:"column:bedtime"`
	WakeTime      float64   `gorm:"column:wake_time"`
	ActivityLevel float64   `gorm:"column:activity_level"`
	StressLevel   float64   `gorm:"column:stress_level"`
	HeartRate     float64   `gorm:"column:heart_rate"`
	DeepSleepPct  float64   `gorm:"column:deep_sleep_pct"`
	RemSleepPct   float64   `gorm:"column:rem_sleep_pct"`
}

// LoadDatabase runs a SQL query against Postgres and maps the result rows to
// sleep records. The query must project the canonical column names; light
// sleep share is derived rather than read.
func LoadDatabase(dsn, query string) ([]types.SleepRecord, error) {
	log := logging.Get("dataset")

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	var rows []dbRow
	if err := db.Raw(query).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("running record query: %w", err)
	}

	records := make([]types.SleepRecord, 0, len(rows))
	for _, row := range rows {
		rec := types.SleepRecord{
			Date:      row.Date,
			Duration:  row.SleepDuration,
			Quality:   row.QualityScore,
			Bedtime:   row.Bedtime,
			WakeTime:  row.WakeTime,
			Activity:  row.ActivityLevel,
			Stress:    row.StressLevel,
			HeartRate: row.HeartRate,
			DeepPct:   row.DeepSleepPct,
			RemPct:    row.RemSleepPct,
			LightPct:  types.DeriveLightPct(row.DeepSleepPct, row.RemSleepPct),
			Weekday:   row.Date.Weekday(),
		}
		// Some sources omit wake_time; derive it when missing.
		if rec.WakeTime == 0 && rec.Bedtime != 0 {
			rec.WakeTime = types.DeriveWakeTime(rec.Bedtime, rec.Duration)
		}
		records = append(records, rec)
	}

	log.Info("loaded records from database", "count", len(records))
	return records, nil
}
