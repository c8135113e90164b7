package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/somnolab/somno/pkg/somno/assess"
)

// MigrationProgress reports migration progress.
type MigrationProgress struct {
	FromVersion  int
	ToVersion    int
	EntriesTotal int64
	EntriesDone  int64
}

// MigrationProgressFunc is called with progress updates during migration.
type MigrationProgressFunc func(MigrationProgress)

// Migrate runs any pending migrations to bring the database up to current schema.
// Returns the number of migrations run, or an error.
func (s *Store) Migrate(ctx context.Context, onProgress MigrationProgressFunc) (int, error) {
	schema := s.GetSchema()
	fromVersion := 0
	if schema != nil {
		fromVersion = schema.Version
	} else if s.hasAnyEntries() {
		// Database has entries but no schema = v1 (original format)
		fromVersion = 1
	}

	if fromVersion >= CurrentSchemaVersion {
		return 0, nil // Already up to date
	}

	migrationsRun := 0

	// Run migrations in order
	for version := fromVersion + 1; version <= CurrentSchemaVersion; version++ {
		select {
		case <-ctx.Done():
			return migrationsRun, ctx.Err()
		default:
		}

		var err error
		switch version {
		case 2:
			err = s.migrateToV2(ctx, onProgress)
		}

		if err != nil {
			return migrationsRun, err
		}

		// Update schema version after each successful migration
		if err := s.SetSchema(&Schema{
			Version:   version,
			UpdatedAt: time.Now(),
		}); err != nil {
			return migrationsRun, err
		}

		migrationsRun++
	}

	return migrationsRun, nil
}

// migrateToV2 builds the assessment time index and cached counts from
// existing entries.
func (s *Store) migrateToV2(ctx context.Context, onProgress MigrationProgressFunc) error {
	var totalEntries int64
	if onProgress != nil {
		totalEntries = s.countAllEntries()
	}

	var entriesDone int64
	var assessments []*assess.Assessment

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixAssessment)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			err := it.Item().Value(func(val []byte) error {
				var a assess.Assessment
				if err := json.Unmarshal(val, &a); err != nil {
					return nil //nolint:nilerr // intentionally skip malformed entries
				}
				assessments = append(assessments, &a)
				entriesDone++

				if onProgress != nil && entriesDone%10000 == 0 {
					onProgress(MigrationProgress{
						FromVersion:  1,
						ToVersion:    2,
						EntriesTotal: totalEntries,
						EntriesDone:  entriesDone,
					})
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Write the time index
	if len(assessments) > 0 {
		wb := s.db.NewWriteBatch()
		defer wb.Cancel()
		for _, a := range assessments {
			if err := wb.Set(assessTimeKey(a.CreatedAt, a.ID), nil); err != nil {
				return err
			}
		}
		if err := wb.Flush(); err != nil {
			return err
		}
	}

	// Seed the count cache
	if _, err := s.RefreshDataMeta(); err != nil {
		return err
	}

	// Final progress update
	if onProgress != nil {
		onProgress(MigrationProgress{
			FromVersion:  1,
			ToVersion:    2,
			EntriesTotal: totalEntries,
			EntriesDone:  entriesDone,
		})
	}

	return nil
}

// countAllEntries counts record and assessment keys (for progress reporting).
func (s *Store) countAllEntries() int64 {
	var count int64
	_ = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			if strings.HasPrefix(key, prefixRecord) || strings.HasPrefix(key, prefixAssessment) {
				count++
			}
		}
		return nil
	})
	return count
}
