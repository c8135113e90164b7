// Package store provides Badger DB-backed storage for sleep records and
// assessment history.
package store

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/somnolab/somno/pkg/somno/assess"
	"github.com/somnolab/somno/pkg/somno/types"
)

// Key prefixes for different data types
const (
	prefixRecord     = "r:" // Sleep records, keyed by date + content hash
	prefixAssessment = "a:" // Assessments, keyed by ID
	prefixAssessTime = "t:" // Time index over assessments (newest first)
	prefixMeta       = "m:" // Metadata (counts, schema)
)

// recordDateLayout leads every record key; lexical order is chronological
// order. A content hash follows the date so distinct records on the same
// date (for example from different wearables) coexist, while re-ingesting
// an identical record is a no-op.
const recordDateLayout = "2006-01-02"

// Store is the persistence layer backed by Badger DB.
type Store struct {
	db *badger.DB
}

// Open opens or creates a store at the given path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutRecord stores a sleep record. Storing an identical record twice is a
// no-op; a distinct record on an already-stored date is kept alongside it.
func (s *Store) PutRecord(rec types.SleepRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.Date, data), data)
	})
}

// PutRecordBatch stores multiple records efficiently.
func (s *Store) PutRecordBatch(records []types.SleepRecord) error {
	if len(records) == 0 {
		return nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := wb.Set(recordKey(rec.Date, data), data); err != nil {
			return err
		}
	}

	return wb.Flush()
}

// GetRecord retrieves a record for a date. When several records share the
// date, the first in key order is returned.
func (s *Store) GetRecord(date time.Time) (*types.SleepRecord, error) {
	var rec types.SleepRecord

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := recordDatePrefix(date)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			return it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
		}
		return badger.ErrKeyNotFound
	})
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// ListRecords returns stored records in chronological order. A zero from or
// to leaves that end of the range open. A limit of 0 means no limit.
func (s *Store) ListRecords(from, to time.Time, limit int) ([]types.SleepRecord, error) {
	var records []types.SleepRecord

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixRecord)
		seek := prefix
		if !from.IsZero() {
			seek = recordDatePrefix(from)
		}

		// Records for the to date itself sort below this bound because
		// the hash suffix is hex.
		bound := string(recordDatePrefix(to)) + "\xff"

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}

			key := string(it.Item().Key())
			if !to.IsZero() && key > bound {
				break
			}

			err := it.Item().Value(func(val []byte) error {
				var rec types.SleepRecord
				if err := json.Unmarshal(val, &rec); err != nil {
					return nil // Skip malformed entries
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	return records, err
}

// CountRecords returns the number of stored records.
func (s *Store) CountRecords() (int64, error) {
	return s.countPrefix(prefixRecord)
}

// DeleteRecord removes all records for a date.
func (s *Store) DeleteRecord(date time.Time) error {
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)

		prefix := recordDatePrefix(date)
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// PutAssessment stores an assessment and indexes it by creation time.
func (s *Store) PutAssessment(a *assess.Assessment) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(assessmentKey(a.ID), data); err != nil {
			return err
		}
		return txn.Set(assessTimeKey(a.CreatedAt, a.ID), nil)
	})
}

// GetAssessment retrieves an assessment by ID.
func (s *Store) GetAssessment(id string) (*assess.Assessment, error) {
	var a assess.Assessment

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(assessmentKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &a)
		})
	})
	if err != nil {
		return nil, err
	}

	return &a, nil
}

// ListAssessments returns stored assessments, newest first.
// A limit of 0 means no limit.
func (s *Store) ListAssessments(limit int) ([]assess.Assessment, error) {
	var ids []string

	// The time index key encodes an inverted timestamp, so lexical
	// iteration order is newest first.
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixAssessTime)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(ids) >= limit {
				break
			}
			key := string(it.Item().Key())
			if i := strings.LastIndexByte(key, ':'); i >= 0 {
				ids = append(ids, key[i+1:])
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	results := make([]assess.Assessment, 0, len(ids))
	for _, id := range ids {
		a, err := s.GetAssessment(id)
		if err != nil {
			continue // Index may outlive a deleted assessment
		}
		results = append(results, *a)
	}
	return results, nil
}

// DeleteAssessment removes an assessment and its time index entry.
func (s *Store) DeleteAssessment(id string) error {
	a, err := s.GetAssessment(id)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(assessmentKey(id)); err != nil {
			return err
		}
		return txn.Delete(assessTimeKey(a.CreatedAt, id))
	})
}

// CountAssessments returns the number of stored assessments.
func (s *Store) CountAssessments() (int64, error) {
	return s.countPrefix(prefixAssessment)
}

// countPrefix counts keys under a prefix without fetching values.
func (s *Store) countPrefix(prefix string) (int64, error) {
	var count int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// recordKey builds the key for a sleep record from its date and marshaled
// content.
func recordKey(date time.Time, data []byte) []byte {
	h := fnv.New64a()
	h.Write(data)
	return []byte(fmt.Sprintf("%s%s:%016x", prefixRecord, date.Format(recordDateLayout), h.Sum64()))
}

// recordDatePrefix builds the key prefix shared by all records on a date.
func recordDatePrefix(date time.Time) []byte {
	return []byte(prefixRecord + date.Format(recordDateLayout) + ":")
}

// assessmentKey builds the primary key for an assessment.
func assessmentKey(id string) []byte {
	return []byte(prefixAssessment + id)
}

// assessTimeKey builds the time index key for an assessment. The timestamp
// is inverted so newer assessments sort first.
func assessTimeKey(createdAt time.Time, id string) []byte {
	inverted := uint64(1<<63-1) - uint64(createdAt.UnixNano())
	return []byte(fmt.Sprintf("%s%020d:%s", prefixAssessTime, inverted, id))
}
