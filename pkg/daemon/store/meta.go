package store

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const metaKey = "m:__counts__"

// DataMeta holds cached counts so status queries avoid full scans.
type DataMeta struct {
	Records     int64     `json:"records"`
	Assessments int64     `json:"assessments"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GetDataMeta returns the cached counts, or nil if not set.
func (s *Store) GetDataMeta() *DataMeta {
	var meta *DataMeta

	_ = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			meta = &DataMeta{}
			return json.Unmarshal(val, meta)
		})
	})

	return meta
}

// SetDataMeta stores the cached counts.
func (s *Store) SetDataMeta(meta *DataMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(metaKey), data)
	})
}

// RefreshDataMeta recounts records and assessments and stores the result.
func (s *Store) RefreshDataMeta() (*DataMeta, error) {
	records, err := s.CountRecords()
	if err != nil {
		return nil, err
	}
	assessments, err := s.CountAssessments()
	if err != nil {
		return nil, err
	}

	meta := &DataMeta{
		Records:     records,
		Assessments: assessments,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := s.SetDataMeta(meta); err != nil {
		return nil, err
	}
	return meta, nil
}
