package store_test

import (
	"testing"
	"time"

	"github.com/somnolab/somno/pkg/daemon/store"
	"github.com/somnolab/somno/pkg/somno/types"
)

func TestSchemaGetSet(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	// Initially no schema
	if schema := s.GetSchema(); schema != nil {
		t.Errorf("Expected nil schema initially, got %+v", schema)
	}

	// Set schema
	now := time.Now()
	err = s.SetSchema(&store.Schema{
		Version:   2,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("SetSchema failed: %v", err)
	}

	// Get it back
	schema := s.GetSchema()
	if schema == nil {
		t.Fatal("Expected schema to exist")
	}
	if schema.Version != 2 {
		t.Errorf("Expected version 2, got %d", schema.Version)
	}
}

func TestNeedsMigration(t *testing.T) {
	t.Run("empty database", func(t *testing.T) {
		s, err := store.Open(t.TempDir())
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer s.Close()

		// Empty database doesn't need migration
		if s.NeedsMigration() {
			t.Error("Empty database should not need migration")
		}
	})

	t.Run("old database without schema", func(t *testing.T) {
		s, err := store.Open(t.TempDir())
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer s.Close()

		// Data without a schema marker means a v1 database
		if err := s.PutRecord(types.SleepRecord{Date: day(1), Duration: 7}); err != nil {
			t.Fatalf("PutRecord failed: %v", err)
		}

		if !s.NeedsMigration() {
			t.Error("Database with data but no schema should need migration")
		}
	})

	t.Run("current schema", func(t *testing.T) {
		s, err := store.Open(t.TempDir())
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer s.Close()

		err = s.SetSchema(&store.Schema{
			Version:   store.CurrentSchemaVersion,
			UpdatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("SetSchema failed: %v", err)
		}

		if s.NeedsMigration() {
			t.Error("Current schema should not need migration")
		}
	})
}
