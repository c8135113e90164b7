// Package output provides formatters for displaying assessments and
// analysis reports in various output formats (pretty, plain, json, yaml,
// etc.).
//
// The package uses a registry pattern to allow registration of multiple
// formatter implementations that can be selected at runtime.
//
// Basic usage:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/somnolab/somno/pkg/somno/analysis"
	"github.com/somnolab/somno/pkg/somno/assess"
	"github.com/somnolab/somno/pkg/somno/etl"
	"github.com/somnolab/somno/pkg/somno/types"
)

// Result contains the complete output data for formatting. Commands populate
// the sections relevant to them and leave the rest nil; formatters render
// only what is present.
type Result struct {
	// Assessment is a single assessment result, set by the assess command.
	Assessment *assess.Assessment `json:"assessment,omitempty" yaml:"assessment,omitempty"`

	// History contains stored assessments, newest first.
	History []assess.Assessment `json:"history,omitempty" yaml:"history,omitempty"`

	// Report is a full analysis report over a dataset.
	Report *analysis.Report `json:"report,omitempty" yaml:"report,omitempty"`

	// Quality is the data quality summary from an ETL run.
	Quality *etl.QualityReport `json:"quality,omitempty" yaml:"quality,omitempty"`

	// Records contains sleep records, for record listings.
	Records []types.SleepRecord `json:"records,omitempty" yaml:"records,omitempty"`

	// DaemonUp indicates whether the somno daemon is running.
	DaemonUp bool `json:"daemon_up" yaml:"daemon_up"`

	// Warnings contains any warning messages generated during the operation.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	// It returns an error if formatting fails.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
// It returns an error if the formatter is not found.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
