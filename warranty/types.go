// Package warranty implements the device pool reconciliation and
// warranty-cache synchronization pipeline: ingesting devices into the store,
// deciding which need a fresh lookup, fanning lookups out to manufacturer
// connectors, and writing resolved dates back to each device's source
// platform. Failures are always per-device; no single bad record or bad
// external call aborts a batch.
package warranty

import (
	"time"

	"warrantywatch/storage"
)

// SkipReason explains why a device produced no external call.
type SkipReason string

const (
	SkipMissingSerial SkipReason = "missing serial number"
	SkipCached        SkipReason = "warranty already cached"
	SkipNoTarget      SkipReason = "source platform has no write-back target"
	SkipCanceled      SkipReason = "batch canceled before dispatch"
)

// Result is the per-device outcome of a lookup or write-back attempt. It is
// the transport format between pipeline stages and the caller, never
// persisted on its own.
type Result struct {
	Serial       string               `json:"serial"`
	Manufacturer storage.Manufacturer `json:"manufacturer,omitempty"`

	StartDate time.Time `json:"start_date,omitempty"`
	EndDate   time.Time `json:"end_date,omitempty"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`

	// FromCache marks a result served from the store instead of a fresh
	// external call. Cached results are never written back.
	FromCache bool `json:"from_cache"`

	Skipped    bool       `json:"skipped"`
	SkipReason SkipReason `json:"skip_reason,omitempty"`

	WrittenBack bool `json:"written_back"`

	// Err carries a lookup failure, WriteBackErr a write-back failure.
	// Both are per-device and never escalate to the batch.
	Err          string `json:"error,omitempty"`
	WriteBackErr string `json:"write_back_error,omitempty"`
}

// Resolved reports whether the result carries usable warranty dates.
func (r *Result) Resolved() bool {
	return r.Err == "" && !r.Skipped && !r.EndDate.IsZero()
}

// Progress is reported after each device completes a pipeline stage.
// Completed/Total is monotonically non-decreasing within one batch.
type Progress struct {
	Stage     string `json:"stage"` // "lookup" or "writeback"
	Serial    string `json:"serial,omitempty"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// ProgressFunc receives progress updates. Callbacks run on pipeline
// goroutines and must not block.
type ProgressFunc func(Progress)
