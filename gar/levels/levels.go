// Package levels loads and caches the reference-level table of the address
// registry (level code -> level metadata).
package levels

import "time"

// ReferenceLevel describes one tier of the address hierarchy.
type ReferenceLevel struct {
	Level      int
	Name       string
	ShortName  string
	StartDate  time.Time
	EndDate    time.Time // zero when open-ended
	UpdateDate time.Time
	IsActive   bool
}

// Table maps level code to its metadata. A load replaces the table
// wholesale; there are no partial updates.
type Table map[int]ReferenceLevel
