package models

import (
	"time"
)

// PillarSpan is the number of code numbers a single partition can issue.
// A partition with base B owns the range B+1 .. B+PillarSpan.
const PillarSpan = 9999

// PillarTracker records the high-water mark of one partition of the code
// space. The partition is identified by its base value (the two leading
// digits followed by four zeros). LastIssued only moves forward, under a
// row-level exclusive lock, so numbers within a partition never repeat.
type PillarTracker struct {
	SubPillarBase int
	LastIssued    int
	UpdatedAt     time.Time
}

// Exhausted reports whether the partition has no free numbers left.
func (t *PillarTracker) Exhausted() bool {
	return t.LastIssued >= t.SubPillarBase+PillarSpan
}
