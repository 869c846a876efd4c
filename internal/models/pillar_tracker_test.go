package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPillarTrackerExhausted(t *testing.T) {
	tr := PillarTracker{SubPillarBase: 340000, LastIssued: 340000}
	assert.False(t, tr.Exhausted())

	tr.LastIssued = 340000 + PillarSpan - 1
	assert.False(t, tr.Exhausted())

	tr.LastIssued = 340000 + PillarSpan
	assert.True(t, tr.Exhausted())
}
