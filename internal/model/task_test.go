package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDraftReset(t *testing.T) {
	d := Draft{Title: "t", Description: "d", DueDate: "2025-01-01", Stake: "1"}
	d.Reset()
	assert.Equal(t, NewDraft(), d)
	assert.Equal(t, DefaultStake, d.Stake)
}

func TestDraftMissing(t *testing.T) {
	assert.Equal(t, []string{"title", "description", "due date"}, NewDraft().Missing())

	d := Draft{Title: "t", Description: "d", DueDate: "2025-01-01", Stake: " "}
	assert.Equal(t, []string{"stake"}, d.Missing())

	d.Stake = "0.5"
	assert.Empty(t, d.Missing())
}

func TestStats(t *testing.T) {
	done, pending := Stats([]Task{{IsCompleted: true}, {}, {}})
	assert.Equal(t, 1, done)
	assert.Equal(t, 2, pending)
}
