package model

import "strings"

// DefaultStake is the stake a fresh draft starts with.
const DefaultStake = "0.01"

// Task is a read-only snapshot of one task held by the contract.
// Stake is already formatted in native-currency units.
type Task struct {
	ID          uint64 `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"created_at"`
	CompletedAt int64  `json:"completed_at"`
	DueDate     int64  `json:"due_date"`
	Stake       string `json:"stake"`
	IsCompleted bool   `json:"is_completed"`
	Owner       string `json:"owner"`
}

// Draft is the task form state.
type Draft struct {
	Title       string
	Description string
	DueDate     string // YYYY-MM-DD
	Stake       string
}

// NewDraft returns a draft holding the form defaults.
func NewDraft() Draft {
	return Draft{Stake: DefaultStake}
}

// Reset puts the draft back to its defaults.
func (d *Draft) Reset() { *d = NewDraft() }

// Missing lists the names of required fields left blank.
func (d Draft) Missing() []string {
	var out []string
	if strings.TrimSpace(d.Title) == "" {
		out = append(out, "title")
	}
	if strings.TrimSpace(d.Description) == "" {
		out = append(out, "description")
	}
	if strings.TrimSpace(d.DueDate) == "" {
		out = append(out, "due date")
	}
	if strings.TrimSpace(d.Stake) == "" {
		out = append(out, "stake")
	}
	return out
}

// Stats counts completed and pending tasks.
func Stats(tasks []Task) (done, pending int) {
	for _, t := range tasks {
		if t.IsCompleted {
			done++
		} else {
			pending++
		}
	}
	return
}
