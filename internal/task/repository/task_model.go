package repository

import "time"

// State is the persisted lifecycle state of a task.
type State int

const (
	StateInitial State = 1
	StateOpened  State = 2
	StateClosed  State = 3
)

// String renders the wire name of the state.
func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateOpened:
		return "opened"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the lifecycle states.
func (s State) Valid() bool {
	return s == StateInitial || s == StateOpened || s == StateClosed
}

// Task is a contest challenge.
type Task struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Hints         []string  `json:"hints"`
	Categories    []int64   `json:"categories"`
	Answers       []string  `json:"answers"`
	Value         int       `json:"value"`
	CaseSensitive bool      `json:"case_sensitive"`
	State         State     `json:"state"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (t *Task) IsInitial() bool { return t.State == StateInitial }
func (t *Task) IsOpened() bool  { return t.State == StateOpened }
func (t *Task) IsClosed() bool  { return t.State == StateClosed }

// IsEligible reports whether the task has been published.
func (t *Task) IsEligible() bool {
	return t.IsOpened() || t.IsClosed()
}

// HasCategory reports category membership.
func (t *Task) HasCategory(categoryID int64) bool {
	for _, id := range t.Categories {
		if id == categoryID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Hints = cloneSlice(t.Hints)
	cp.Categories = cloneSlice(t.Categories)
	cp.Answers = cloneSlice(t.Answers)
	return &cp
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// TaskContent is the editable part of a task.
type TaskContent struct {
	Description string
	Hints       []string
	Categories  []int64
	Answers     []string
	UpdatedAt   time.Time
}
