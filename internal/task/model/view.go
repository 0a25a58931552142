package model

import "ctfplatform/internal/task/repository"

// TaskPreview is the task as teams and guests see it: no answers and no
// answer-format hints.
type TaskPreview struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Hints       []string `json:"hints"`
	Categories  []int64  `json:"categories"`
	Value       int      `json:"value"`
	State       string   `json:"state"`
	CreatedAt   int64    `json:"createdAt"`
	UpdatedAt   int64    `json:"updatedAt"`
}

// TaskFull is the supervisor view.
type TaskFull struct {
	TaskPreview
	Answers       []string `json:"answers"`
	CaseSensitive bool     `json:"caseSensitive"`
}

// Preview projects a task without solution-revealing fields.
func Preview(task *repository.Task) TaskPreview {
	return TaskPreview{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Hints:       nonNil(task.Hints),
		Categories:  nonNil(task.Categories),
		Value:       task.Value,
		State:       task.State.String(),
		CreatedAt:   task.CreatedAt.UnixMilli(),
		UpdatedAt:   task.UpdatedAt.UnixMilli(),
	}
}

// Full projects every field of a task.
func Full(task *repository.Task) TaskFull {
	return TaskFull{
		TaskPreview:   Preview(task),
		Answers:       nonNil(task.Answers),
		CaseSensitive: task.CaseSensitive,
	}
}

// PreviewList projects a slice of tasks.
func PreviewList(tasks []*repository.Task) []TaskPreview {
	out := make([]TaskPreview, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, Preview(t))
	}
	return out
}

// FullList projects a slice of tasks for supervisors.
func FullList(tasks []*repository.Task) []TaskFull {
	out := make([]TaskFull, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, Full(t))
	}
	return out
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
