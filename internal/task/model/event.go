package model

import (
	"ctfplatform/internal/realtime"
	"ctfplatform/internal/task/repository"
)

// NewCreateTaskEvent announces a new task to supervisors only.
func NewCreateTaskEvent(task *repository.Task) realtime.Event {
	return realtime.NewEvent(realtime.KindCreateTask, Preview(task), realtime.AudienceSupervisors)
}

// NewUpdateTaskEvent reaches teams and guests only once the task has left
// the initial state.
func NewUpdateTaskEvent(task *repository.Task) realtime.Event {
	if task.IsInitial() {
		return realtime.NewEvent(realtime.KindUpdateTask, Preview(task), realtime.AudienceSupervisors)
	}
	return realtime.NewEvent(realtime.KindUpdateTask, Preview(task), realtime.Audiences...)
}

func NewOpenTaskEvent(task *repository.Task) realtime.Event {
	return realtime.NewEvent(realtime.KindOpenTask, Preview(task), realtime.Audiences...)
}

func NewCloseTaskEvent(task *repository.Task) realtime.Event {
	return realtime.NewEvent(realtime.KindCloseTask, Preview(task), realtime.Audiences...)
}
