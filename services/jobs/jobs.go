package jobs

import (
	"context"
	"time"

	"quizsolver-backend/services/solver"
)

type Status string

const (
	// registered but its goroutine hasn't started yet
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	// reached a terminal solver result, held in Result
	StatusDone Status = "done"
	// the run goroutine panicked, Panic holds the recovered value
	StatusPanicked Status = "panicked"
)

type Job struct {
	Id        string         `json:"id"`
	Email     string         `json:"email"`
	Url       string         `json:"url"`
	Status    Status         `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	StartedAt *time.Time     `json:"started_at,omitempty"`
	EndedAt   *time.Time     `json:"ended_at,omitempty"`
	Result    *solver.Result `json:"result,omitempty"`
	Panic     string         `json:"panic,omitempty"`
}

// Notifier is told about every job that reaches a terminal status.
type Notifier interface {
	NotifyJobDone(ctx context.Context, job Job) error
}
