package store

import (
	"context"

	"github.com/qgate-dev/qgate/internal/model"
)

// Store defines the persistence operations for job records. It backs
// both the gateway simulator and the client-side submission journal.
type Store interface {
	CreateJob(ctx context.Context, j *model.Job) error
	GetJob(ctx context.Context, id string) (*model.Job, error)
	ListJobs(ctx context.Context, limit, offset int) ([]*model.Job, int, error)
	UpdateJobStatus(ctx context.Context, id, status string) error
	SetJobSamples(ctx context.Context, id string, samples []int) error
	CountByStatus(ctx context.Context) (map[string]int, error)
	Close() error
}
