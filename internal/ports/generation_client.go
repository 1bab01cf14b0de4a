package ports

import (
	"context"

	"github.com/itory/itory/internal/domain"
)

// JobStatusFetcher reads the current status of a generation job.
// It returns domain.ErrJobNotFound when the service no longer knows the job.
type JobStatusFetcher interface {
	Status(ctx context.Context, jobID string) (*domain.JobStatus, error)
}

// JobStarter creates generation jobs
type JobStarter interface {
	StartJob(ctx context.Context, subject string, style domain.ArtStyle) (string, error)
}

// StageDriver fetches stage options and submits stage choices.
// Stage numbers are one-based as the service expects them.
type StageDriver interface {
	Options(ctx context.Context, jobID string, stageNo int) ([]string, error)
	SubmitChoice(ctx context.Context, jobID string, stageNo int, choiceID, text string) error
}

// JobFinalizer requests assembly of the final artifact
type JobFinalizer interface {
	Finalize(ctx context.Context, jobID string) error
}

// GenerationClient is the composite interface of the remote generation service
type GenerationClient interface {
	JobStarter
	JobStatusFetcher
	StageDriver
	JobFinalizer
}
