package convert

import (
	"context"

	"mediaconv/internal/domain/job"
)

// JobStore is the application port for job record ownership. Every
// observer of job state goes through it; nobody mutates a cached copy.
type JobStore interface {
	Create(seed job.Job) (job.Job, error)
	Get(id string) (job.Job, bool)
	Update(id string, patch job.Patch)
	Remove(id string)
	ListAll() []job.Job
}

// Fetcher is the application port for the remote-fetch collaborator.
// Its internal download strategies are opaque to the core.
type Fetcher interface {
	Metadata(ctx context.Context, reference string) (job.SourceInfo, error)
	Fetch(ctx context.Context, reference, destPath string, onProgress func(float64)) error
}

// Encoder is the application port for the media transformation engine.
type Encoder interface {
	Encode(ctx context.Context, inputPath, outputPath string, spec job.EncodeSpec, onProgress func(int)) error
}
