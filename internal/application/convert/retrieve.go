package convert

import (
	"errors"
	"os"

	"mediaconv/internal/domain/job"
)

var (
	// ErrNotFound is returned when no record exists for the id.
	ErrNotFound = errors.New("convert: job not found")
	// ErrNotReady is returned when the job exists but its artifact cannot
	// be served yet (or anymore).
	ErrNotReady = errors.New("convert: job not ready")
)

// Result is an open artifact ready to stream to the client. The caller
// owns the reader and must close it.
type Result struct {
	Reader      *os.File
	Size        int64
	ContentType string
	Filename    string
}

// Retrieve opens a finished job's artifact for download. The file is
// re-opened on every call; repeated retrieval is supported until the
// retention sweeper reclaims the artifact. Retrieval never mutates the
// job record.
func (s *Service) Retrieve(id string) (*Result, error) {
	j, ok := s.store.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	if j.Status != job.StatusDone || j.OutputPath == "" {
		return nil, ErrNotReady
	}

	file, err := os.Open(j.OutputPath)
	if err != nil {
		return nil, ErrNotReady
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, ErrNotReady
	}

	return &Result{
		Reader:      file,
		Size:        info.Size(),
		ContentType: j.Target.ContentType(),
		Filename:    job.DownloadFilename(j),
	}, nil
}
