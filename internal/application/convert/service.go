package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"mediaconv/internal/domain/job"

	"github.com/google/uuid"
)

var (
	// ErrUnknownTarget is returned for targets the service cannot produce.
	ErrUnknownTarget = errors.New("convert: unknown target format")
	// ErrUploadNotFound is returned when a job references a missing upload.
	ErrUploadNotFound = errors.New("convert: upload not found")
)

// Dirs holds the filesystem roots the service works in. Uploads receives
// client files, Work holds fetched remote media, Output holds finished
// artifacts.
type Dirs struct {
	Uploads string
	Work    string
	Output  string
}

// EnsureDirs creates the filesystem roots.
func (d Dirs) EnsureDirs() error {
	for _, dir := range []string{d.Uploads, d.Work, d.Output} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// Service drives conversion jobs: it creates store records, runs each job
// in its own supervised goroutine through the fetch and encode phases,
// and serves finished artifacts.
type Service struct {
	store   JobStore
	fetcher Fetcher
	encoder Encoder
	logger  *log.Logger
	dirs    Dirs

	// slots bounds the number of jobs in their fetch/encode phases so
	// concurrent transcodes cannot exhaust the machine.
	slots chan struct{}
}

// NewService creates the conversion use-case service with injected ports.
func NewService(store JobStore, fetcher Fetcher, encoder Encoder, logger *log.Logger, dirs Dirs, maxActive int) *Service {
	if maxActive < 1 {
		maxActive = 1
	}
	return &Service{
		store:   store,
		fetcher: fetcher,
		encoder: encoder,
		logger:  logger,
		dirs:    dirs,
		slots:   make(chan struct{}, maxActive),
	}
}

// SaveUpload validates and stores an incoming source file, returning the
// upload id used to create a job against it.
func (s *Service) SaveUpload(name string, r io.Reader) (string, error) {
	base, err := job.ValidateUploadName(name)
	if err != nil {
		return "", err
	}

	id := uuid.New().String() + "_" + base
	file, err := os.Create(filepath.Join(s.dirs.Uploads, id))
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := io.Copy(file, r); err != nil {
		_ = os.Remove(file.Name())
		return "", err
	}
	return id, nil
}

// CreateLocal creates a job for an already uploaded file and starts
// driving it. The upload becomes the job's intermediate input and is
// deleted once the job reaches a terminal state.
func (s *Service) CreateLocal(uploadID string, target job.Target, opts job.Options) (job.Job, error) {
	if !target.Valid() {
		return job.Job{}, ErrUnknownTarget
	}

	inputPath := filepath.Join(s.dirs.Uploads, filepath.Base(uploadID))
	if info, err := os.Stat(inputPath); err != nil || info.IsDir() {
		return job.Job{}, ErrUploadNotFound
	}

	j, err := s.store.Create(job.Job{
		InputPath: inputPath,
		Target:    target,
		Options:   opts,
		Title:     uploadTitle(uploadID),
	})
	if err != nil {
		return job.Job{}, err
	}

	s.spawn(j)
	return j, nil
}

// CreateRemote creates a job for a remote video reference and starts
// driving it. Source metadata is queried best-effort: a metadata failure
// never fails job creation.
func (s *Service) CreateRemote(ctx context.Context, url string, target job.Target, opts job.Options) (job.Job, job.SourceInfo, error) {
	if !target.Valid() {
		return job.Job{}, job.SourceInfo{}, ErrUnknownTarget
	}

	info, err := s.fetcher.Metadata(ctx, url)
	if err != nil {
		s.logger.Printf("convert: metadata query failed for %s: %v", url, err)
		info = job.SourceInfo{}
	}

	j, err := s.store.Create(job.Job{
		Source:  job.Source{URL: url},
		Target:  target,
		Options: opts,
		Title:   info.Title,
	})
	if err != nil {
		return job.Job{}, job.SourceInfo{}, err
	}

	s.spawn(j)
	return j, info, nil
}

// Status returns the current record for polling.
func (s *Service) Status(id string) (job.Job, bool) {
	return s.store.Get(id)
}

// spawn starts the single execution that drives a job to a terminal
// state. Panics are contained into the error status so a collaborator
// bug never takes the process down.
func (s *Service) spawn(j job.Job) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Printf("convert: job %s panicked: %v", j.ID, r)
				s.fail(j.ID, fmt.Sprintf("internal error: %v", r))
			}
		}()
		s.slots <- struct{}{}
		defer func() { <-s.slots }()
		s.run(j)
	}()
}

func (s *Service) run(j job.Job) {
	running := job.StatusRunning
	zero := 0
	s.store.Update(j.ID, job.Patch{Status: &running, Progress: &zero})

	remote := j.Source.Remote()
	inputPath := j.InputPath

	if remote {
		inputPath = filepath.Join(s.dirs.Work, j.ID+".src")
		s.store.Update(j.ID, job.Patch{InputPath: &inputPath})

		err := s.fetcher.Fetch(context.Background(), j.Source.URL, inputPath, func(pct float64) {
			s.store.Update(j.ID, job.ProgressPatch(job.Compose(job.PhaseFetch, pct)))
		})
		if err != nil {
			s.logger.Printf("convert: fetch failed for job %s: %v", j.ID, err)
			s.removeFile(inputPath)
			_, msg := job.ClassifyFetch(err)
			s.fail(j.ID, msg)
			return
		}

		// Collaborators do not always report a clean 100%; pin the scale
		// at the phase boundary so encode progress starts from 50.
		s.store.Update(j.ID, job.ProgressPatch(50))
	}

	outputPath := filepath.Join(s.dirs.Output, j.ID+j.Target.Extension())
	s.store.Update(j.ID, job.Patch{OutputPath: &outputPath})

	err := s.encoder.Encode(context.Background(), inputPath, outputPath, j.EncodeSpec(), func(pct int) {
		if remote {
			pct = job.Compose(job.PhaseEncode, float64(pct))
		}
		s.store.Update(j.ID, job.ProgressPatch(pct))
	})
	if err != nil {
		s.logger.Printf("convert: encode failed for job %s: %v", j.ID, err)
		s.removeFile(inputPath)
		s.removeFile(outputPath)
		_, msg := job.ClassifyEncode(err)
		s.fail(j.ID, msg)
		return
	}

	s.removeFile(inputPath)

	done := job.StatusDone
	full := 100
	s.store.Update(j.ID, job.Patch{Status: &done, Progress: &full})
	s.logger.Printf("convert: job %s finished", j.ID)
}

func (s *Service) fail(id, msg string) {
	failed := job.StatusError
	s.store.Update(id, job.Patch{Status: &failed, Error: &msg})
}

// removeFile is best-effort cleanup of an intermediate artifact; a
// cleanup error never fails the job.
func (s *Service) removeFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Printf("convert: cleanup of %s failed: %v", path, err)
	}
}

// uploadTitle recovers the original file name from an upload id of the
// form "<uuid>_<name>.<ext>".
func uploadTitle(uploadID string) string {
	base := filepath.Base(uploadID)
	if _, rest, ok := strings.Cut(base, "_"); ok && rest != "" {
		base = rest
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
