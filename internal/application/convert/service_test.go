package convert

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"mediaconv/internal/domain/job"
	"mediaconv/internal/infrastructure/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStore wraps the real snapshot store and records every progress
// value written through it, so tests can assert on the sequence observers
// would see.
type recordingStore struct {
	JobStore

	mu       sync.Mutex
	progress []int
}

func (r *recordingStore) Update(id string, patch job.Patch) {
	if patch.Progress != nil {
		r.mu.Lock()
		r.progress = append(r.progress, *patch.Progress)
		r.mu.Unlock()
	}
	r.JobStore.Update(id, patch)
}

func (r *recordingStore) sequence() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.progress...)
}

type stubFetcher struct {
	info        job.SourceInfo
	metadataErr error
	fetchErr    error
	reports     []float64
}

func (f *stubFetcher) Metadata(_ context.Context, _ string) (job.SourceInfo, error) {
	return f.info, f.metadataErr
}

func (f *stubFetcher) Fetch(_ context.Context, _, destPath string, onProgress func(float64)) error {
	if f.fetchErr != nil {
		return f.fetchErr
	}
	if err := os.WriteFile(destPath, []byte("fetched media"), 0o644); err != nil {
		return err
	}
	for _, pct := range f.reports {
		onProgress(pct)
	}
	return nil
}

type stubEncoder struct {
	err          error
	leavePartial bool
	panics       bool
	reports      []int

	// gate, when set, holds the encode open until closed.
	gate chan struct{}
}

func (e *stubEncoder) Encode(_ context.Context, _, outputPath string, _ job.EncodeSpec, onProgress func(int)) error {
	if e.panics {
		panic("encoder exploded")
	}
	if e.gate != nil {
		<-e.gate
	}
	if e.err != nil {
		if e.leavePartial {
			_ = os.WriteFile(outputPath, []byte("partial"), 0o644)
		}
		return e.err
	}
	for _, pct := range e.reports {
		onProgress(pct)
	}
	return os.WriteFile(outputPath, []byte("encoded artifact"), 0o644)
}

type fixture struct {
	service *Service
	store   *recordingStore
	dirs    Dirs
}

func newFixture(t *testing.T, fetcher Fetcher, encoder Encoder) *fixture {
	t.Helper()
	root := t.TempDir()
	logger := log.New(os.Stderr, "", 0)

	dirs := Dirs{
		Uploads: root + "/uploads",
		Work:    root + "/work",
		Output:  root + "/output",
	}
	require.NoError(t, dirs.EnsureDirs())

	inner := snapshot.NewStore(root+"/jobs", logger)
	require.NoError(t, inner.Load())
	store := &recordingStore{JobStore: inner}

	return &fixture{
		service: NewService(store, fetcher, encoder, logger, dirs, 2),
		store:   store,
		dirs:    dirs,
	}
}

func (f *fixture) waitTerminal(t *testing.T, id string) job.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if j, ok := f.store.Get(id); ok && j.Status.Terminal() {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", id)
	return job.Job{}
}

func (f *fixture) saveUpload(t *testing.T, name, content string) string {
	t.Helper()
	id, err := f.service.SaveUpload(name, strings.NewReader(content))
	require.NoError(t, err)
	return id
}

func distinct(seq []int) []int {
	var out []int
	for _, v := range seq {
		if len(out) == 0 || out[len(out)-1] != v {
			out = append(out, v)
		}
	}
	return out
}

func TestLocalJob_RawEncoderProgress(t *testing.T) {
	encoder := &stubEncoder{reports: []int{0, 25, 50, 75, 100}}
	f := newFixture(t, &stubFetcher{}, encoder)

	uploadID := f.saveUpload(t, "song.wav", "pcm bytes")
	created, err := f.service.CreateLocal(uploadID, job.TargetMP3, job.Options{Bitrate: "256k"})
	require.NoError(t, err)

	final := f.waitTerminal(t, created.ID)
	assert.Equal(t, job.StatusDone, final.Status)
	assert.Equal(t, 100, final.Progress)
	assert.Equal(t, []int{0, 25, 50, 75, 100}, distinct(f.store.sequence()))

	// Input is an intermediate artifact, deleted after success.
	_, statErr := os.Stat(final.InputPath)
	assert.True(t, os.IsNotExist(statErr))
	assert.FileExists(t, final.OutputPath)
}

func TestRemoteJob_ComposedProgress(t *testing.T) {
	fetcher := &stubFetcher{reports: []float64{0, 50, 100}}
	encoder := &stubEncoder{reports: []int{0, 50, 100}}
	f := newFixture(t, fetcher, encoder)

	created, _, err := f.service.CreateRemote(context.Background(), "https://example.com/v/abc", job.TargetMP4, job.Options{})
	require.NoError(t, err)

	final := f.waitTerminal(t, created.ID)
	assert.Equal(t, job.StatusDone, final.Status)
	assert.Equal(t, []int{0, 25, 50, 75, 100}, distinct(f.store.sequence()))

	seq := f.store.sequence()
	for i := 1; i < len(seq); i++ {
		assert.GreaterOrEqual(t, seq[i], seq[i-1], "progress must never decrease")
	}
}

func TestRemoteJob_MetadataFailureDoesNotFailCreation(t *testing.T) {
	fetcher := &stubFetcher{metadataErr: errors.New("metadata backend down"), reports: []float64{100}}
	f := newFixture(t, fetcher, &stubEncoder{reports: []int{100}})

	created, info, err := f.service.CreateRemote(context.Background(), "https://example.com/v/abc", job.TargetMP4, job.Options{})
	require.NoError(t, err)
	assert.Empty(t, info.Title)

	final := f.waitTerminal(t, created.ID)
	assert.Equal(t, job.StatusDone, final.Status)
}

func TestEncodeFailure_CleansPartialOutput(t *testing.T) {
	encoder := &stubEncoder{err: errors.New("ffmpeg failed: invalid codec"), leavePartial: true}
	f := newFixture(t, &stubFetcher{}, encoder)

	uploadID := f.saveUpload(t, "clip.mov", "frames")
	created, err := f.service.CreateLocal(uploadID, job.TargetMP4, job.Options{})
	require.NoError(t, err)

	final := f.waitTerminal(t, created.ID)
	assert.Equal(t, job.StatusError, final.Status)
	assert.Contains(t, final.Error, "invalid codec")

	_, statErr := os.Stat(final.OutputPath)
	assert.True(t, os.IsNotExist(statErr), "partial output must be removed")
	_, statErr = os.Stat(final.InputPath)
	assert.True(t, os.IsNotExist(statErr), "input must be removed")
}

func TestFetchFailure_ClassifiedForUsers(t *testing.T) {
	fetcher := &stubFetcher{fetchErr: errors.New("this video is private")}
	f := newFixture(t, fetcher, &stubEncoder{})

	created, _, err := f.service.CreateRemote(context.Background(), "https://example.com/v/abc", job.TargetMP4, job.Options{})
	require.NoError(t, err)

	final := f.waitTerminal(t, created.ID)
	assert.Equal(t, job.StatusError, final.Status)
	assert.Equal(t, "source is unavailable (private, deleted, or region-restricted)", final.Error)
}

func TestCollaboratorPanic_ContainedIntoErrorStatus(t *testing.T) {
	f := newFixture(t, &stubFetcher{}, &stubEncoder{panics: true})

	uploadID := f.saveUpload(t, "clip.mkv", "frames")
	created, err := f.service.CreateLocal(uploadID, job.TargetMP4, job.Options{})
	require.NoError(t, err)

	final := f.waitTerminal(t, created.ID)
	assert.Equal(t, job.StatusError, final.Status)
	assert.Contains(t, final.Error, "internal error")
}

func TestCreateLocal_Validation(t *testing.T) {
	f := newFixture(t, &stubFetcher{}, &stubEncoder{})

	_, err := f.service.CreateLocal("nope.mp4", job.Target("wav"), job.Options{})
	assert.ErrorIs(t, err, ErrUnknownTarget)

	_, err = f.service.CreateLocal("missing.mp4", job.TargetMP4, job.Options{})
	assert.ErrorIs(t, err, ErrUploadNotFound)
}

func TestSaveUpload_RejectsUnsupportedExtension(t *testing.T) {
	f := newFixture(t, &stubFetcher{}, &stubEncoder{})

	_, err := f.service.SaveUpload("malware.exe", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestLocalJob_TitleFromUploadName(t *testing.T) {
	f := newFixture(t, &stubFetcher{}, &stubEncoder{reports: []int{100}})

	uploadID := f.saveUpload(t, "vacation video.mp4", "frames")
	created, err := f.service.CreateLocal(uploadID, job.TargetMP3, job.Options{})
	require.NoError(t, err)

	assert.Equal(t, "vacation video", created.Title)
	final := f.waitTerminal(t, created.ID)
	assert.Equal(t, fmt.Sprintf("vacation_video%s", job.TargetMP3.Extension()), job.DownloadFilename(final))
}
