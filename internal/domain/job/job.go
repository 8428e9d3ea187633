package job

import "time"

// Status describes where a job is in its lifecycle.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Terminal reports whether no further transition may leave this status.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// Target is the requested output kind.
type Target string

const (
	TargetMP4 Target = "mp4"
	TargetMP3 Target = "mp3"
)

// Valid reports whether the target is one the service can produce.
func (t Target) Valid() bool {
	return t == TargetMP4 || t == TargetMP3
}

// Extension returns the container extension including the dot.
func (t Target) Extension() string {
	switch t {
	case TargetMP3:
		return ".mp3"
	default:
		return ".mp4"
	}
}

// ContentType returns the MIME type served for the produced artifact.
func (t Target) ContentType() string {
	switch t {
	case TargetMP3:
		return "audio/mpeg"
	default:
		return "video/mp4"
	}
}

// Source identifies where the input media comes from.
type Source struct {
	// URL is set for remote jobs and empty for uploaded files.
	URL string `json:"url,omitempty"`
}

// Remote reports whether the job needs a fetch phase before encoding.
func (s Source) Remote() bool {
	return s.URL != ""
}

// Options carries optional quality parameters, immutable after creation.
type Options struct {
	Preset  string `json:"preset,omitempty"`
	Bitrate string `json:"bitrate,omitempty"`
}

// Job is one request to transform a source into a target artifact.
// The snapshot store owns the authoritative copy; everyone else works
// with value copies and writes back through the store.
type Job struct {
	ID         string    `json:"id"`
	Status     Status    `json:"status"`
	Progress   int       `json:"progress"`
	Source     Source    `json:"source"`
	InputPath  string    `json:"inputPath,omitempty"`
	OutputPath string    `json:"outputPath,omitempty"`
	Target     Target    `json:"target"`
	Options    Options   `json:"options"`
	Title      string    `json:"title,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Patch is a partial update merged into a stored job. Nil fields are
// left untouched.
type Patch struct {
	Status     *Status
	Progress   *int
	InputPath  *string
	OutputPath *string
	Title      *string
	Error      *string
}

// StatusPatch builds a patch that only moves the status.
func StatusPatch(s Status) Patch {
	return Patch{Status: &s}
}

// ProgressPatch builds a patch that only moves the progress value.
func ProgressPatch(p int) Patch {
	return Patch{Progress: &p}
}

// EncodeSpec is what the encode collaborator needs to know about one job.
type EncodeSpec struct {
	Target  Target
	Preset  string
	Bitrate string
}

// EncodeSpec builds the encode description from the job's immutable fields.
func (j Job) EncodeSpec() EncodeSpec {
	return EncodeSpec{Target: j.Target, Preset: j.Options.Preset, Bitrate: j.Options.Bitrate}
}

// SourceInfo is best-effort metadata about a remote source.
type SourceInfo struct {
	Title        string  `json:"title,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	ThumbnailURL string  `json:"thumbnail,omitempty"`
}
