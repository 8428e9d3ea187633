package youtube

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"mediaconv/internal/domain/job"

	"github.com/kkdai/youtube/v2"
)

// Fetcher resolves a remote video reference and downloads the media to
// local storage. It is an opaque collaborator: the core only sees the
// progress callback and the final error.
type Fetcher struct {
	client youtube.Client
}

// NewFetcher creates the youtube adapter.
func NewFetcher() *Fetcher {
	return &Fetcher{}
}

// Metadata answers the auxiliary metadata query for a remote reference.
func (f *Fetcher) Metadata(ctx context.Context, reference string) (job.SourceInfo, error) {
	video, err := f.client.GetVideoContext(ctx, reference)
	if err != nil {
		return job.SourceInfo{}, err
	}

	info := job.SourceInfo{
		Title:    video.Title,
		Duration: video.Duration.Seconds(),
	}
	if len(video.Thumbnails) > 0 {
		best := video.Thumbnails[0]
		for _, t := range video.Thumbnails[1:] {
			if t.Width > best.Width {
				best = t
			}
		}
		info.ThumbnailURL = best.URL
	}
	return info, nil
}

// Fetch downloads the best combined audio+video format to destPath,
// reporting byte-based progress in [0,100). The encode phase transcodes
// afterwards, so no quality selection beyond "best with audio" happens
// here.
func (f *Fetcher) Fetch(ctx context.Context, reference, destPath string, onProgress func(float64)) error {
	video, err := f.client.GetVideoContext(ctx, reference)
	if err != nil {
		return fmt.Errorf("resolve video: %w", err)
	}

	format := pickFormat(video.Formats)
	if format == nil {
		return fmt.Errorf("no downloadable format with audio for %s", video.ID)
	}

	stream, size, err := f.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer stream.Close()

	if size <= 0 {
		size = format.ContentLength
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	file, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer file.Close()

	var written int64
	buf := make([]byte, 32*1024)
	for {
		n, readErr := stream.Read(buf)
		if n > 0 {
			if _, err := file.Write(buf[:n]); err != nil {
				return err
			}
			written += int64(n)
			if size > 0 && onProgress != nil {
				pct := float64(written) / float64(size) * 100
				if pct > 99.9 {
					pct = 99.9
				}
				onProgress(pct)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return readErr
		}
	}

	if info, err := os.Stat(destPath); err != nil || info.Size() == 0 {
		return fmt.Errorf("downloaded file is empty")
	}
	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

// pickFormat prefers the highest-resolution format that already carries an
// audio track, so a single download yields an encodable input.
func pickFormat(formats youtube.FormatList) *youtube.Format {
	withAudio := formats.WithAudioChannels()
	var best *youtube.Format
	for i := range withAudio {
		f := &withAudio[i]
		if best == nil || f.Height > best.Height {
			best = f
		}
	}
	return best
}
