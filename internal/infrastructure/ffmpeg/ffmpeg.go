package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"mediaconv/internal/domain/job"
)

const defaultAudioBitrate = "192k"

// Encoder wraps ffmpeg/ffprobe subprocess calls.
type Encoder struct{}

// NewEncoder creates the ffmpeg adapter.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Encode transcodes inputPath into outputPath and reports an integer
// percentage through onProgress. The output is written to a temp file and
// renamed only on success, so a partially written artifact never sits at
// the final path. Falls back to a progress-less run when the source
// duration cannot be probed.
func (e *Encoder) Encode(ctx context.Context, inputPath, outputPath string, spec job.EncodeSpec, onProgress func(int)) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}

	tmpPath := outputPath + ".tmp" + spec.Target.Extension()
	_ = os.Remove(tmpPath)

	duration, _ := probeDuration(ctx, inputPath)
	totalMs := int64(duration * 1000)

	args := []string{"-y", "-i", inputPath, "-sn"}
	if totalMs > 0 {
		args = append(args, "-progress", "pipe:1", "-nostats")
	}
	args = append(args, targetArgs(spec)...)
	args = append(args, tmpPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if totalMs > 0 {
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return err
		}
		if err := cmd.Start(); err != nil {
			return err
		}
		reportProgress(stdout, totalMs, onProgress)
		if err := cmd.Wait(); err != nil {
			_ = os.Remove(tmpPath)
			return fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
	} else {
		if err := cmd.Run(); err != nil {
			_ = os.Remove(tmpPath)
			return fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
	}

	if onProgress != nil {
		onProgress(100)
	}

	_ = os.Remove(outputPath)
	return os.Rename(tmpPath, outputPath)
}

func targetArgs(spec job.EncodeSpec) []string {
	bitrate := spec.Bitrate
	if bitrate == "" {
		bitrate = defaultAudioBitrate
	}

	if spec.Target == job.TargetMP3 {
		return []string{
			"-vn",
			"-c:a", "libmp3lame",
			"-b:a", bitrate,
			"-ar", "44100",
			"-f", "mp3",
		}
	}

	preset := spec.Preset
	if preset == "" {
		preset = "veryfast"
	}
	return []string{
		"-map", "0:v:0?", "-map", "0:a:0?",
		"-c:v", "libx264",
		"-preset", preset,
		"-crf", "20",
		"-c:a", "aac",
		"-ac", "2",
		"-b:a", bitrate,
		"-ar", "48000",
		"-f", "mp4",
		"-movflags", "+faststart",
	}
}

// reportProgress parses the key=value stream emitted by -progress pipe:1
// and forwards monotonically increasing percentages, capped at 99 until
// the process exits cleanly.
func reportProgress(stdout io.Reader, totalMs int64, onProgress func(int)) {
	scanner := bufio.NewScanner(stdout)
	lastProgress := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 || parts[0] != "out_time_ms" {
			continue
		}
		ms, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			continue
		}
		percent := int(float64(ms) / float64(totalMs) * 100)
		if percent > 99 {
			percent = 99
		}
		if percent > lastProgress {
			lastProgress = percent
			if onProgress != nil {
				onProgress(percent)
			}
		}
	}
}

func probeDuration(ctx context.Context, inputPath string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=nokey=1:noprint_wrappers=1",
		inputPath,
	}
	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	out, err := cmd.Output()
	if err != nil {
		return 0, err
	}
	value := strings.TrimSpace(string(out))
	if value == "" {
		return 0, fmt.Errorf("duration missing")
	}
	return strconv.ParseFloat(value, 64)
}
