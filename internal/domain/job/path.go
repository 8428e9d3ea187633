package job

import (
	"errors"
	"path"
	"strings"
)

var allowedUploadExts = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".webm": true,
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".m4a":  true,
}

// IsSupportedUploadExt reports whether an uploaded file extension is accepted.
func IsSupportedUploadExt(ext string) bool {
	return allowedUploadExts[strings.ToLower(strings.TrimSpace(ext))]
}

// ValidateUploadName checks an incoming upload file name and returns its
// normalized base name.
func ValidateUploadName(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", errors.New("invalid file name")
	}

	value = strings.ReplaceAll(value, "\\", "/")
	base := path.Base(path.Clean("/" + value))
	if base == "" || base == "." || base == "/" {
		return "", errors.New("invalid file name")
	}
	if !IsSupportedUploadExt(path.Ext(base)) {
		return "", errors.New("unsupported file type")
	}
	return base, nil
}

// DownloadFilename builds the attachment name for a finished job, derived
// from the source title when one is known and the job id otherwise.
func DownloadFilename(j Job) string {
	name := sanitizeFilename(j.Title)
	if name == "" {
		name = j.ID
	}
	return name + j.Target.Extension()
}

func sanitizeFilename(name string) string {
	safe := strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	return strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(`\/:*?"<>|`, r) {
			return -1
		}
		return r
	}, safe)
}
