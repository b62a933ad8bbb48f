package duckdb

import (
	"os"
	"strconv"
	"time"
)

// FileFingerprint identifies a source file by size and modification time.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile fingerprints an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// fields renders the fingerprint as cache metadata entries.
func (f FileFingerprint) fields() map[string]string {
	return map[string]string{
		"source_size":    strconv.FormatInt(f.Size, 10),
		"source_modtime": f.ModTime.UTC().Format(time.RFC3339Nano),
	}
}
