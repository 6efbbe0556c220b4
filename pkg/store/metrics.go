package store

import (
	"io/fs"
	"path/filepath"
)

// Stats is a compact view of store health for telemetry and the inspect
// tool.
type Stats struct {
	DiskBytes uint64
	Threads   int
}

// GetStats returns best-effort store statistics: total on-disk size of the
// DB directory and the number of stored threads.
func GetStats() Stats {
	var s Stats
	if db == nil || dbPath == "" {
		return s
	}
	_ = filepath.WalkDir(dbPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			s.DiskBytes += uint64(fi.Size())
		}
		return nil
	})
	if threads, err := ListThreads(); err == nil {
		s.Threads = len(threads)
	}
	return s
}
