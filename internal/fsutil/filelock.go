package fsutil

import (
	"os"
	"path/filepath"
	"strings"
)

// FileLock is an on-disk mutex keyed by name. Unlike sync.Mutex it
// serializes across separate OS processes sharing the same key, which an
// in-process mutex cannot do — e.g. two `gestalt-agent run` invocations
// for the same (project, agent) pair, each its own process.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock returns a lock backed by a file named key under dir,
// creating dir if it does not already exist.
func NewFileLock(dir, key string) (*FileLock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileLock{path: filepath.Join(dir, sanitizeLockKey(key)+".lock")}, nil
}

func sanitizeLockKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		default:
			return r
		}
	}, key)
}
