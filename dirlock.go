package main

import (
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	lockRetryInterval = 20 * time.Millisecond
	lockStaleAfter    = 10 * time.Second
)

// ErrLockTimeout is returned when the cross-process lock could not be
// acquired in time. Callers degrade to best-effort rather than failing.
var ErrLockTimeout = errors.New("directory lock timeout")

// FileLock is a cross-process mutex backed by an exclusively created lock
// file next to the resource it guards. Every directory operation holds it
// for the whole read-modify-write cycle.
type FileLock struct {
	path string
}

// NewFileLock creates a lock guarding the given resource path
func NewFileLock(resource string) *FileLock {
	return &FileLock{path: resource + ".lock"}
}

// Acquire takes the lock, waiting up to timeout. A lock file older than
// lockStaleAfter is assumed abandoned by a dead process and broken.
func (l *FileLock) Acquire(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d %d\n", os.Getpid(), time.Now().Unix())
			f.Close()
			return nil
		}
		if !os.IsExist(err) {
			return err
		}
		if info, serr := os.Stat(l.path); serr == nil && time.Since(info.ModTime()) > lockStaleAfter {
			os.Remove(l.path)
			continue
		}
		if time.Now().After(deadline) {
			return ErrLockTimeout
		}
		time.Sleep(lockRetryInterval)
	}
}

// Release drops the lock
func (l *FileLock) Release() {
	os.Remove(l.path)
}
