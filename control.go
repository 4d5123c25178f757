package main

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

const (
	shutdownSuffix      = ".shutdown"
	controlPollInterval = 2 * time.Second
)

// ControlListener polls the control directory for a shutdown marker named
// after the hosted session. This is the only supported remote-shutdown
// path: on detection the marker is deleted, the directory entry removed,
// and the shutdown callback invoked to tear networking down.
type ControlListener struct {
	controlDir string
	sessionID  string
	directory  *Directory
	shutdown   func()
	stop       chan struct{}
}

// NewControlListener creates a listener for the given session
func NewControlListener(controlDir, sessionID string, directory *Directory, shutdown func()) *ControlListener {
	return &ControlListener{
		controlDir: controlDir,
		sessionID:  sessionID,
		directory:  directory,
		shutdown:   shutdown,
		stop:       make(chan struct{}),
	}
}

// MarkerPath returns the file whose presence triggers shutdown. Content is
// informational only.
func (c *ControlListener) MarkerPath() string {
	return filepath.Join(c.controlDir, c.sessionID+shutdownSuffix)
}

// Run polls until the marker appears or Stop is called
func (c *ControlListener) Run() {
	ticker := time.NewTicker(controlPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if c.Poll() {
				return
			}
		case <-c.stop:
			return
		}
	}
}

// Poll checks once; returns true when the shutdown was triggered
func (c *ControlListener) Poll() bool {
	marker := c.MarkerPath()
	if _, err := os.Stat(marker); err != nil {
		return false
	}
	log.Printf("control: shutdown marker found for session %s", c.sessionID)
	os.Remove(marker)
	if c.directory != nil {
		c.directory.Remove(c.sessionID)
	}
	if c.shutdown != nil {
		c.shutdown()
	}
	return true
}

// Stop ends the polling loop
func (c *ControlListener) Stop() {
	close(c.stop)
}

// RequestShutdown writes the marker another process's listener will act
// on. Used by operator tooling; the content is a timestamp and is ignored
// beyond existence.
func RequestShutdown(controlDir, sessionID string) error {
	if err := os.MkdirAll(controlDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(controlDir, sessionID+shutdownSuffix)
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)+"\n"), 0o644)
}
