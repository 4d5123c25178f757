package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// Entries not refreshed within this window are purged on the next read
	DirectoryStaleAfter = 45 * time.Second
	directoryLockWait   = 2 * time.Second
)

// DirEntry is one discoverable server instance in the shared registry
type DirEntry struct {
	ID             string    `json:"id"`
	TransportCode  string    `json:"code"`
	FriendlyName   string    `json:"name"`
	ServerType     string    `json:"type"`
	MaxPlayers     int       `json:"maxPlayers"`
	ScaleThreshold int       `json:"scaleAt"`
	Occupancy      int       `json:"occupancy"`
	SceneName      string    `json:"scene"`
	ExecutablePath string    `json:"exe"`
	LastUpdate     time.Time `json:"lastUpdate"`
}

// Directory is the file-backed registry of running server instances.
// Multiple processes share the same JSON document; every operation is a
// strict read-modify-write transaction under one coarse cross-process
// lock. Lock timeouts and corrupt content degrade to an empty directory —
// matchmaking finds no server, it never crashes.
type Directory struct {
	path string
	lock *FileLock
	now  func() time.Time // test hook
}

// NewDirectory opens the registry at the given backing path
func NewDirectory(path string) *Directory {
	return &Directory{
		path: path,
		lock: NewFileLock(path),
		now:  time.Now,
	}
}

// Upsert inserts or replaces the entry with the same id
func (d *Directory) Upsert(entry DirEntry) {
	entry.LastUpdate = d.now()
	d.transact(func(entries []DirEntry) ([]DirEntry, bool) {
		for i := range entries {
			if entries[i].ID == entry.ID {
				entries[i] = entry
				return entries, true
			}
		}
		return append(entries, entry), true
	})
}

// Remove deletes the entry with the given id
func (d *Directory) Remove(id string) {
	d.transact(func(entries []DirEntry) ([]DirEntry, bool) {
		for i := range entries {
			if entries[i].ID == id {
				return append(entries[:i], entries[i+1:]...), true
			}
		}
		return entries, false
	})
}

// Snapshot returns a filtered copy of the registry. Entries older than the
// staleness window are purged first, and the purge is persisted.
func (d *Directory) Snapshot(keep func(DirEntry) bool) []DirEntry {
	var out []DirEntry
	cutoff := d.now().Add(-DirectoryStaleAfter)
	d.transact(func(entries []DirEntry) ([]DirEntry, bool) {
		live := entries[:0]
		purged := false
		for _, e := range entries {
			if e.LastUpdate.Before(cutoff) {
				purged = true
				continue
			}
			live = append(live, e)
			if keep == nil || keep(e) {
				out = append(out, e)
			}
		}
		return live, purged
	})
	return out
}

// FriendlyName derives a human-readable name with the lowest unused
// positive numeric suffix for the given type among currently listed
// entries ("arena-1", "arena-2", ...).
func (d *Directory) FriendlyName(serverType string) string {
	used := make(map[int]bool)
	for _, e := range d.Snapshot(func(e DirEntry) bool { return e.ServerType == serverType }) {
		rest, ok := strings.CutPrefix(e.FriendlyName, serverType+"-")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > 0 {
			used[n] = true
		}
	}
	suffix := 1
	for used[suffix] {
		suffix++
	}
	return fmt.Sprintf("%s-%d", serverType, suffix)
}

// transact runs mutate over the decoded document under the cross-process
// lock, writing the document back when mutate reports a change
func (d *Directory) transact(mutate func([]DirEntry) ([]DirEntry, bool)) {
	if err := d.lock.Acquire(directoryLockWait); err != nil {
		log.Printf("directory: %v, proceeding with empty view", err)
		mutate(nil)
		return
	}
	defer d.lock.Release()

	entries := d.read()
	entries, changed := mutate(entries)
	if changed {
		d.write(entries)
	}
}

// read decodes the backing document; any failure is an empty directory
func (d *Directory) read() []DirEntry {
	raw, err := os.ReadFile(d.path)
	if err != nil {
		return nil
	}
	var entries []DirEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.Printf("directory: corrupt registry at %s, treating as empty", d.path)
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

// write rewrites the whole document
func (d *Directory) write(entries []DirEntry) {
	if entries == nil {
		entries = []DirEntry{}
	}
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		log.Printf("directory: encode: %v", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		log.Printf("directory: mkdir: %v", err)
		return
	}
	if err := os.WriteFile(d.path, raw, 0o644); err != nil {
		log.Printf("directory: write: %v", err)
	}
}
