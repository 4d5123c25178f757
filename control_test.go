package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPollWithoutMarker(t *testing.T) {
	dir := t.TempDir()
	c := NewControlListener(dir, "abc", nil, nil)
	if c.Poll() {
		t.Error("no marker, no shutdown")
	}
}

func TestPollActsOnMarker(t *testing.T) {
	dir := t.TempDir()
	registry := NewDirectory(filepath.Join(dir, "servers.json"))
	registry.Upsert(DirEntry{ID: "abc"})

	fired := false
	c := NewControlListener(dir, "abc", registry, func() { fired = true })

	if err := RequestShutdown(dir, "abc"); err != nil {
		t.Fatalf("write marker: %v", err)
	}
	if !c.Poll() {
		t.Fatal("expected shutdown on marker")
	}
	if !fired {
		t.Error("shutdown callback not invoked")
	}
	if _, err := os.Stat(c.MarkerPath()); !os.IsNotExist(err) {
		t.Error("marker should be consumed")
	}
	if got := registry.Snapshot(nil); len(got) != 0 {
		t.Errorf("directory entry should be removed, got %+v", got)
	}
}

func TestMarkerIsPerSession(t *testing.T) {
	dir := t.TempDir()
	c := NewControlListener(dir, "abc", nil, nil)

	if err := RequestShutdown(dir, "other"); err != nil {
		t.Fatalf("write marker: %v", err)
	}
	if c.Poll() {
		t.Error("a marker for another session must be ignored")
	}
	if _, err := os.Stat(filepath.Join(dir, "other"+shutdownSuffix)); err != nil {
		t.Error("the other session's marker must stay in place")
	}
}
