package main

import (
	"os"
	"time"
)

const heartbeatInterval = 5 * time.Second

// Session is the one hosted match of this server process, advertised into
// the shared directory while it runs
type Session struct {
	ID   string
	Name string
	Game *Game

	cfg       Config
	directory *Directory
	stop      chan struct{}
}

// HostSession creates the hosted match, allocates its friendly name, and
// publishes the directory entry
func HostSession(cfg Config, directory *Directory, db *DB) *Session {
	s := &Session{
		ID:        GenerateID(8),
		Game:      NewGame(cfg.SceneName, cfg.MaxPlayers, DefaultMatchRules(), db),
		cfg:       cfg,
		directory: directory,
		stop:      make(chan struct{}),
	}
	s.Name = directory.FriendlyName(cfg.ServerType)
	directory.Upsert(s.entry())
	go s.Game.Run()
	return s
}

// entry builds the current directory record
func (s *Session) entry() DirEntry {
	exe, _ := os.Executable()
	return DirEntry{
		ID:             s.ID,
		TransportCode:  s.cfg.ListenAddr,
		FriendlyName:   s.Name,
		ServerType:     s.cfg.ServerType,
		MaxPlayers:     s.cfg.MaxPlayers,
		ScaleThreshold: s.cfg.ScaleThreshold,
		Occupancy:      s.Game.PlayerCount(),
		SceneName:      s.cfg.SceneName,
		ExecutablePath: exe,
	}
}

// Heartbeat refreshes the directory entry every few seconds so the entry
// never goes stale while we are alive
func (s *Session) Heartbeat() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.directory.Upsert(s.entry())
		case <-s.stop:
			return
		}
	}
}

// Close stops the session: heartbeat, game loop, directory entry
func (s *Session) Close() {
	close(s.stop)
	s.Game.Stop()
	s.directory.Remove(s.ID)
}
