package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync"
)

// ScaleMonitor watches the hosted session's occupancy and launches one
// sibling server process when the configured threshold is reached. The
// latch is one-shot: an instance never launches a second sibling for its
// lifetime, even if occupancy later drops and climbs again.
type ScaleMonitor struct {
	cfg    Config
	launch func(args []string) error // test hook

	mu       sync.Mutex // Check runs on concurrent connection goroutines
	launched bool
}

// NewScaleMonitor creates a monitor for the given bootstrap config
func NewScaleMonitor(cfg Config) *ScaleMonitor {
	m := &ScaleMonitor{cfg: cfg}
	m.launch = m.spawn
	return m
}

// Check launches the sibling if occupancy has reached the threshold.
// Returns true when a launch happened.
func (m *ScaleMonitor) Check(occupancy int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.launched || occupancy < m.cfg.ScaleThreshold {
		return false
	}
	m.launched = true

	args := []string{
		"-host",
		"-addr", bumpPort(m.cfg.ListenAddr),
		"-type", m.cfg.ServerType,
		"-scene", m.cfg.SceneName,
		"-max-players", strconv.Itoa(m.cfg.MaxPlayers),
		"-scale-at", strconv.Itoa(m.cfg.ScaleThreshold),
		"-data-dir", m.cfg.DataDir,
		"-db", m.cfg.DBPath,
	}
	if m.cfg.Region != "" {
		args = append(args, "-region", m.cfg.Region)
	}
	if err := m.launch(args); err != nil {
		log.Printf("scale: sibling launch failed: %v", err)
		return false
	}
	log.Printf("scale: occupancy %d reached threshold %d, sibling launched", occupancy, m.cfg.ScaleThreshold)
	return true
}

func (m *ScaleMonitor) spawn(args []string) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	cmd := exec.Command(exe, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return err
	}
	// The sibling outlives us; don't wait, just reap
	go cmd.Wait()
	return nil
}

// bumpPort returns the listen address with the port incremented, so the
// sibling binds next to us
func bumpPort(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return addr
	}
	return net.JoinHostPort(host, fmt.Sprintf("%d", n+1))
}
