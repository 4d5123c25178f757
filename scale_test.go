package main

import (
	"sync"
	"testing"
)

func testScaleConfig() Config {
	return Config{
		ListenAddr:     "127.0.0.1:8090",
		ServerType:     "arena",
		SceneName:      "canyon",
		MaxPlayers:     8,
		ScaleThreshold: 6,
		DataDir:        "/tmp/arena-test",
		DBPath:         "arena.db",
	}
}

func TestScaleLaunchesAtThreshold(t *testing.T) {
	m := NewScaleMonitor(testScaleConfig())
	var gotArgs []string
	m.launch = func(args []string) error {
		gotArgs = args
		return nil
	}

	if m.Check(5) {
		t.Error("must not launch below the threshold")
	}
	if !m.Check(6) {
		t.Fatal("expected launch at the threshold")
	}
	if gotArgs == nil {
		t.Fatal("launch hook not called")
	}

	want := map[string]string{
		"-addr":        "127.0.0.1:8091",
		"-type":        "arena",
		"-scene":       "canyon",
		"-max-players": "8",
		"-scale-at":    "6",
		"-data-dir":    "/tmp/arena-test",
		"-db":          "arena.db",
	}
	args := make(map[string]string)
	for i := 0; i < len(gotArgs)-1; i++ {
		args[gotArgs[i]] = gotArgs[i+1]
	}
	for flag, val := range want {
		if args[flag] != val {
			t.Errorf("expected %s %q, got %q", flag, val, args[flag])
		}
	}
	if gotArgs[0] != "-host" {
		t.Errorf("sibling must be launched as a host, got args %v", gotArgs)
	}
}

func TestScaleLatchIsOneShot(t *testing.T) {
	m := NewScaleMonitor(testScaleConfig())
	launches := 0
	m.launch = func(args []string) error {
		launches++
		return nil
	}

	m.Check(8)
	m.Check(8)
	m.Check(2) // occupancy drops...
	m.Check(8) // ...and climbs back
	if launches != 1 {
		t.Errorf("expected exactly one launch for the process lifetime, got %d", launches)
	}
}

func TestScaleLatchUnderConcurrentJoins(t *testing.T) {
	m := NewScaleMonitor(testScaleConfig())
	launches := 0
	m.launch = func(args []string) error {
		// Called with the monitor's lock held
		launches++
		return nil
	}

	// Check runs on one goroutine per joining connection
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Check(6)
		}()
	}
	wg.Wait()

	if launches != 1 {
		t.Errorf("expected exactly one launch under concurrent joins, got %d", launches)
	}
}

func TestScaleRegionForwarded(t *testing.T) {
	cfg := testScaleConfig()
	cfg.Region = "eu"
	m := NewScaleMonitor(cfg)
	var gotArgs []string
	m.launch = func(args []string) error {
		gotArgs = args
		return nil
	}
	m.Check(6)

	found := false
	for i, a := range gotArgs {
		if a == "-region" && i+1 < len(gotArgs) && gotArgs[i+1] == "eu" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected -region eu in %v", gotArgs)
	}
}

func TestBumpPort(t *testing.T) {
	cases := []struct{ in, want string }{
		{":8090", ":8091"},
		{"127.0.0.1:8090", "127.0.0.1:8091"},
		{"bad-address", "bad-address"},
		{"host:notaport", "host:notaport"},
	}
	for _, c := range cases {
		if got := bumpPort(c.in); got != c.want {
			t.Errorf("bumpPort(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
