package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config is the parsed bootstrap surface of one server process.
// Environment variables provide defaults, command-line flags override them;
// sibling processes launched by the scaling monitor are configured purely
// through flags.
type Config struct {
	ListenAddr     string `env:"ARENA_LISTEN" envDefault:":8090"`
	IsHost         bool   `env:"ARENA_HOST" envDefault:"true"`
	JoinTarget     string `env:"ARENA_JOIN"`
	ServerType     string `env:"ARENA_TYPE" envDefault:"arena"`
	SceneName      string `env:"ARENA_SCENE" envDefault:"canyon"`
	MaxPlayers     int    `env:"ARENA_MAX_PLAYERS" envDefault:"8"`
	ScaleThreshold int    `env:"ARENA_SCALE_AT" envDefault:"6"`
	DBPath         string `env:"ARENA_DB" envDefault:"arena.db"`
	DataDir        string `env:"ARENA_DATA_DIR"`
	Region         string `env:"ARENA_REGION"`
}

// LoadConfig parses environment then flags (flags win)
func LoadConfig(args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}

	fs := flag.NewFlagSet("arena-server", flag.ContinueOnError)
	fs.StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "HTTP listen address")
	fs.BoolVar(&cfg.IsHost, "host", cfg.IsHost, "host a match session")
	fs.StringVar(&cfg.JoinTarget, "join", cfg.JoinTarget, "join address instead of hosting")
	fs.StringVar(&cfg.ServerType, "type", cfg.ServerType, "server type advertised in the directory")
	fs.StringVar(&cfg.SceneName, "scene", cfg.SceneName, "starting scene name")
	fs.IntVar(&cfg.MaxPlayers, "max-players", cfg.MaxPlayers, "player capacity")
	fs.IntVar(&cfg.ScaleThreshold, "scale-at", cfg.ScaleThreshold, "player count that triggers a sibling launch")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for the server registry and control markers")
	fs.StringVar(&cfg.Region, "region", cfg.Region, "region hint")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if cfg.DataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = os.TempDir()
		}
		cfg.DataDir = filepath.Join(base, "arena")
	}
	if cfg.MaxPlayers < 2 {
		cfg.MaxPlayers = 2
	}
	if cfg.ScaleThreshold <= 0 || cfg.ScaleThreshold > cfg.MaxPlayers {
		cfg.ScaleThreshold = cfg.MaxPlayers
	}
	return cfg, nil
}

// RegistryPath returns the JSON file backing the session directory
func (c Config) RegistryPath() string {
	return filepath.Join(c.DataDir, "servers.json")
}

// ControlDir returns the directory watched for shutdown markers
func (c Config) ControlDir() string {
	return filepath.Join(c.DataDir, "control")
}
