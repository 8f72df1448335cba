package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig should tolerate a missing file, got: %v", err)
	}

	if cfg.Game.BoardSize != 16 {
		t.Errorf("Expected default board size 16, got %d", cfg.Game.BoardSize)
	}
	if cfg.Game.PowerUpLifetime != 15*time.Second {
		t.Errorf("Expected default power-up lifetime 15s, got %v", cfg.Game.PowerUpLifetime)
	}
	if cfg.Database.Driver != "memory" {
		t.Errorf("Expected memory driver by default, got %s", cfg.Database.Driver)
	}
}

func TestLoadConfig_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  http_address: ":9999"
game:
  board_size: 8
  gravity_alpha: 0.5
  lobby_ttl: 5m
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.HTTPAddress != ":9999" {
		t.Errorf("Expected http address :9999, got %s", cfg.Server.HTTPAddress)
	}
	if cfg.Game.BoardSize != 8 {
		t.Errorf("Expected board size 8, got %d", cfg.Game.BoardSize)
	}
	if cfg.Game.GravityAlpha != 0.5 {
		t.Errorf("Expected gravity alpha 0.5, got %v", cfg.Game.GravityAlpha)
	}
	if cfg.Game.LobbyTTL != 5*time.Minute {
		t.Errorf("Expected lobby ttl 5m, got %v", cfg.Game.LobbyTTL)
	}
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("game:\n  board_size: 0\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := LoadConfig(dir); err == nil {
		t.Fatal("Expected an error for board_size 0")
	}
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	env := []byte("MAZE_GAME_BOARD_SIZE=12\nMAZE_SERVER_HTTP_ADDRESS=:7070\n")
	if err := os.WriteFile(filepath.Join(dir, ".env"), env, 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	// godotenv sets process variables; t.Setenv restores them afterwards
	t.Setenv("MAZE_GAME_BOARD_SIZE", "")
	os.Unsetenv("MAZE_GAME_BOARD_SIZE")
	t.Setenv("MAZE_SERVER_HTTP_ADDRESS", ":6060")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Game.BoardSize != 12 {
		t.Errorf("Expected board size 12 from .env, got %d", cfg.Game.BoardSize)
	}
	if cfg.Server.HTTPAddress != ":6060" {
		t.Errorf(".env must not override the environment, got %s", cfg.Server.HTTPAddress)
	}
}
