package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Storage.DataDir != "harmonia-data" {
			t.Errorf("expected data dir harmonia-data, got %s", config.Storage.DataDir)
		}

		if config.Cache.MaxEntries != 500 {
			t.Errorf("expected cache max_entries 500, got %d", config.Cache.MaxEntries)
		}

		if config.Downloads.MaxConcurrent != 3 {
			t.Errorf("expected max_concurrent 3, got %d", config.Downloads.MaxConcurrent)
		}

		if config.Downloads.AudioFormat != "m4a" {
			t.Errorf("expected audio format m4a, got %s", config.Downloads.AudioFormat)
		}

		if config.Credentials.Spotify.TokenPath != "harmonia-data/spotify_token.json" {
			t.Errorf("expected spotify token path, got %s", config.Credentials.Spotify.TokenPath)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Storage.DataDir != defaultConfig.Storage.DataDir {
			t.Errorf("created config data dir doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[storage]
data_dir = "/custom/data"

[cache]
path = "/custom/cache.json"
max_entries = 42

[downloads]
max_concurrent = 2
tool_path = "/usr/local/bin/yt-dlp"
audio_format = "opus"
audio_quality = "5"

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "http://localhost:3000/callback"

[credentials.youtube]
api_key = "test_api_key"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Storage.DataDir != "/custom/data" {
			t.Errorf("expected custom data dir, got %s", config.Storage.DataDir)
		}
		if config.Cache.MaxEntries != 42 {
			t.Errorf("expected max_entries 42, got %d", config.Cache.MaxEntries)
		}
		if config.Downloads.AudioFormat != "opus" {
			t.Errorf("expected audio format opus, got %s", config.Downloads.AudioFormat)
		}
		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Credentials.YouTube.APIKey != "test_api_key" {
			t.Errorf("expected youtube api key, got %s", config.Credentials.YouTube.APIKey)
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}
