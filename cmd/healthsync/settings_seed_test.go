package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dtgoitia/healthsync/internal/domain"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestSeedSettingsFromFileFillsMissingFields(t *testing.T) {
	path := writeConfigFile(t, "api-url: https://sync.example.test\napi-token: secret\n")

	var settings domain.Settings
	seedSettingsFromFile(&settings, path)

	if settings.APIUrl == nil || *settings.APIUrl != "https://sync.example.test" {
		t.Fatalf("APIUrl = %v", settings.APIUrl)
	}
	if settings.APIToken == nil || *settings.APIToken != "secret" {
		t.Fatalf("APIToken = %v", settings.APIToken)
	}
}

func TestSeedSettingsFromFileDoesNotOverridePersisted(t *testing.T) {
	path := writeConfigFile(t, "api-url: https://file.example.test\napi-token: file-token\n")

	url, token := "https://persisted.example.test", "persisted-token"
	settings := domain.Settings{APIUrl: &url, APIToken: &token}
	seedSettingsFromFile(&settings, path)

	if *settings.APIUrl != url || *settings.APIToken != token {
		t.Fatalf("persisted settings were overridden: %+v", settings)
	}
}

func TestSeedSettingsFromFileMissingFileIsNoop(t *testing.T) {
	var settings domain.Settings
	seedSettingsFromFile(&settings, filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if settings.APIUrl != nil || settings.APIToken != nil {
		t.Fatalf("expected settings untouched, got %+v", settings)
	}
}
