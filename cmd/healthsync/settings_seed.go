package main

import (
	"github.com/spf13/viper"

	"github.com/dtgoitia/healthsync/internal/domain"
)

// seedSettingsFromFile fills in apiUrl/apiToken from the YAML config
// file when the persisted settings slot does not carry them yet. The
// persisted value always wins: the file only seeds a fresh device, it
// never overrides what `healthsync config set` already stored.
func seedSettingsFromFile(settings *domain.Settings, path string) {
	if settings.APIUrl != nil && settings.APIToken != nil {
		return
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return // no file, or unreadable: nothing to seed from
	}

	if settings.APIUrl == nil {
		if url := v.GetString("api-url"); url != "" {
			settings.APIUrl = &url
		}
	}
	if settings.APIToken == nil {
		if token := v.GetString("api-token"); token != "" {
			settings.APIToken = &token
		}
	}
}
