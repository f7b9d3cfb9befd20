package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"FLAGSHIP_SDK_KEY", "FLAGSHIP_UPDATE_INTERVAL",
		"FLAGSHIP_DISABLE_DECISION_EVENT", "FLAGSHIP_EVENT_API_ENDPOINT",
	}
	for _, k := range keys {
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for _, k := range keys {
			os.Unsetenv(k)
		}
	})
}

func TestLoadClientOptions_RequiresSDKKey(t *testing.T) {
	clearEnv(t)
	if _, err := LoadClientOptions(); err == nil {
		t.Fatalf("expected an error when FLAGSHIP_SDK_KEY is unset")
	}
}

func TestLoadClientOptions_Defaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("FLAGSHIP_SDK_KEY", "sdk-123")

	opts, err := LoadClientOptions()
	if err != nil {
		t.Fatalf("LoadClientOptions failed: %v", err)
	}
	if opts.SDKKey != "sdk-123" {
		t.Errorf("SDKKey = %q, want sdk-123", opts.SDKKey)
	}
	if opts.UpdateInterval != DefaultUpdateInterval {
		t.Errorf("UpdateInterval = %s, want %s", opts.UpdateInterval, DefaultUpdateInterval)
	}
	if opts.DisableDecisionEvent {
		t.Errorf("DisableDecisionEvent should default to false")
	}
}

func TestLoadClientOptions_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	os.Setenv("FLAGSHIP_SDK_KEY", "sdk-123")
	os.Setenv("FLAGSHIP_UPDATE_INTERVAL", "30s")
	os.Setenv("FLAGSHIP_DISABLE_DECISION_EVENT", "true")
	os.Setenv("FLAGSHIP_EVENT_API_ENDPOINT", "https://example.com/v1/events")

	opts, err := LoadClientOptions()
	if err != nil {
		t.Fatalf("LoadClientOptions failed: %v", err)
	}
	if opts.UpdateInterval != 30*time.Second {
		t.Errorf("UpdateInterval = %s, want 30s", opts.UpdateInterval)
	}
	if !opts.DisableDecisionEvent {
		t.Errorf("DisableDecisionEvent should be true")
	}
	if opts.EventAPIEndpoint != "https://example.com/v1/events" {
		t.Errorf("EventAPIEndpoint = %q, want override", opts.EventAPIEndpoint)
	}
}

func TestLoadClientOptions_RejectsNonPositiveInterval(t *testing.T) {
	clearEnv(t)
	os.Setenv("FLAGSHIP_SDK_KEY", "sdk-123")
	os.Setenv("FLAGSHIP_UPDATE_INTERVAL", "0s")

	if _, err := LoadClientOptions(); err == nil {
		t.Fatalf("expected an error for a non-positive update interval")
	}
}
