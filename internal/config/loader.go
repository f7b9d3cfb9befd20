package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ClientOptions holds the values needed to construct a Client without
// hand-writing builder calls: FLAGSHIP_SDK_KEY, FLAGSHIP_UPDATE_INTERVAL
// and FLAGSHIP_DISABLE_DECISION_EVENT, loaded from the environment (or a
// .env file, if present). Environment variables take precedence.
type ClientOptions struct {
	SDKKey               string
	UpdateInterval       time.Duration
	DisableDecisionEvent bool
	EventAPIEndpoint     string
}

// LoadClientOptions reads ClientOptions from the environment. SDKKey is
// required; everything else has a default suitable for production use.
func LoadClientOptions() (*ClientOptions, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	_ = v.ReadInConfig() // .env is optional

	v.AutomaticEnv()
	v.SetDefault("FLAGSHIP_UPDATE_INTERVAL", DefaultUpdateInterval.String())
	v.SetDefault("FLAGSHIP_DISABLE_DECISION_EVENT", false)
	v.SetDefault("FLAGSHIP_EVENT_API_ENDPOINT", "")

	sdkKey := strings.TrimSpace(v.GetString("FLAGSHIP_SDK_KEY"))
	if sdkKey == "" {
		return nil, fmt.Errorf("config: FLAGSHIP_SDK_KEY must be set")
	}

	interval, err := time.ParseDuration(v.GetString("FLAGSHIP_UPDATE_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid FLAGSHIP_UPDATE_INTERVAL: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("config: FLAGSHIP_UPDATE_INTERVAL must be positive, got %s", interval)
	}

	return &ClientOptions{
		SDKKey:               sdkKey,
		UpdateInterval:       interval,
		DisableDecisionEvent: v.GetBool("FLAGSHIP_DISABLE_DECISION_EVENT"),
		EventAPIEndpoint:     strings.TrimSpace(v.GetString("FLAGSHIP_EVENT_API_ENDPOINT")),
	}, nil
}
