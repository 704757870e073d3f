package config

import (
	"testing"
	"time"

	"github.com/abgdnv/lessonbooking/pkg/config"
	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	var c Config
	c.Log.Level = "info"
	c.Nats = config.NATSConfig{Enabled: true, Url: "nats://localhost:4222", Timeout: time.Second, Stream: "ORDERS"}
	c.Subscriber = config.SubscriberConfig{
		Stream:   "ORDERS",
		Subject:  "orders.placed",
		Consumer: "notification",
		Batch:    10,
		Timeout:  time.Second,
		Interval: time.Second,
		Workers:  2,
	}
	c.Shutdown.Timeout = 10 * time.Second
	return c
}

func Test_Config_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "nats disabled", mutate: func(c *Config) { c.Nats.Enabled = false }, wantErr: true},
		{name: "no workers", mutate: func(c *Config) { c.Subscriber.Workers = 0 }, wantErr: true},
		{name: "no consumer", mutate: func(c *Config) { c.Subscriber.Consumer = "" }, wantErr: true},
		{name: "traces without endpoint", mutate: func(c *Config) { c.Telemetry.Traces.Enabled = true }, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			cfg := validConfig()
			tc.mutate(&cfg)

			// when
			err := cfg.Validate()

			// then
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
