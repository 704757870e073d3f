// Package config holds the configuration of the booking service.
package config

import (
	"fmt"
	"strings"

	"github.com/abgdnv/lessonbooking/pkg/config"
	"github.com/abgdnv/lessonbooking/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	Database   config.MongoConfig      `koanf:"database"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	Nats       config.NATSConfig       `koanf:"nats"`
	Resilience config.ResilienceConfig `koanf:"resilience"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	CORS       config.CORSConfig       `koanf:"cors"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
	Booking    BookingConfig           `koanf:"booking"`
}

// BookingConfig holds the domain settings: where lessons and orders live and where images come from.
type BookingConfig struct {
	LessonsCollection string `koanf:"lessonsCollection"`
	OrdersCollection  string `koanf:"ordersCollection"`
	ReserveSpaces     bool   `koanf:"reserveSpaces"`
	Images            struct {
		Dir       string `koanf:"dir"`
		URLPrefix string `koanf:"urlPrefix"`
	} `koanf:"images"`
}

func (c *BookingConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Booking ---\n")
	b.WriteString(fmt.Sprintf("  lessonsCollection: %s\n", c.LessonsCollection))
	b.WriteString(fmt.Sprintf("  ordersCollection: %s\n", c.OrdersCollection))
	b.WriteString(fmt.Sprintf("  reserveSpaces: %t\n", c.ReserveSpaces))
	b.WriteString(fmt.Sprintf("  images.dir: %s\n", c.Images.Dir))
	b.WriteString(fmt.Sprintf("  images.urlPrefix: %s\n", c.Images.URLPrefix))
	return b.String()
}

func (c *BookingConfig) Validate() error {
	if c.LessonsCollection == "" {
		return fmt.Errorf("lessons collection is not configured")
	}
	if c.OrdersCollection == "" {
		return fmt.Errorf("orders collection is not configured")
	}
	if c.LessonsCollection == c.OrdersCollection {
		return fmt.Errorf("lessons and orders must be stored in different collections")
	}
	if c.Images.Dir != "" && !strings.HasPrefix(c.Images.URLPrefix, "/") {
		return fmt.Errorf("images URL prefix must start with '/': %q", c.Images.URLPrefix)
	}
	return nil
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Database.String())
	b.WriteString(c.Booking.String())
	b.WriteString(c.Nats.String())
	b.WriteString(c.Resilience.String())
	b.WriteString(c.CORS.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	validators := []configloader.Validator{
		&c.HTTPServer,
		&c.Database,
		&c.Log,
		&c.PProf,
		&c.Nats,
		&c.Resilience,
		&c.Telemetry,
		&c.CORS,
		&c.Shutdown,
		&c.Booking,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
