package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SubscriberConfig describes a durable JetStream pull consumer and its worker pool.
type SubscriberConfig struct {
	Stream   string        `koanf:"stream"`
	Subject  string        `koanf:"subject"`
	Consumer string        `koanf:"consumer"`
	Batch    int           `koanf:"batch"`
	Timeout  time.Duration `koanf:"timeout"`
	Interval time.Duration `koanf:"interval"`
	Workers  int           `koanf:"workers"`
}

func (c *SubscriberConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Subscriber ---\n")
	b.WriteString(fmt.Sprintf("  stream/subject: %s/%s\n", c.Stream, c.Subject))
	b.WriteString(fmt.Sprintf("  consumer: %s\n", c.Consumer))
	b.WriteString(fmt.Sprintf("  workers x batch: %d x %d\n", c.Workers, c.Batch))
	b.WriteString(fmt.Sprintf("  fetch timeout: %s, retry interval: %s\n", c.Timeout, c.Interval))
	return b.String()
}

func (c *SubscriberConfig) Validate() error {
	var errs []error
	if c.Stream == "" || c.Subject == "" || c.Consumer == "" {
		errs = append(errs, fmt.Errorf("subscriber stream, subject and consumer are required"))
	}
	if c.Batch <= 0 || c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("subscriber batch and workers must be positive"))
	}
	if c.Timeout <= 0 || c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("subscriber timeout and interval must be positive"))
	}
	return errors.Join(errs...)
}
