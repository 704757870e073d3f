package config

import (
	"fmt"
	"strings"
)

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowedOrigins"`
	MaxAge         int      `koanf:"maxAge"`
}

// String returns a string representation of the CORS configuration.
func (c *CORSConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- CORS ---\n")
	b.WriteString(fmt.Sprintf("  allowedOrigins: %s\n", strings.Join(c.AllowedOrigins, ",")))
	b.WriteString(fmt.Sprintf("  maxAge: %d\n", c.MaxAge))
	return b.String()
}

func (c *CORSConfig) Validate() error {
	if c.MaxAge < 0 {
		return fmt.Errorf("cors max age must not be negative")
	}
	for _, origin := range c.AllowedOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("cors allowed origins contain an empty entry")
		}
	}
	return nil
}
