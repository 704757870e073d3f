package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// MongoConfig describes the document store connection. Either URL is set, or it is
// assembled from Scheme, Host, User, Password and Params.
type MongoConfig struct {
	Driver   string        `koanf:"driver"`
	URL      string        `koanf:"url"`
	Scheme   string        `koanf:"scheme"`
	Host     string        `koanf:"host"`
	User     string        `koanf:"user"`
	Password string        `koanf:"password"`
	Params   string        `koanf:"params"`
	Name     string        `koanf:"name"`
	Timeout  time.Duration `koanf:"timeout"`
	Migrate  bool          `koanf:"migrate"`
}

// URI returns the connection string, building it from components when URL is empty.
func (c *MongoConfig) URI() string {
	if c.URL != "" {
		return c.URL
	}
	if c.Host == "" {
		return ""
	}
	scheme := c.Scheme
	if scheme == "" {
		scheme = "mongodb"
	}
	u := url.URL{Scheme: scheme, Host: c.Host, Path: "/", RawQuery: c.Params}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	return u.String()
}

// String returns a string representation of the database configuration with credentials masked.
func (c *MongoConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Database ---\n")
	b.WriteString(fmt.Sprintf("  driver: %s\n", c.Driver))
	b.WriteString(fmt.Sprintf("  url: %s\n", MaskURL(c.URI())))
	b.WriteString(fmt.Sprintf("  name: %s\n", c.Name))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  migrate: %t\n", c.Migrate))
	return b.String()
}

func (c *MongoConfig) Validate() error {
	switch c.Driver {
	case DriverMemory:
		return nil
	case DriverMongo, "":
	default:
		return fmt.Errorf("unknown database driver: %q", c.Driver)
	}
	uri := c.URI()
	if uri == "" {
		return fmt.Errorf("database URL is not configured")
	}
	if !isValidMongoURL(uri) {
		return fmt.Errorf("database URL must start with 'mongodb://' or 'mongodb+srv://': %s", MaskURL(uri))
	}
	if c.Name == "" {
		return fmt.Errorf("database name is not configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("database timeout must be greater than 0")
	}
	return nil
}

// MaskURL hides the credentials part of a connection string.
func MaskURL(url string) string {
	if url == "" {
		return "<not configured>"
	}
	schemeEnd := strings.Index(url, "://")
	at := strings.LastIndex(url, "@")
	if at == -1 {
		return url
	}
	if schemeEnd == -1 || at < schemeEnd {
		return "****@" + url[at+1:]
	}
	return url[:schemeEnd+3] + "****@" + url[at+1:]
}

func isValidMongoURL(url string) bool {
	return strings.HasPrefix(url, "mongodb://") ||
		strings.HasPrefix(url, "mongodb+srv://")
}
