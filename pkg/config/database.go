package config

import (
	"fmt"
	"strings"
	"time"
)

const defaultCollection = "products"

// DatabaseConfig describes the MongoDB deployment the catalog reads from.
type DatabaseConfig struct {
	URI        string        `koanf:"uri"`
	Name       string        `koanf:"name"`
	Collection string        `koanf:"collection"`
	Timeout    time.Duration `koanf:"timeout"`
}

// String returns a string representation of the database configuration with credentials masked.
func (c *DatabaseConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Database ---\n")
	b.WriteString(fmt.Sprintf("  uri: %s\n", MaskURI(c.URI)))
	b.WriteString(fmt.Sprintf("  name: %s\n", c.Name))
	b.WriteString(fmt.Sprintf("  collection: %s\n", c.Collection))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	return b.String()
}

func (c *DatabaseConfig) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("database URI is not configured")
	}
	if !isValidMongoURI(c.URI) {
		return fmt.Errorf("database URI must start with 'mongodb://' or 'mongodb+srv://': %s", MaskURI(c.URI))
	}
	if c.Name == "" {
		return fmt.Errorf("database name is not configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid database timeout: %v", c.Timeout)
	}
	if c.Collection == "" {
		c.Collection = defaultCollection
	}
	return nil
}

// MaskURI hides the user info part of a connection URI.
func MaskURI(uri string) string {
	if uri == "" {
		return "<not configured>"
	}
	scheme, rest, found := strings.Cut(uri, "://")
	if !found {
		return "****"
	}
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		return scheme + "://****@" + rest[i+1:]
	}
	return uri
}

// isValidMongoURI checks if the provided URI uses one of the MongoDB schemes.
func isValidMongoURI(uri string) bool {
	return strings.HasPrefix(uri, "mongodb://") ||
		strings.HasPrefix(uri, "mongodb+srv://")
}
