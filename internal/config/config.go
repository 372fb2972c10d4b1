// Package config holds nbtconv settings loaded from nbtconv.yaml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"nbtforge.ai/internal/frame"
)

// DefaultPath is read when no --config flag is given. A missing default
// file is not an error.
const DefaultPath = "nbtconv.yaml"

type Config struct {
	Compression frame.Compression `yaml:"compression"`
	IndexPath   string            `yaml:"index_path"`
	Schema      string            `yaml:"schema"`

	Serve Serve `yaml:"serve"`
}

type Serve struct {
	Listen          string `yaml:"listen"`
	MaxRequestBytes int64  `yaml:"max_request_bytes"`
}

func Defaults() Config {
	return Config{
		Compression: frame.None,
		Serve: Serve{
			Listen:          "127.0.0.1:8095",
			MaxRequestBytes: 4 << 20,
		},
	}
}

// Load reads path over Defaults. Keys the file leaves out keep their
// default values.
func Load(path string) (Config, error) {
	c := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// LoadOrDefault is Load, except that a missing file yields Defaults when
// the path was not chosen explicitly.
func LoadOrDefault(path string, explicit bool) (Config, error) {
	c, err := Load(path)
	if err != nil && !explicit && os.IsNotExist(err) {
		return Defaults(), nil
	}
	return c, err
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Serve.Listen) == "" {
		return fmt.Errorf("serve.listen is empty")
	}
	if c.Serve.MaxRequestBytes <= 0 {
		return fmt.Errorf("serve.max_request_bytes must be > 0")
	}
	return nil
}
