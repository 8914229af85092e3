// Package config resolves tryit settings from defaults, a YAML file, the
// environment (including a .env file) and command-line flags, in increasing
// order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "TRYIT_"

type Config struct {
	// Spec is an http(s) URL or a file path of the API document.
	Spec    string `yaml:"spec"`
	BaseURL string `yaml:"baseURL"`
	// Token is sent as a bearer token with every call.
	Token      string        `yaml:"token"`
	Timeout    time.Duration `yaml:"timeout"`
	MinPending time.Duration `yaml:"minPending"`
	RequestID  bool          `yaml:"requestID"`

	Debug     bool   `yaml:"debug"`
	DebugFile string `yaml:"debugFile"`
	LogLevel  string `yaml:"logLevel"`
}

func Default() Config {
	return Config{
		Timeout:    10 * time.Second,
		MinPending: time.Second,
		DebugFile:  "/tmp/tryit.log",
		LogLevel:   "info",
	}
}

// LoadFile decodes a YAML config file over cfg. Unknown keys are rejected.
func LoadFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %q: %w", path, err)
	}
	return nil
}

// Env returns the variables from the .env file at path overlaid with the
// process environment. A missing .env file is not an error.
func Env(path string) (map[string]string, error) {
	vars := map[string]string{}
	if path != "" {
		m, err := godotenv.Read(path)
		switch {
		case err == nil:
			vars = m
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(k, EnvPrefix) {
			vars[k] = v
		}
	}
	return vars, nil
}

// ApplyEnv sets every field that has a non-empty TRYIT_* variable in vars.
func ApplyEnv(cfg *Config, vars map[string]string) error {
	get := func(name string) (string, bool) {
		v, ok := vars[EnvPrefix+name]
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get("SPEC"); ok {
		cfg.Spec = v
	}
	if v, ok := get("BASE_URL"); ok {
		cfg.BaseURL = v
	}
	if v, ok := get("TOKEN"); ok {
		cfg.Token = v
	}
	if v, ok := get("DEBUG_FILE"); ok {
		cfg.DebugFile = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	for name, dst := range map[string]*time.Duration{"TIMEOUT": &cfg.Timeout, "MIN_PENDING": &cfg.MinPending} {
		if v, ok := get(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = d
		}
	}
	for name, dst := range map[string]*bool{"DEBUG": &cfg.Debug, "REQUEST_ID": &cfg.RequestID} {
		if v, ok := get(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = b
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Spec) == "" {
		return errors.New("no API document given (use --spec or TRYIT_SPEC)")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.MinPending < 0 {
		return fmt.Errorf("minPending must not be negative, got %s", c.MinPending)
	}
	return nil
}
