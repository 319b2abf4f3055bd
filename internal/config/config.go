// Package config handles phash configuration: defaults, an optional TOML
// file, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	apperrors "github.com/GriffinCanCode/phash/internal/errors"
	"github.com/GriffinCanCode/phash/internal/phash"
)

// Hash selects the fingerprint shape.
type Hash struct {
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	Algorithm string `toml:"algorithm"`
	Filter    string `toml:"filter"`
}

// Decode bounds what the image decoder accepts.
type Decode struct {
	MaxPixels int `toml:"max_pixels"`
}

// Server configures the HTTP/WebSocket API and the gRPC service.
type Server struct {
	HTTPAddr          string `toml:"http_addr"`
	GRPCAddr          string `toml:"grpc_addr"`
	MaxUploadBytes    int64  `toml:"max_upload_bytes"`
	SimilarThreshold  int    `toml:"similar_threshold"`
	RateLimitMessages int    `toml:"rate_limit_messages"`
}

// Batch configures multi-file hashing.
type Batch struct {
	Workers   int    `toml:"workers"`
	Threshold int    `toml:"threshold"`
	CachePath string `toml:"cache_path"`
}

// Client configures the gRPC client used by `phash client`.
type Client struct {
	Addr           string  `toml:"addr"`
	TimeoutSeconds float64 `toml:"timeout_seconds"`
}

// Logging configures slog output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Config struct {
	Hash    Hash    `toml:"hash"`
	Decode  Decode  `toml:"decode"`
	Server  Server  `toml:"server"`
	Batch   Batch   `toml:"batch"`
	Client  Client  `toml:"client"`
	Logging Logging `toml:"logging"`
}

// Default returns a Config populated with built-in defaults.
func Default() *Config {
	return &Config{
		Hash: Hash{
			Width:     phash.DefaultWidth,
			Height:    phash.DefaultHeight,
			Algorithm: string(phash.Mean),
			Filter:    string(phash.FilterBilinear),
		},
		Decode: Decode{MaxPixels: DefaultMaxPixels},
		Server: Server{
			HTTPAddr:          DefaultHTTPAddr,
			GRPCAddr:          DefaultGRPCAddr,
			MaxUploadBytes:    DefaultMaxUploadBytes,
			SimilarThreshold:  DefaultSimilarThreshold,
			RateLimitMessages: DefaultRateLimitMessages,
		},
		Batch: Batch{
			Workers:   0,
			Threshold: DefaultBatchThreshold,
		},
		Client: Client{
			Addr:           DefaultClientAddr,
			TimeoutSeconds: DefaultClientTimeoutSeconds,
		},
		Logging: Logging{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load builds the configuration. path may be empty, in which case
// PHASH_CONFIG is consulted; a missing file at the default location is not an
// error, a missing file that was asked for explicitly is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = getEnv("PHASH_CONFIG", "")
		explicit = path != ""
	}
	if path != "" {
		if err := cfg.loadFile(path, explicit); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return apperrors.Wrapf(err, apperrors.CodeConfigInvalid, "read config %s", path)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return apperrors.Wrapf(err, apperrors.CodeConfigInvalid, "parse config %s", path)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Hash.Width = getEnvInt("PHASH_WIDTH", c.Hash.Width)
	c.Hash.Height = getEnvInt("PHASH_HEIGHT", c.Hash.Height)
	c.Hash.Filter = getEnv("PHASH_FILTER", c.Hash.Filter)
	c.Decode.MaxPixels = getEnvInt("PHASH_MAX_PIXELS", c.Decode.MaxPixels)
	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.MaxUploadBytes = int64(getEnvInt("PHASH_MAX_UPLOAD_BYTES", int(c.Server.MaxUploadBytes)))
	c.Server.SimilarThreshold = getEnvInt("PHASH_SIMILAR_THRESHOLD", c.Server.SimilarThreshold)
	c.Batch.Workers = getEnvInt("PHASH_WORKERS", c.Batch.Workers)
	c.Batch.Threshold = getEnvInt("PHASH_THRESHOLD", c.Batch.Threshold)
	c.Batch.CachePath = getEnv("PHASH_CACHE", c.Batch.CachePath)
	c.Client.Addr = getEnv("PHASH_ADDR", c.Client.Addr)
	c.Client.TimeoutSeconds = getEnvFloat("PHASH_CLIENT_TIMEOUT", c.Client.TimeoutSeconds)
	c.Logging.Level = getEnv("PHASH_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("PHASH_LOG_FORMAT", c.Logging.Format)
}

// HashConfig converts the [hash] section into a phash.Config.
func (c *Config) HashConfig() (phash.Config, error) {
	filter, err := phash.ParseFilter(c.Hash.Filter)
	if err != nil {
		return phash.Config{}, err
	}
	hc := phash.Config{
		Width:     c.Hash.Width,
		Height:    c.Hash.Height,
		Algorithm: phash.Algorithm(strings.ToLower(strings.TrimSpace(c.Hash.Algorithm))),
		Filter:    filter,
	}
	if err := hc.Validate(); err != nil {
		return phash.Config{}, err
	}
	return hc, nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if _, err := c.HashConfig(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeConfigInvalid, "hash")
	}
	if c.Decode.MaxPixels < 0 {
		return apperrors.New(apperrors.CodeConfigInvalid, "decode.max_pixels must be >= 0")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return apperrors.New(apperrors.CodeConfigInvalid, "server.max_upload_bytes must be positive")
	}
	if c.Server.SimilarThreshold < 0 {
		return apperrors.New(apperrors.CodeConfigInvalid, "server.similar_threshold must be >= 0")
	}
	if c.Batch.Workers < 0 {
		return apperrors.New(apperrors.CodeConfigInvalid, "batch.workers must be >= 0")
	}
	if c.Batch.Threshold < 0 {
		return apperrors.New(apperrors.CodeConfigInvalid, "batch.threshold must be >= 0")
	}
	if c.Client.TimeoutSeconds <= 0 {
		return apperrors.New(apperrors.CodeConfigInvalid, "client.timeout_seconds must be positive")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "auto", "text", "json":
	default:
		return apperrors.Newf(apperrors.CodeConfigInvalid, "logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
