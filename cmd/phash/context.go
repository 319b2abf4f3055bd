package main

import (
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/GriffinCanCode/phash/internal/config"
	apperrors "github.com/GriffinCanCode/phash/internal/errors"
	"github.com/GriffinCanCode/phash/internal/imageio"
	"github.com/GriffinCanCode/phash/internal/logging"
	"github.com/GriffinCanCode/phash/internal/phash"
)

// globalFlags hold the persistent flags. Zero values leave the loaded
// configuration untouched.
type globalFlags struct {
	config    string
	width     int
	height    int
	filter    string
	logLevel  string
	logFormat string
}

func (f *globalFlags) apply(cfg *config.Config) {
	if f.width > 0 {
		cfg.Hash.Width = f.width
	}
	if f.height > 0 {
		cfg.Hash.Height = f.height
	}
	if s := strings.TrimSpace(f.filter); s != "" {
		cfg.Hash.Filter = s
	}
	if s := strings.TrimSpace(f.logLevel); s != "" {
		cfg.Logging.Level = s
	}
	if s := strings.TrimSpace(f.logFormat); s != "" {
		cfg.Logging.Format = s
	}
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

// ensureConfig loads the configuration once, applies flag overrides and
// installs the default logger writing to logOut.
func (c *commandContext) ensureConfig(logOut io.Writer) (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		c.flags.apply(cfg)
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}

		logger, err := logging.New(logOut, cfg.Logging.Level, cfg.Logging.Format)
		if err != nil {
			c.configErr = apperrors.Wrap(err, apperrors.CodeConfigInvalid, "logging")
			return
		}
		slog.SetDefault(logger)
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) hasher() (*phash.Hasher, error) {
	hc, err := c.config.HashConfig()
	if err != nil {
		return nil, err
	}
	return phash.New(hc)
}

func (c *commandContext) decoder() *imageio.Decoder {
	return imageio.NewDecoder(c.config.Decode.MaxPixels)
}
