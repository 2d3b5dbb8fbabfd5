// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds everything the server needs at startup.
type Config struct {
	ListenAddr     string        `env:"QUERYGRAPH_ADDR" validate:"required"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	Engine         string        `env:"QUERYGRAPH_ENGINE" validate:"oneof=sqlite postgres mysql"`
	EngineDSN      string        `env:"QUERYGRAPH_ENGINE_DSN" validate:"required"`
	LogLevel       string        `env:"QUERYGRAPH_LOG_LEVEL" validate:"oneof=debug info warn error"`
	ScoreTimeout   time.Duration `env:"QUERYGRAPH_SCORE_TIMEOUT" validate:"gt=0"`
	ScoreThreshold float64       `env:"QUERYGRAPH_SCORE_THRESHOLD" validate:"gt=0"`
	PreferGPU      bool          `env:"QUERYGRAPH_PREFER_GPU"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		ListenAddr:     ":3000",
		Engine:         "sqlite",
		EngineDSN:      "file::memory:?cache=shared",
		LogLevel:       "info",
		ScoreTimeout:   10 * time.Second,
		ScoreThreshold: 3.0,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report failures by environment variable name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("env"); name != "" {
			return name
		}
		return fld.Name
	})
	return v
}

// Load reads .env when present, overlays the environment on Default and
// validates the result. All problems are reported in one joined error.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup instead of the process environment.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("QUERYGRAPH_ADDR", &cfg.ListenAddr)
	str("DATABASE_URL", &cfg.DatabaseURL)
	str("QUERYGRAPH_ENGINE", &cfg.Engine)
	str("QUERYGRAPH_ENGINE_DSN", &cfg.EngineDSN)
	str("QUERYGRAPH_LOG_LEVEL", &cfg.LogLevel)
	cfg.Engine = strings.ToLower(cfg.Engine)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if v, ok := lookup("QUERYGRAPH_SCORE_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("QUERYGRAPH_SCORE_TIMEOUT: %w", err))
		} else {
			cfg.ScoreTimeout = d
		}
	}
	if v, ok := lookup("QUERYGRAPH_SCORE_THRESHOLD"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("QUERYGRAPH_SCORE_THRESHOLD: %w", err))
		} else {
			cfg.ScoreThreshold = f
		}
	}
	if v, ok := lookup("QUERYGRAPH_PREFER_GPU"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("QUERYGRAPH_PREFER_GPU: %w", err))
		} else {
			cfg.PreferGPU = b
		}
	}

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("querygraph: config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// Validate checks field rules and returns one error per failing field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, fieldError(fe))
	}
	return errors.Join(errs...)
}

func fieldError(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "gt":
		return fmt.Errorf("%s must be greater than %s", fe.Field(), fe.Param())
	}
	return fmt.Errorf("%s failed %s", fe.Field(), fe.Tag())
}
