package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/dittoio/pkg/cache"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// structValidator returns the shared validator. Field names in errors are
// the yaml keys, so messages read like the file (cache.root, io.workers).
func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Validate checks struct tags first, then the rules that span fields.
// Validation does not modify cfg.
func Validate(cfg *Config) error {
	if err := structValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, formatFieldError(fe))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return errors.New("telemetry.endpoint is required when telemetry is enabled")
	}
	if cfg.Telemetry.Profiling.Enabled && cfg.Telemetry.Profiling.Endpoint == "" {
		return errors.New("telemetry.profiling.endpoint is required when profiling is enabled")
	}
	if cfg.Metrics.Enabled && cfg.API.Port == cfg.Metrics.Port {
		return fmt.Errorf("metrics.port and api.port must differ (both %d)", cfg.Metrics.Port)
	}

	if _, err := cache.ParseLayout(cfg.Cache.Layout); err != nil {
		return fmt.Errorf("cache.layout: %w", err)
	}

	switch cfg.Records.Backend {
	case RecordsBadger:
		if cfg.Records.Badger.Path == "" && !cfg.Records.Badger.InMemory {
			return errors.New("records.badger.path is required for the badger backend")
		}
	case RecordsSQL:
		if err := cfg.Records.SQL.Validate(); err != nil {
			return fmt.Errorf("records.sql: %w", err)
		}
	}

	if cfg.Handlers.S3.Enabled &&
		(cfg.Handlers.S3.AccessKeyID == "") != (cfg.Handlers.S3.SecretAccessKey == "") {
		return errors.New("handlers.s3: access_key_id and secret_access_key must be set together")
	}

	return nil
}

func formatFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	if fe.Param() != "" {
		return fmt.Sprintf("%s: failed '%s=%s' validation (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s: failed '%s' validation", field, fe.Tag())
}
