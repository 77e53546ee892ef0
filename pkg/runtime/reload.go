package runtime

import (
	"github.com/marmos91/dittoio/internal/logger"
	"github.com/marmos91/dittoio/pkg/config"
)

// ApplyConfig applies the settings that can change while running:
// io.async and logging.level. A setting is applied only when it differs
// from the last value seen in configuration, so a mode switched through
// the API survives unrelated edits to the file. Other changes need a
// restart.
func (r *Runtime) ApplyConfig(cfg *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cfg.IO.Async != r.cfg.IO.Async {
		r.cfg.IO.Async = cfg.IO.Async
		r.logic.SetAsync(cfg.IO.Async)
	}

	if cfg.Logging.Level != r.cfg.Logging.Level {
		r.cfg.Logging.Level = cfg.Logging.Level
		logger.SetLevel(cfg.Logging.Level)
		logger.Info("Log level changed", "level", cfg.Logging.Level)
	}
}

func (r *Runtime) reload() {
	cfg, err := config.Load(r.configPath)
	if err != nil {
		logger.Warn("Ignoring configuration change", logger.Path(r.configPath), logger.Err(err))
		return
	}
	r.ApplyConfig(cfg)
}
