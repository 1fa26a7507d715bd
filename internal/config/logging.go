package config

import (
	"context"
	"log/slog"
)

// Log logs the resolved settings in a granular way, skipping irrelevant ones
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: transport", "value", s.Transport)
	if s.Transport == "sse" {
		logger.InfoContext(ctx, "Config: host", "value", s.Host)
		logger.InfoContext(ctx, "Config: port", "value", s.Port)
		logger.InfoContext(ctx, "Config: metrics.enabled", "value", s.Metrics.Enabled)
		if s.Metrics.Enabled {
			logger.InfoContext(ctx, "Config: metrics.public", "value", s.Metrics.Public)
		}
	}
	logger.InfoContext(ctx, "Config: log_level", "value", s.LogLevel)

	logger.InfoContext(ctx, "Config: auth.type", "value", s.Auth.Type)
	switch s.Auth.Type {
	case AuthTypeBasic:
		logger.InfoContext(ctx, "Config: auth.basic.username", "value", s.Auth.Basic.Username)
		logger.InfoContext(ctx, "Config: auth.basic.password", "value", "****")
	case AuthTypeAPIKey:
		logger.InfoContext(ctx, "Config: auth.api_keys", "count", len(s.Auth.APIKeys))
	}

	if s.DB.InMemory {
		logger.InfoContext(ctx, "Config: db.in_memory", "value", true)
	} else {
		logger.InfoContext(ctx, "Config: db.dir", "value", s.DB.Dir)
		logger.InfoContext(ctx, "Config: db.lock_timeout", "value", s.DB.LockTimeout)
		if s.DB.IgnoreHash {
			logger.WarnContext(ctx, "Config: db.ignore_hash", "value", true)
		}
	}
	if s.DB.SchemaFile != "" {
		logger.InfoContext(ctx, "Config: db.schema_file", "value", s.DB.SchemaFile)
	}
	logger.InfoContext(ctx, "Config: db.page_size", "value", s.DB.PageSize)
	logger.InfoContext(ctx, "Config: db.max_facet_values", "value", s.DB.MaxFacetValues)
	logger.InfoContext(ctx, "Config: db.store_workers", "value", s.DB.StoreWorkers)
}

// SlogLevel maps a configured log level to a slog.Level, defaulting to info
func SlogLevel(level string) slog.Level {
	switch level {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// AuthSettingsLogValue returns a slog.Value for AuthSettings with masked data
func AuthSettingsLogValue(s AuthSettings) slog.Value {
	keys := make([]string, len(s.APIKeys))
	for i := range s.APIKeys {
		keys[i] = "****"
	}
	return slog.GroupValue(
		slog.String("type", s.Type),
		slog.Any("basic", BasicAuthSettingsLogValue(s.Basic)),
		slog.Any("api_keys", keys),
	)
}

// BasicAuthSettingsLogValue returns a slog.Value for BasicAuthSettings with masked data
func BasicAuthSettingsLogValue(s BasicAuthSettings) slog.Value {
	return slog.GroupValue(
		slog.String("username", s.Username),
		slog.String("password", "****"),
	)
}

// DBSettingsLogValue returns a slog.Value for DBSettings
func DBSettingsLogValue(s DBSettings) slog.Value {
	return slog.GroupValue(
		slog.String("dir", s.Dir),
		slog.String("schema_file", s.SchemaFile),
		slog.Bool("in_memory", s.InMemory),
		slog.Bool("ignore_hash", s.IgnoreHash),
		slog.Duration("lock_timeout", s.LockTimeout),
		slog.Int("page_size", s.PageSize),
		slog.Int("max_facet_values", s.MaxFacetValues),
	)
}

// SettingsLogValue returns a slog.Value for Settings with masked data
func SettingsLogValue(s Settings) slog.Value {
	return slog.GroupValue(
		slog.String("transport", s.Transport),
		slog.String("host", s.Host),
		slog.Int("port", s.Port),
		slog.String("log_level", s.LogLevel),
		slog.Any("auth", AuthSettingsLogValue(s.Auth)),
		slog.Any("db", DBSettingsLogValue(s.DB)),
	)
}
