package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/OCAP2/dockyard/internal/config"
	"github.com/OCAP2/dockyard/internal/database"
	"github.com/OCAP2/dockyard/internal/storage"
	"github.com/OCAP2/dockyard/internal/storage/memory"
	pgstorage "github.com/OCAP2/dockyard/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/dockyard/internal/storage/sqlite"
	wsstorage "github.com/OCAP2/dockyard/internal/storage/websocket"
)

// createStorageBackend builds the journal backend named by storage.type.
// The backend is not initialized.
func createStorageBackend(cfg config.StorageConfig, stationName string, start time.Time, log *slog.Logger) (storage.Backend, error) {
	switch cfg.Type {
	case "postgres":
		log.Info("Postgres storage backend selected")
		return pgstorage.New(pgstorage.Dependencies{
			Config:        postgresConfig(),
			StationName:   stationName,
			FlushInterval: cfg.FlushInterval,
			Logger:        log,
		}), nil

	case "sqlite":
		dumpPath := ""
		if cfg.SQLite.DumpDir != "" {
			dumpPath = filepath.Join(cfg.SQLite.DumpDir, fmt.Sprintf("dockyard_%s.db", start.Format("20060102_150405")))
		}
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			Path:          cfg.SQLite.Path,
			DumpInterval:  cfg.SQLite.DumpInterval,
			DumpPath:      dumpPath,
			StationName:   stationName,
			FlushInterval: cfg.FlushInterval,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		log.Info("SQLite storage backend selected")
		return backend, nil

	case "websocket":
		wsURL := httpToWS(cfg.WebSocket.URL)
		log.Info("WebSocket storage backend selected", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: cfg.WebSocket.Secret,
			Logger: log,
		}), nil

	case "memory", "":
		log.Info("Memory storage backend selected")
		b := memory.New(cfg.Memory)
		b.SetStationName(stationName)
		return b, nil

	case "none":
		return storage.Discard{}, nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

func postgresConfig() database.PostgresConfig {
	return database.PostgresConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
		SSLMode:  viper.GetString("db.sslmode"),
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
