package main

import (
	"io"
	"os"

	"github.com/Borislavv/count-min-sketch/pkg/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// setupLogger points the global logger at a rolled file when cms.logs.file is set,
// otherwise at a console writer on stderr.
func setupLogger(cfg *config.Cms) error {
	level, err := zerolog.ParseLevel(cfg.Cms.Logs.Level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)

	log.Logger = zerolog.New(logWriter(cfg.Cms.Logs)).With().Timestamp().Logger()
	return nil
}

func logWriter(logs config.Logs) io.Writer {
	if logs.File == "" {
		return zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return &lumberjack.Logger{
		Filename:   logs.File,
		MaxSize:    logs.MaxSizeMB,
		MaxBackups: logs.MaxBackups,
		MaxAge:     logs.MaxAgeDays,
		Compress:   true,
	}
}
