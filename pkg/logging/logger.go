/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logger.go
Description: Logging setup for the PathFinder engine. Thin logrus wrapper with level,
format, and optional file output, plus the bridge from the CLI verbosity levels to
logrus levels.
*/

package logging

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Config holds the logger configuration.
type Config struct {
	Level   string `json:"level"`  // debug, info, warn, error
	Format  string `json:"format"` // text or json
	File    string `json:"file"`   // empty = stderr
	Colors  bool   `json:"colors"`
	Verbose int    `json:"verbose"` // 0..2; Level overrides when set
}

// VerbosityLevel maps the --verbose levels onto logrus levels: 0 keeps the
// engine quiet apart from progress output, 1 narrates iterations, 2 dumps
// everything.
func VerbosityLevel(verbose int) logrus.Level {
	switch verbose {
	case 0:
		return logrus.WarnLevel
	case 1:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}

// New creates a configured logrus logger.
func New(config *Config) (*logrus.Logger, error) {
	logger := logrus.New()

	level := VerbosityLevel(config.Verbose)
	if config.Level != "" {
		parsed, err := logrus.ParseLevel(config.Level)
		if err != nil {
			return nil, fmt.Errorf("logging: invalid log level %q: %w", config.Level, err)
		}
		level = parsed
	}
	logger.SetLevel(level)

	if config.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   config.Colors,
			DisableColors: !config.Colors,
			FullTimestamp: true,
		})
	}

	if config.File != "" {
		file, err := os.OpenFile(config.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("logging: failed to open log file: %w", err)
		}
		logger.SetOutput(file)
	}

	return logger, nil
}
