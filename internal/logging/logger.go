// Package logging configures the process-wide logrus logger. The TUI owns
// the terminal, so log lines go to a rotated file unless stderr is requested.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type SetupParams struct {
	LogFileName   string
	LogToStderr   bool
	LogLevel      string
	LogFormatJSON bool
}

// Setup applies params to the standard logrus logger and returns the file
// writer, if any, so the caller can close it on shutdown.
func Setup(params SetupParams) io.Closer {
	return configure(logrus.StandardLogger(), params)
}

func configure(logger *logrus.Logger, params SetupParams) io.Closer {
	if params.LogFormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	}
	logger.SetLevel(GetLevel(params.LogLevel))

	if params.LogFileName == "" {
		if params.LogToStderr {
			logger.SetOutput(os.Stderr)
		} else {
			logger.SetOutput(io.Discard)
		}
		return nopCloser{}
	}

	if !strings.HasSuffix(params.LogFileName, ".log") {
		params.LogFileName += ".log"
	}

	lumberJackLogger := &lumberjack.Logger{
		Filename:   params.LogFileName,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		LocalTime:  true,
		Compress:   true,
	}

	if params.LogToStderr {
		logger.SetOutput(NewCombinedWriter(os.Stderr, lumberJackLogger))
	} else {
		logger.SetOutput(lumberJackLogger)
	}
	return lumberJackLogger
}

// GetLevel maps a level name to a logrus level. Unknown names mean info.
func GetLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
