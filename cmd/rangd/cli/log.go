package cli

import (
	"log"
	"log/slog"
	"os"
)

var stdout = log.New(os.Stdout, "[rangd] ", log.Ldate|log.Ltime)
var stderr = log.New(os.Stderr, "[rangd] ", log.Ldate|log.Ltime)

var structuredLogger *slog.Logger

func SetupStructuredLogger() {
	level := slog.LevelInfo
	if Flags.VerboseOutput {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	switch Flags.LogFormat {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		stderr.Fatalf("Invalid log format: %s", Flags.LogFormat)
	}

	structuredLogger = slog.New(handler)
}
