package utils

import (
	"io"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/json"
	"github.com/joomcode/errorx"
)

// InitLogger sets log level, format and output
func InitLogger(format string, level string) error {
	return InitLoggerWithWriter(os.Stdout, format, level)
}

// InitLoggerWithWriter is InitLogger with a custom output
func InitLoggerWithWriter(w io.Writer, format string, level string) error {
	logLevel, err := log.ParseLevel(level)

	if err != nil {
		return errorx.IllegalArgument.New("unknown log level: %s.\nAvailable levels are: debug, info, warn, error, fatal", level)
	}

	switch format {
	case "text":
		log.SetHandler(NewLogHandler(w, w == os.Stdout && IsTTY()))
	case "json":
		log.SetHandler(json.New(w))
	default:
		return errorx.IllegalArgument.New("unknown log format: %s.\nAvailable formats are: text, json", format)
	}

	log.SetLevel(logLevel)

	return nil
}
