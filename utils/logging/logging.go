package logging

import (
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// Init routes logs to both the service log file (json, for ingestion) and
// stderr (text, for operators). The json handler carries the service name so
// logs from multiple services can be filtered in one stream.
func Init(logFile *os.File, service string) {
	var jsonHandler slog.Handler = slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug})
	jsonHandler = jsonHandler.WithAttrs([]slog.Attr{
		slog.String("service", service),
	})

	textHandler := slog.NewTextHandler(os.Stderr, nil)

	logger := slog.New(slogmulti.Fanout(jsonHandler, textHandler))
	slog.SetDefault(logger)
}
