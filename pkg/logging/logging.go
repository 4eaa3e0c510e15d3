package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithRequest returns a logger with routing request fields attached.
// Use this for all logging within a single routed request.
func WithRequest(logger *slog.Logger, requestID, userID, projectID string) *slog.Logger {
	return logger.With(
		"request_id", requestID,
		"user_id", userID,
		"project_id", projectID,
	)
}

// WithRoute returns a logger scoped to the route a request resolved to.
func WithRoute(logger *slog.Logger, route string, confidence float64) *slog.Logger {
	return logger.With(
		"route", route,
		"confidence", confidence,
	)
}
