package gpu

import "log/slog"

// LoggerOrDiscard returns l, or a logger that drops every record when l is
// nil. Packages that accept an optional logger normalize it with this.
func LoggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
