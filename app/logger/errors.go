package logger

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at error level. Errors built with oops contribute their
// code and context as separate attributes.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...slog.Attr) {
	if oopsErr, ok := oops.AsOops(err); ok {
		attrs = append(attrs, slog.String("error", oopsErr.Error()))
		if code := oopsErr.Code(); code != nil {
			attrs = append(attrs, slog.Any("code", code))
		}
		if c := oopsErr.Context(); len(c) > 0 {
			attrs = append(attrs, slog.Any("context", c))
		}
	} else {
		attrs = append(attrs, slog.Any("error", err))
	}
	logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}
