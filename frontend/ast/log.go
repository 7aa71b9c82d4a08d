package ast

import (
	"context"
	"fmt"
	"log/slog"
)

// slogExpr wraps an Expr as a slog.LogValuer to not render expression strings
// unless they definitely need to be logged
func slogExpr(expr Expr) slog.LogValuer {
	return exprLogValuer{expr}
}

type exprLogValuer struct{ Expr }

func (l exprLogValuer) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("str", ExprString(l.Expr)),
		slog.String("hash", fmt.Sprintf("%x", l.Hash())),
		slog.String("pos", RangeOf(l.Expr).String()),
	)
}

// SlogHandler wraps a slog.Handler so that Expr attributes are rendered
// lazily through ExprString.
func SlogHandler(underlying slog.Handler) slog.Handler {
	return &exprLogHandler{underlying: underlying}
}

type exprLogHandler struct {
	underlying slog.Handler
}

func (l *exprLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return l.underlying.Enabled(ctx, level)
}

func (l *exprLogHandler) Handle(ctx context.Context, record slog.Record) error {
	newRecord := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Value.Kind() == slog.KindAny {
			if value, ok := attr.Value.Any().(Expr); ok {
				newRecord.Add(attr.Key, slogExpr(value))
				return true
			}
		}
		newRecord.Add(attr)
		return true
	})
	return l.underlying.Handle(ctx, newRecord)
}

func (l *exprLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	for i, attr := range attrs {
		if attr.Value.Kind() == slog.KindAny {
			if value, ok := attr.Value.Any().(Expr); ok {
				attr.Value = slog.AnyValue(slogExpr(value))
				attrs[i] = attr
			}
		}
	}
	return SlogHandler(l.underlying.WithAttrs(attrs))
}

func (l *exprLogHandler) WithGroup(name string) slog.Handler {
	return SlogHandler(l.underlying.WithGroup(name))
}
