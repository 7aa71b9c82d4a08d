package diag

import (
	"fmt"
	"log/slog"
)

// List accumulates diagnostics during one analysis. The zero value and
// nil are both usable; methods return the (possibly new) receiver.
type List struct {
	diags []Diagnostic
}

func (l *List) With(d ...Diagnostic) *List {
	if l == nil {
		return &List{diags: d}
	}
	l.diags = append(l.diags, d...)
	return l
}

func (l *List) Merge(other *List) *List {
	if l == nil {
		return other
	}
	if other == nil || len(other.diags) == 0 {
		return l
	}
	return l.With(other.diags...)
}

func (l *List) Diagnostics() []Diagnostic {
	if l == nil {
		return nil
	}
	return l.diags
}

func (l *List) HasError() bool {
	if l == nil {
		return false
	}
	return len(l.diags) > 0
}

// OfKind returns the accumulated diagnostics carrying the given kind tag.
func (l *List) OfKind(kind Kind) []Diagnostic {
	if l == nil {
		return nil
	}
	var found []Diagnostic
	for _, d := range l.diags {
		if d.Kind() == kind {
			found = append(found, d)
		}
	}
	return found
}

func (l *List) LogValue() slog.Value {
	var vals []slog.Attr
	if l == nil {
		return slog.GroupValue()
	}
	for i, d := range l.diags {
		vals = append(vals, slog.Attr{
			Key: fmt.Sprint("d", i),
			Value: slog.GroupValue(
				slog.Attr{
					Key:   "msg",
					Value: slog.StringValue(FormatWithKind(d)),
				},
			),
		})
	}
	return slog.GroupValue(vals...)
}
