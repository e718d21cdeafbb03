package llm

import "context"

type ctxKeyLabel struct{}

// WithLabel tags ctx with a request label (usually the file under review)
// that middleware includes in its log lines.
func WithLabel(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, ctxKeyLabel{}, label)
}

// LabelFrom returns the label set by WithLabel, or "-" when absent.
func LabelFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyLabel{}).(string); ok && v != "" {
		return v
	}
	return "-"
}
