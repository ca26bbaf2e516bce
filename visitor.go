package cascade

import "context"

type visitorKey struct{}

// WithVisitor returns a context carrying the visitor identity used for
// isolated cache entries. An empty id leaves the context unchanged.
func WithVisitor(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, visitorKey{}, id)
}

// VisitorFromContext extracts the identity stored by WithVisitor.
func VisitorFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(visitorKey{}).(string)
	return id, ok && id != ""
}

// VisitorFunc resolves the visitor identity for the current operation.
// The default reads the context via VisitorFromContext; supply your own
// through Options.Visitor to pull identities from session stores or
// auth middleware instead.
type VisitorFunc func(ctx context.Context) (string, bool)
