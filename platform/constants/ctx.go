// Description: This file contains constants used for accessing values from context objects.
package constants

import "context"

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// RequestID is the key used to store the per-request ID in the context
	RequestID ContextKey = "request_id"

	// These are the names under which scripts see the execution context
	Ctx  = "ctx"  // global name for the execution context in Starlark and Risor
	This = "this" // receiver name for the execution context in JavaScript
)

// RequestIDFrom returns the request ID stored in ctx, or "" when absent.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(RequestID).(string)
	return id
}
