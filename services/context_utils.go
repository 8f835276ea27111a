package services

import "context"

// persistentContext keeps ctx values but drops its cancellation, for cleanup
// that must run after a request has been aborted.
func persistentContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
