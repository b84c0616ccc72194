//go:build !unix

package main

import "context"

// notifyReload is a no-op on platforms without SIGHUP.
func notifyReload(ctx context.Context, _ func()) {
	<-ctx.Done()
}
