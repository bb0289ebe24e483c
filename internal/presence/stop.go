// internal/presence/stop.go
package presence

import (
	"context"
	"time"

	"github.com/tamzrod/beacon-guard/internal/clock"
)

// stopRetry spaces StopScan attempts while the scan is still starting.
const stopRetry = 100 * time.Millisecond

type scanStopper interface {
	StopScan() error
}

// stopOnCancel stops the scan once ctx is done. A cancel that lands before
// Scan has started makes StopScan fail with "not scanning", so it keeps
// trying until the scan reports it has returned by closing stopped.
func stopOnCancel(ctx context.Context, s scanStopper, stopped <-chan struct{}, clk clock.Clock) {
	select {
	case <-ctx.Done():
	case <-stopped:
		return
	}
	for {
		if err := s.StopScan(); err == nil {
			return
		}
		select {
		case <-stopped:
			return
		case <-clk.After(stopRetry):
		}
	}
}
