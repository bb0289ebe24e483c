// internal/scheduler/runner.go
package scheduler

import "context"

// Run ticks every period until ctx is cancelled. The first tick happens
// one period after start so the scan has had time to hear every beacon.
// The actuator is stopped on every exit path.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.d.Actuator.Stop()

	ticker := s.d.Clock.NewTicker(s.cfg.Period)
	defer ticker.Stop()

	s.d.Logger.Info("control loop started", "period", s.cfg.Period, "assets", s.d.Registry.Len())
	for {
		select {
		case <-ctx.Done():
			s.d.Logger.Info("control loop stopping")
			return nil
		case <-ticker.C:
			s.Tick()
		}
	}
}
