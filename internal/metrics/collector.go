package metrics

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StatsSource provides functions to retrieve current counts for gauge metrics.
// Nil functions are skipped.
type StatsSource struct {
	CountsByStatus func() map[string]int
	HiddenCount    func() int
}

// StartCollector launches a goroutine that periodically updates gauge metrics.
// It runs every interval until the context is cancelled.
func StartCollector(ctx context.Context, src StatsSource, interval time.Duration) {
	// Do an initial collection immediately
	collect(src)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				collect(src)
			}
		}
	}()

	log.Info().Dur("interval", interval).Msg("Metrics collector started")
}

func collect(src StatsSource) {
	if src.CountsByStatus != nil {
		counts := src.CountsByStatus()
		for status, count := range counts {
			ReportsByStatus.WithLabelValues(status).Set(float64(count))
		}
		if pending, ok := counts["pending"]; ok {
			ReportsPending.Set(float64(pending))
		}
	}
	if src.HiddenCount != nil {
		HiddenContentTotal.Set(float64(src.HiddenCount()))
	}
}
