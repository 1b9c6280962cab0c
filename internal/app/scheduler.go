package app

import (
	"context"
	"time"

	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/oauth"
)

// startCodePurge deletes expired authorization codes on a fixed interval.
// Codes that are presented again after expiry are deleted by the exchange
// itself; this catches the ones that never come back.
func startCodePurge(ctx context.Context, exchanger *oauth.Exchanger, logger *common.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Code purge: stopped")
			return
		case <-ticker.C:
			purgeCodes(ctx, exchanger, logger)
		}
	}
}

func purgeCodes(ctx context.Context, exchanger *oauth.Exchanger, logger *common.Logger) {
	start := time.Now()
	n, err := exchanger.PurgeExpiredCodes(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Code purge: failed")
		return
	}
	if n > 0 {
		logger.Info().
			Int("purged", n).
			Dur("elapsed", time.Since(start)).
			Msg("Code purge: complete")
	}
}
