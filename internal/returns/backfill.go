package returns

import (
	"context"
	"fmt"
	"time"

	"github.com/sarpraslab/peminjaman-backend/pkg/logger"
)

const defaultBackfillBatch = 200

// BackfillStats summarizes one backfill run.
type BackfillStats struct {
	Scanned  int
	Upgraded int
}

// Backfill rewrites annotation-only returns so their split, fine reason and
// paid marker live in columns. Rows are upgraded in batches until none remain;
// running it again is a no-op.
func Backfill(ctx context.Context, repo Repository, logg *logger.Logger, batch int) (BackfillStats, error) {
	if repo == nil {
		return BackfillStats{}, fmt.Errorf("returns repository required")
	}
	if batch <= 0 {
		batch = defaultBackfillBatch
	}

	var stats BackfillStats
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		rows, err := repo.ListUnsplit(ctx, batch)
		if err != nil {
			return stats, fmt.Errorf("list legacy returns: %w", err)
		}
		if len(rows) == 0 {
			break
		}
		stats.Scanned += len(rows)
		for i := range rows {
			ret := &rows[i]
			if ret.Loan == nil {
				return stats, fmt.Errorf("return %s has no loan", ret.ID)
			}
			changes := Changes{At: time.Now().UTC()}
			upgradeLegacy(&changes, ret)
			if err := repo.Update(ctx, ret.ID, changes); err != nil {
				return stats, fmt.Errorf("upgrade return %s: %w", ret.ID, err)
			}
			stats.Upgraded++
		}
		if logg != nil {
			logg.Info(logg.WithFields(ctx, map[string]any{"upgraded": stats.Upgraded}), "returns backfill batch done")
		}
	}
	return stats, nil
}
