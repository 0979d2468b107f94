package pipeline

import (
	"context"
	"fmt"

	"github.com/opensource-finance/harrier/internal/domain"
)

// resolveAccess is Stage 3: per-account login/IP history over the window's
// calendar dates, concatenated with origin tags. The caller skips the
// stage for organizations and when no account was resolved.
func (p *Pipeline) resolveAccess(ctx context.Context, accounts []accountRef, window *domain.TimeWindow) ([]domain.AccessRecord, error) {
	from := window.Start.Format("2006-01-02")
	to := window.End.Format("2006-01-02")

	var out []domain.AccessRecord
	for _, acct := range accounts {
		events, err := p.cases.AccessEvents(ctx, acct.AccountID, from, to)
		if err != nil {
			return nil, fmt.Errorf("access events for %s: %w", acct.AccountID, err)
		}
		for _, ev := range events {
			out = append(out, domain.AccessRecord{
				Origin:      acct.Origin,
				AccountID:   acct.AccountID,
				DisplayName: acct.DisplayName,
				Event:       ev,
			})
		}
	}
	return out, nil
}
