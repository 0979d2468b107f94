package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/metrics"
)

// DeriveWindow computes the ledger lookback window from the Stage-1 rows,
// the canonical rule ids and the KYC completion date. Pure function.
//
// end is the max transaction end across the rows. The default start is
// end minus the default lookback, widened to the extended lookback when
// any canonical rule id is on the allow-list. The final start is the min
// over {min transaction start, default start, KYC date}, so the window
// covers onboarding when KYC predates the default and never narrows below
// the rule-triggered span. Returns nil when no row has a parseable end.
func DeriveWindow(rows []domain.AlertRow, canonical []string, kycDate string, cfg domain.PipelineConfig) *domain.TimeWindow {
	var end time.Time
	var haveEnd bool
	var minStart time.Time
	var haveStart bool

	for _, r := range rows {
		if t, ok := parseWindowDate(r.TxEnd); ok {
			if !haveEnd || t.After(end) {
				end = t
				haveEnd = true
			}
		}
		if t, ok := parseWindowDate(r.TxStart); ok {
			if !haveStart || t.Before(minStart) {
				minStart = t
				haveStart = true
			}
		}
	}
	if !haveEnd {
		return nil
	}

	lookback := cfg.DefaultLookbackDays
	if lookback <= 0 {
		lookback = 90
	}
	extended := cfg.ExtendedLookbackDays
	if extended <= 0 {
		extended = 365
	}
	allowed := make(map[string]bool, len(cfg.ExtendedLookbackRules))
	for _, id := range cfg.ExtendedLookbackRules {
		allowed[id] = true
	}
	for _, id := range canonical {
		if allowed[id] {
			lookback = extended
			break
		}
	}

	start := end.AddDate(0, 0, -lookback)
	if haveStart && minStart.Before(start) {
		start = minStart
	}
	if t, ok := parseWindowDate(kycDate); ok && t.Before(start) {
		start = t
	}

	return &domain.TimeWindow{Start: start, End: end}
}

// fetchLedger retrieves the raw ledger for every account over the window,
// going through the caller-owned cache per account. Cache failures are
// treated as misses; archive failures fail the stage.
func (p *Pipeline) fetchLedger(ctx context.Context, accounts []accountRef, window domain.TimeWindow) ([]domain.RawLedgerRow, error) {
	var out []domain.RawLedgerRow
	for _, acct := range accounts {
		rows, err := p.fetchAccountLedger(ctx, acct.AccountID, window)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	metrics.LedgerRowsFetched.Add(float64(len(out)))
	return out, nil
}

func (p *Pipeline) fetchAccountLedger(ctx context.Context, accountID string, window domain.TimeWindow) ([]domain.RawLedgerRow, error) {
	key := domain.NewLedgerKey(accountID, window.Start, window.End)

	if p.cache != nil {
		cached, err := p.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("ledger cache get failed", "key", key.String(), "error", err)
		} else if cached != nil {
			var rows []domain.RawLedgerRow
			if err := json.Unmarshal(cached, &rows); err == nil {
				metrics.LedgerCacheHits.Inc()
				return rows, nil
			}
			slog.Warn("ledger cache entry corrupt, refetching", "key", key.String())
		}
		metrics.LedgerCacheMisses.Inc()
	}

	rows, err := p.ledgers.LedgerRows(ctx, accountID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("fetch ledger for %s: %w", accountID, err)
	}

	if p.cache != nil {
		if data, err := json.Marshal(rows); err == nil {
			if err := p.cache.Set(ctx, key, data, p.cacheTTL); err != nil {
				slog.Warn("ledger cache set failed", "key", key.String(), "error", err)
			}
		}
	}
	return rows, nil
}
