package ledger

import (
	"regexp"
	"sort"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Engine runs the full summarization pass: preprocessing, per-account
// segmentation, whole-ledger and daily aggregation, narrative.
type Engine struct {
	internalAddr *regexp.Regexp
}

// NewEngine builds an engine with the configured internal-wallet address
// shape. An address is internal when it carries both the prefix and the
// suffix; a transfer is internal when both endpoints are.
func NewEngine(cfg domain.PipelineConfig) *Engine {
	pattern := "^" + regexp.QuoteMeta(cfg.InternalAddrPrefix) + ".*" + regexp.QuoteMeta(cfg.InternalAddrSuffix) + "$"
	return &Engine{internalAddr: regexp.MustCompile(pattern)}
}

// Summarize turns raw archive rows into the full activity summary. A nil
// summary is never returned; when the archive was unreachable the caller
// passes available=false and gets the unavailable narrative.
func (e *Engine) Summarize(rows []domain.RawLedgerRow, window *domain.TimeWindow, available bool) *domain.ActivitySummary {
	summary := &domain.ActivitySummary{
		Window:          window,
		LedgerAvailable: available,
	}
	if !available {
		summary.Narrative = Narrative(window, nil, false)
		return summary
	}

	entries := Preprocess(rows)
	summary.EntryCount = len(entries)
	summary.Segments = e.segmentByAccount(entries)
	summary.Actions = Aggregate(entries)
	summary.Daily = DailyBuckets(entries, e.isInternal)
	summary.Narrative = Narrative(window, summary.Actions, true)
	return summary
}

// segmentByAccount segments each account's timeline independently so one
// account's run is never split by another account's interleaved entries.
func (e *Engine) segmentByAccount(entries []domain.LedgerEntry) []domain.Segment {
	byAccount := make(map[string][]domain.LedgerEntry)
	var accounts []string
	for _, entry := range entries {
		if _, ok := byAccount[entry.AccountID]; !ok {
			accounts = append(accounts, entry.AccountID)
		}
		byAccount[entry.AccountID] = append(byAccount[entry.AccountID], entry)
	}
	sort.Strings(accounts)

	var segments []domain.Segment
	for _, acct := range accounts {
		segments = append(segments, Segmentize(byAccount[acct])...)
	}
	return segments
}

func (e *Engine) isInternal(entry domain.LedgerEntry) bool {
	return e.internalAddr.MatchString(entry.FromAddr) && e.internalAddr.MatchString(entry.ToAddr)
}
