package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/opensource-finance/harrier/internal/casedb"
	"github.com/opensource-finance/harrier/internal/domain"
)

var windowLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// resolveAlert is Stage 1: fetch the case rows, derive canonical rule ids,
// representative rule and customer, the transaction window, and the
// rule-combination history.
func (p *Pipeline) resolveAlert(ctx context.Context, alertID string) (*domain.AlertCase, error) {
	rows, err := p.cases.AlertRows(ctx, alertID)
	if err != nil {
		return nil, fmt.Errorf("fetch alert rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: alert %s", casedb.ErrNotFound, alertID)
	}

	ac := &domain.AlertCase{
		AlertID: alertID,
		CaseID:  rows[0].CaseID,
		Rows:    rows,
	}

	// Canonical rule ids keep first-seen order; only the history lookup
	// key is sorted.
	seen := make(map[string]bool)
	for _, r := range rows {
		if !seen[r.RuleID] {
			seen[r.RuleID] = true
			ac.CanonicalRuleIDs = append(ac.CanonicalRuleIDs, r.RuleID)
		}
	}

	for _, r := range rows {
		if r.AlertID == alertID {
			ac.RepresentativeRuleID = r.RuleID
			ac.CustID = r.CustID
			break
		}
	}
	if ac.RepresentativeRuleID == "" {
		return nil, fmt.Errorf("%w: alert %s", ErrInconsistentAlert, alertID)
	}

	ac.TransactionWindow = transactionWindow(rows)

	history, err := p.resolveRuleHistory(ctx, ac.CanonicalRuleIDs)
	if err != nil {
		return nil, fmt.Errorf("rule history: %w", err)
	}
	ac.History = history

	return ac, nil
}

// transactionWindow computes [min(start), max(end)] over all rows whose
// dates parse. Unparseable values are dropped with a warning; nil when no
// row contributed.
func transactionWindow(rows []domain.AlertRow) *domain.TimeWindow {
	var w *domain.TimeWindow
	for _, r := range rows {
		start, okS := parseWindowDate(r.TxStart)
		end, okE := parseWindowDate(r.TxEnd)
		if !okS && !okE {
			continue
		}
		if w == nil {
			w = &domain.TimeWindow{}
			if okS {
				w.Start = start
			} else {
				w.Start = end
			}
			if okE {
				w.End = end
			} else {
				w.End = start
			}
			continue
		}
		if okS && start.Before(w.Start) {
			w.Start = start
		}
		if okE && end.After(w.End) {
			w.End = end
		}
	}
	return w
}

func parseWindowDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range windowLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// resolveRuleHistory fetches the exact-match statistics for the case's
// combination and ranks similar prior combinations by overlap.
func (p *Pipeline) resolveRuleHistory(ctx context.Context, canonical []string) (*domain.RuleHistory, error) {
	key := domain.RuleComboKey(canonical)
	history := &domain.RuleHistory{Key: key}

	exact, err := p.cases.RuleComboStats(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("exact combo %s: %w", key, err)
	}
	history.Exact = exact

	// One query per rule id; combinations are merged by key so a combo
	// containing several of our rules appears once.
	merged := make(map[string]domain.RuleComboStats)
	for _, ruleID := range canonical {
		combos, err := p.cases.RuleCombosContaining(ctx, ruleID)
		if err != nil {
			return nil, fmt.Errorf("combos containing %s: %w", ruleID, err)
		}
		for _, c := range combos {
			if c.Key == key {
				continue
			}
			merged[c.Key] = c
		}
	}

	ours := make(map[string]bool, len(canonical))
	for _, id := range canonical {
		ours[id] = true
	}
	for k, c := range merged {
		c.Overlap = overlapScore(ours, c.RuleIDs())
		merged[k] = c
	}

	similar := make([]domain.RuleComboStats, 0, len(merged))
	for _, c := range merged {
		similar = append(similar, c)
	}
	sort.Slice(similar, func(i, j int) bool {
		if similar[i].Overlap != similar[j].Overlap {
			return similar[i].Overlap > similar[j].Overlap
		}
		return similar[i].Key < similar[j].Key
	})
	history.Similar = similar

	return history, nil
}

// overlapScore is the Jaccard index between the case's rule set and a
// historical combination.
func overlapScore(ours map[string]bool, theirs []string) float64 {
	if len(ours) == 0 && len(theirs) == 0 {
		return 0
	}
	intersection := 0
	union := len(ours)
	for _, id := range theirs {
		if ours[id] {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
