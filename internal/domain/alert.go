// Package domain defines the core types and interfaces for Harrier.
package domain

import (
	"sort"
	"strings"
	"time"
)

// AlertRow is one rule-trigger row belonging to the queried alert's case.
// Date columns are kept as raw strings; parsing happens in the pipeline so
// that a single malformed value never fails a fetch.
type AlertRow struct {
	AlertID     string
	CaseID      string
	RuleID      string
	CustID      string
	TriggeredAt string
	TxStart     string
	TxEnd       string
	Reported    bool
}

// TimeWindow is an inclusive [Start, End] interval.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the window length in whole calendar days, minimum 1.
func (w TimeWindow) Days() int {
	d := int(w.End.Sub(w.Start).Hours()/24) + 1
	if d < 1 {
		d = 1
	}
	return d
}

// AlertCase is the resolved Stage-1 view of a case.
type AlertCase struct {
	AlertID string
	CaseID  string
	CustID  string

	// CanonicalRuleIDs preserves first-seen order across the case rows.
	// Display substitution downstream depends on this order; only the
	// rule-history lookup key is sorted.
	CanonicalRuleIDs     []string
	RepresentativeRuleID string

	// TransactionWindow is the component-wise [min(start), max(end)] over
	// all parseable row windows; nil when no row had a parseable date.
	TransactionWindow *TimeWindow

	Rows    []AlertRow
	History *RuleHistory
}

// RuleComboKey builds the sorted, comma-joined lookup key for a set of rule
// ids. The input order is not modified.
func RuleComboKey(ruleIDs []string) string {
	sorted := make([]string, len(ruleIDs))
	copy(sorted, ruleIDs)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// SuspicionPattern is a (code, text) tag pair attached to historical cases.
type SuspicionPattern struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

// RuleComboStats holds occurrence statistics for one historical
// rule-id combination.
type RuleComboStats struct {
	Key               string
	Occurrences       int
	DistinctCustomers int
	FirstSeen         string
	LastSeen          string
	Reported          int
	Unreported        int
	Patterns          []SuspicionPattern

	// Overlap is the set-overlap score against the current case's
	// combination. Populated only for near-neighbor results.
	Overlap float64
}

// RuleIDs splits the combination key back into its rule ids.
func (s *RuleComboStats) RuleIDs() []string {
	if s.Key == "" {
		return nil
	}
	return strings.Split(s.Key, ",")
}

// RuleHistory is the Stage-1 historical lookup result: the exact match for
// the case's combination plus similar-but-not-identical prior combinations,
// ranked by overlap descending with key-ascending tie-break.
type RuleHistory struct {
	Key     string
	Exact   *RuleComboStats
	Similar []RuleComboStats
}
