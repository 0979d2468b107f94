package pipeline

import (
	"fmt"
	"strings"

	"github.com/opensource-finance/harrier/internal/dataset"
	"github.com/opensource-finance/harrier/internal/domain"
)

// Fixed dataset names. The report formatter addresses tables by these.
const (
	DatasetAlertCase      = "alert_case"
	DatasetRuleHistory    = "rule_history"
	DatasetProfile        = "profile"
	DatasetRelatedParties = "related_parties"
	DatasetDuplicates     = "duplicate_candidates"
	DatasetAccessHistory  = "access_history"
	DatasetLedgerSegments = "ledger_segments"
	DatasetLedgerActions  = "ledger_actions"
	DatasetLedgerDaily    = "ledger_daily"
)

func persistAlert(store *dataset.Store, ac *domain.AlertCase) error {
	rows := make([][]any, len(ac.Rows))
	for i, r := range ac.Rows {
		rows[i] = []any{r.AlertID, r.CaseID, r.RuleID, r.CustID, r.TriggeredAt, r.TxStart, r.TxEnd, r.Reported}
	}
	meta := map[string]any{
		"canonical_rule_ids":     strings.Join(ac.CanonicalRuleIDs, ","),
		"representative_rule_id": ac.RepresentativeRuleID,
		"cust_id":                ac.CustID,
		"case_id":                ac.CaseID,
	}
	if w := ac.TransactionWindow; w != nil {
		meta["window_start"] = w.Start.Format("2006-01-02 15:04:05")
		meta["window_end"] = w.End.Format("2006-01-02 15:04:05")
	}
	if err := store.Put(DatasetAlertCase,
		[]string{"alert_id", "case_id", "rule_id", "cust_id", "triggered_at", "tx_start", "tx_end", "reported"},
		rows, meta); err != nil {
		return err
	}

	return persistRuleHistory(store, ac.History)
}

func persistRuleHistory(store *dataset.Store, h *domain.RuleHistory) error {
	var rows [][]any
	appendStats := func(scope string, s *domain.RuleComboStats) {
		rows = append(rows, []any{
			scope, s.Key, s.Occurrences, s.DistinctCustomers,
			s.FirstSeen, s.LastSeen, s.Reported, s.Unreported,
			s.Overlap, formatPatterns(s.Patterns),
		})
	}
	if h != nil {
		if h.Exact != nil {
			appendStats("EXACT", h.Exact)
		}
		for i := range h.Similar {
			appendStats("SIMILAR", &h.Similar[i])
		}
	}
	meta := map[string]any{}
	if h != nil {
		meta["combo_key"] = h.Key
	}
	return store.Put(DatasetRuleHistory,
		[]string{"scope", "combo_key", "occurrences", "distinct_customers",
			"first_seen", "last_seen", "reported", "unreported", "overlap", "patterns"},
		rows, meta)
}

func formatPatterns(patterns []domain.SuspicionPattern) string {
	if len(patterns) == 0 {
		return ""
	}
	parts := make([]string, len(patterns))
	for i, p := range patterns {
		parts[i] = p.Code + " " + p.Text
	}
	return strings.Join(parts, "; ")
}

func persistIdentity(store *dataset.Store, ident *identityResult) error {
	p := ident.Profile
	if err := store.Put(DatasetProfile,
		[]string{"cust_id", "account_id", "name", "id_number", "birth_date", "nationality",
			"address", "detail_address", "job", "workplace_name", "workplace_address",
			"phone", "email", "customer_type", "kyc_completed_at"},
		[][]any{{p.CustID, p.AccountID, p.Name, p.IDNumber, p.BirthDate, p.Nationality,
			p.Address, p.DetailAddress, p.Job, p.WorkplaceName, p.WorkplaceAddress,
			p.Phone, p.Email, string(ident.Type), p.KYCCompletedAt}},
		nil); err != nil {
		return err
	}

	if err := persistParties(store, ident.Parties); err != nil {
		return err
	}

	dupRows := make([][]any, len(ident.Duplicates))
	for i, d := range ident.Duplicates {
		cats := make([]string, len(d.Matches))
		for j, m := range d.Matches {
			cats[j] = string(m)
		}
		dupRows[i] = []any{d.CustID, d.Name, strings.Join(cats, ",")}
	}
	return store.Put(DatasetDuplicates,
		[]string{"cust_id", "name", "matched_categories"},
		dupRows, nil)
}

// persistParties flattens the tagged union into the wide single-row shape
// the report contract expects. Origin-specific fields stay explicit nulls.
func persistParties(store *dataset.Store, parties []domain.RelatedParty) error {
	rows := make([][]any, len(parties))
	for i, party := range parties {
		switch party.Kind {
		case domain.PartyOrgRelation:
			o := party.Org
			rows[i] = []any{
				string(party.Kind), o.CustID, o.Name, o.IDNumber,
				o.RelationCode, o.StakePct,
				nil, nil, nil, nil,
			}
		case domain.PartyCounterparty:
			c := party.Counterparty
			name, idNumber := any(nil), any(nil)
			if c.Profile != nil {
				name, idNumber = c.Profile.Name, c.Profile.IDNumber
			}
			rows[i] = []any{
				string(party.Kind), c.CustID, name, idNumber,
				nil, nil,
				c.Deposit, c.Withdrawal, c.TxCount, formatTickers(c.Tickers),
			}
		}
	}
	return store.Put(DatasetRelatedParties,
		[]string{"party_kind", "cust_id", "name", "id_number",
			"relation_code", "stake_pct",
			"deposit", "withdrawal", "tx_count", "tickers"},
		rows, nil)
}

func formatTickers(tickers []domain.TickerVolume) any {
	if len(tickers) == 0 {
		return nil
	}
	parts := make([]string, len(tickers))
	for i, t := range tickers {
		parts[i] = fmt.Sprintf("%s:%s:%d", t.Ticker, t.Amount, t.Count)
	}
	return strings.Join(parts, ";")
}

func persistAccess(store *dataset.Store, records []domain.AccessRecord) error {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{
			string(r.Origin), r.AccountID, r.DisplayName,
			r.Event.Timestamp, r.Event.Country, r.Event.Channel,
			r.Event.IPAddress, r.Event.ResultCode,
		}
	}
	return store.Put(DatasetAccessHistory,
		[]string{"origin", "account_id", "display_name",
			"timestamp", "country", "channel", "ip_address", "result_code"},
		rows, nil)
}

func persistLedger(store *dataset.Store, summary *domain.ActivitySummary) error {
	segRows := make([][]any, len(summary.Segments))
	for i, s := range summary.Segments {
		segRows[i] = []any{
			string(s.Category),
			s.Start.Format("2006-01-02 15:04:05"),
			s.End.Format("2006-01-02 15:04:05"),
			s.Entries, s.TotalKRW, s.Duration, s.MainTickers,
		}
	}
	if err := store.Put(DatasetLedgerSegments,
		[]string{"category", "start", "end", "entries", "total_krw", "duration", "main_tickers"},
		segRows, nil); err != nil {
		return err
	}

	actionRows := make([][]any, len(summary.Actions))
	for i, a := range summary.Actions {
		names := make([]string, 0, len(a.Tickers))
		for _, t := range a.Tickers {
			names = append(names, t.Ticker)
		}
		actionRows[i] = []any{string(a.Category), a.Count, a.TotalKRW, strings.Join(names, ", ")}
	}
	if err := store.Put(DatasetLedgerActions,
		[]string{"category", "count", "total_krw", "tickers"},
		actionRows, nil); err != nil {
		return err
	}

	var dailyRows [][]any
	for _, day := range summary.Daily {
		for _, cat := range domain.Categories {
			action, ok := day.Actions[cat]
			if !ok {
				continue
			}
			dailyRows = append(dailyRows, []any{
				day.Date, string(cat), action.Count, action.TotalKRW,
				action.InternalKRW, action.InternalCount,
				action.ExternalKRW, action.ExternalCount,
			})
		}
	}
	return store.Put(DatasetLedgerDaily,
		[]string{"date", "category", "count", "total_krw",
			"internal_krw", "internal_count", "external_krw", "external_count"},
		dailyRows, nil)
}
