package domain

import (
	"context"
	"time"
)

// CaseStore is the read-only case database (store #1). Every method issues
// one parameterized query through a connection marked read-only at the
// session level and returns typed records; column-name translation happens
// only at that boundary.
type CaseStore interface {
	// AlertRows fetches all rule-trigger rows sharing the alert's case.
	AlertRows(ctx context.Context, alertID string) ([]AlertRow, error)

	// RuleComboStats fetches the exact-match occurrence statistics for a
	// sorted, comma-joined combination key. Returns nil when the
	// combination has no history.
	RuleComboStats(ctx context.Context, key string) (*RuleComboStats, error)

	// RuleCombosContaining fetches statistics for every historical
	// combination containing the given rule id.
	RuleCombosContaining(ctx context.Context, ruleID string) ([]RuleComboStats, error)

	// Profile fetches the unified customer profile (one row).
	Profile(ctx context.Context, custID string) (*CustomerProfile, error)

	// OrgRelations fetches ownership/officer relations, ordered by
	// relation priority then stake percentage descending, nulls last.
	OrgRelations(ctx context.Context, custID string) ([]OrgRelation, error)

	// TransferCounterparties fetches internal-transfer counterparties
	// aggregated over the window, ranked by deposit+withdrawal descending.
	TransferCounterparties(ctx context.Context, custID string, window TimeWindow, limit int) ([]Counterparty, error)

	// CounterpartyTickers fetches the per-ticker breakdown between the
	// subject and one counterparty over the window.
	CounterpartyTickers(ctx context.Context, custID, counterpartyID string, window TimeWindow) ([]TickerVolume, error)

	// CustomersMatching fetches customers sharing one identity attribute
	// value with the subject.
	CustomersMatching(ctx context.Context, category MatchCategory, value string) ([]CustomerRef, error)

	// AccessEvents fetches login/IP access events for an account over an
	// inclusive calendar-date range ("2006-01-02" bounds).
	AccessEvents(ctx context.Context, accountID, fromDate, toDate string) ([]AccessEvent, error)

	Ping(ctx context.Context) error
	Close() error
}

// LedgerStore is the read-only trade/transfer ledger archive (store #2).
// Statements are rejected before dispatch unless they are read queries.
type LedgerStore interface {
	// LedgerRows fetches the raw ledger for one account over [start, end],
	// consumed in bounded batches internally.
	LedgerRows(ctx context.Context, accountID string, start, end time.Time) ([]RawLedgerRow, error)

	Ping(ctx context.Context) error
	Close() error
}
