package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category classifies a ledger entry.
type Category string

const (
	CategoryBuy            Category = "BUY"
	CategorySell           Category = "SELL"
	CategoryKRWDeposit     Category = "KRW_DEPOSIT"
	CategoryKRWWithdraw    Category = "KRW_WITHDRAW"
	CategoryCryptoDeposit  Category = "CRYPTO_DEPOSIT"
	CategoryCryptoWithdraw Category = "CRYPTO_WITHDRAW"
)

// Categories lists all six categories in report order.
var Categories = []Category{
	CategoryBuy,
	CategorySell,
	CategoryKRWDeposit,
	CategoryKRWWithdraw,
	CategoryCryptoDeposit,
	CategoryCryptoWithdraw,
}

// Ledger archive tx-kind codes.
var kindCategories = map[string]Category{
	"B":  CategoryBuy,
	"S":  CategorySell,
	"DK": CategoryKRWDeposit,
	"WK": CategoryKRWWithdraw,
	"DC": CategoryCryptoDeposit,
	"WC": CategoryCryptoWithdraw,
}

// ParseCategory maps a ledger archive kind code to a category. The second
// return is false for unknown codes.
func ParseCategory(kind string) (Category, bool) {
	c, ok := kindCategories[kind]
	return c, ok
}

// IsCrypto reports whether the category is a crypto transfer, subject to
// the internal/external split.
func (c Category) IsCrypto() bool {
	return c == CategoryCryptoDeposit || c == CategoryCryptoWithdraw
}

// RawLedgerRow is one unprocessed row from the ledger archive. Numeric and
// temporal columns stay raw strings; coercion happens in the engine where
// unparseable values default to zero rather than failing the run.
type RawLedgerRow struct {
	AccountID string `json:"accountId"`
	Ticker    string `json:"ticker"`
	TradeDate string `json:"tradeDate"`
	TradeTime string `json:"tradeTime"`
	Kind      string `json:"kind"`
	Quantity  string `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	Amount    string `json:"amount"`
	AmountKRW string `json:"amountKrw"`
	FromAddr  string `json:"fromAddr"`
	ToAddr    string `json:"toAddr"`
}

// LedgerEntry is a preprocessed, immutable ledger row.
type LedgerEntry struct {
	AccountID string
	Ticker    string
	At        time.Time
	Category  Category
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Amount    decimal.Decimal
	AmountKRW decimal.Decimal
	FromAddr  string
	ToAddr    string
}

// TickerAggregate accumulates quantity, notional and base-currency amount
// for one ticker.
type TickerAggregate struct {
	Ticker    string
	Quantity  decimal.Decimal
	Amount    decimal.Decimal
	AmountKRW decimal.Decimal
	Count     int
}

// Segment is a maximal run of chronologically consecutive entries sharing
// one category. Never mutated after the segmentation pass completes.
type Segment struct {
	Category Category
	Start    time.Time
	End      time.Time
	Entries  int
	TotalKRW decimal.Decimal

	// Tickers in first-seen order within the segment.
	Tickers []TickerAggregate

	// Duration is the formatted span (coarsest applicable unit).
	Duration string

	// MainTickers is the one-line top-3 label by absolute KRW amount.
	MainTickers string
}

// ActionSummary is the whole-ledger per-category rollup, tickers ranked
// descending by absolute base-currency amount.
type ActionSummary struct {
	Category Category
	Count    int
	TotalKRW decimal.Decimal
	Tickers  []TickerAggregate
}

// DailyAction is one category's aggregates for a single calendar date.
// The internal/external fields are populated for crypto categories only.
type DailyAction struct {
	Count    int
	TotalKRW decimal.Decimal
	Tickers  []TickerAggregate

	InternalKRW   decimal.Decimal
	InternalCount int
	ExternalKRW   decimal.Decimal
	ExternalCount int
}

// DailyBucket holds one calendar date's aggregates for all six categories.
type DailyBucket struct {
	Date    string
	Actions map[Category]*DailyAction
}

// ActivitySummary is the full output of the segmentation and aggregation
// engine for one run.
type ActivitySummary struct {
	Window          *TimeWindow
	LedgerAvailable bool
	EntryCount      int

	Segments []Segment
	Actions  []ActionSummary
	Daily    []DailyBucket

	Narrative string
}

// Finding is a report highlight produced by the findings engine.
type Finding struct {
	ID       string `json:"id"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}
