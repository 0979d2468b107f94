// Package ledger implements the segmentation and aggregation engine that
// turns a raw trade/transfer ledger into activity segments, per-category
// rollups, daily summaries and a report narrative.
package ledger

import (
	"log/slog"
	"sort"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/harrier/internal/domain"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	dateLayout      = "2006-01-02"
)

// Non-tradable ticker placeholders seen in the archive.
var placeholderTickers = map[string]bool{
	"":    true,
	"-":   true,
	"N/A": true,
}

// Preprocess filters and coerces one account's raw rows into sorted
// entries. Rows are dropped for placeholder tickers, non-Latin
// counterparty-from values and unusable timestamps or kind codes;
// unparseable numerics are zeroed, never propagated as failures.
func Preprocess(rows []domain.RawLedgerRow) []domain.LedgerEntry {
	entries := make([]domain.LedgerEntry, 0, len(rows))
	dropped := 0

	for _, r := range rows {
		if placeholderTickers[r.Ticker] {
			dropped++
			continue
		}
		if hasNonLatinLetter(r.FromAddr) {
			dropped++
			continue
		}
		category, ok := domain.ParseCategory(r.Kind)
		if !ok {
			dropped++
			continue
		}
		at, ok := parseTimestamp(r.TradeDate, r.TradeTime)
		if !ok {
			slog.Warn("ledger row has unparseable timestamp",
				"account_id", r.AccountID,
				"trade_date", r.TradeDate,
				"trade_time", r.TradeTime,
			)
			dropped++
			continue
		}

		entries = append(entries, domain.LedgerEntry{
			AccountID: r.AccountID,
			Ticker:    r.Ticker,
			At:        at,
			Category:  category,
			Quantity:  coerceDecimal(r.Quantity),
			UnitPrice: coerceDecimal(r.UnitPrice),
			Amount:    coerceDecimal(r.Amount),
			AmountKRW: coerceDecimal(r.AmountKRW),
			FromAddr:  r.FromAddr,
			ToAddr:    r.ToAddr,
		})
	}

	if dropped > 0 {
		slog.Debug("ledger preprocessing dropped rows",
			"dropped", dropped,
			"kept", len(entries),
		)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].At.Before(entries[j].At)
	})
	return entries
}

// hasNonLatinLetter reports whether s contains a letter outside the Latin
// script. Historical report output depends on dropping such counterparty
// rows; do not generalize without confirming the filter's intent.
func hasNonLatinLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) && !unicode.Is(unicode.Latin, r) {
			return true
		}
	}
	return false
}

func parseTimestamp(date, clock string) (time.Time, bool) {
	if clock != "" {
		if t, err := time.Parse(timestampLayout, date+" "+clock); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(dateLayout, date); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func coerceDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
