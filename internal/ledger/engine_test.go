package ledger

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/harrier/internal/domain"
)

func row(acct, ticker, date, clock, kind, qty, price, amount, amountKRW string) domain.RawLedgerRow {
	return domain.RawLedgerRow{
		AccountID: acct,
		Ticker:    ticker,
		TradeDate: date,
		TradeTime: clock,
		Kind:      kind,
		Quantity:  qty,
		UnitPrice: price,
		Amount:    amount,
		AmountKRW: amountKRW,
	}
}

func testEngine() *Engine {
	return NewEngine(domain.PipelineConfig{
		InternalAddrPrefix: "EXW",
		InternalAddrSuffix: "-INT",
	})
}

func TestPreprocess(t *testing.T) {
	t.Run("drops placeholder tickers", func(t *testing.T) {
		rows := []domain.RawLedgerRow{
			row("A1", "-", "2025-01-01", "10:00:00", "B", "1", "100", "100", "100"),
			row("A1", "N/A", "2025-01-01", "10:01:00", "B", "1", "100", "100", "100"),
			row("A1", "BTC", "2025-01-01", "10:02:00", "B", "1", "100", "100", "100"),
		}
		entries := Preprocess(rows)
		if len(entries) != 1 || entries[0].Ticker != "BTC" {
			t.Fatalf("expected only BTC row to survive, got %d entries", len(entries))
		}
	})

	t.Run("drops rows with non-latin from address", func(t *testing.T) {
		rows := []domain.RawLedgerRow{
			{AccountID: "A1", Ticker: "BTC", TradeDate: "2025-01-01", TradeTime: "10:00:00", Kind: "DC", FromAddr: "외부지갑1", Amount: "1"},
			{AccountID: "A1", Ticker: "BTC", TradeDate: "2025-01-01", TradeTime: "10:01:00", Kind: "DC", FromAddr: "wallet-77", Amount: "1"},
		}
		entries := Preprocess(rows)
		if len(entries) != 1 || entries[0].FromAddr != "wallet-77" {
			t.Fatalf("expected non-latin from address to be dropped, got %d entries", len(entries))
		}
	})

	t.Run("zeroes unparseable numerics", func(t *testing.T) {
		rows := []domain.RawLedgerRow{
			row("A1", "BTC", "2025-01-01", "10:00:00", "B", "abc", "", "100", "oops"),
		}
		entries := Preprocess(rows)
		if len(entries) != 1 {
			t.Fatalf("expected row to survive with zeroed fields, got %d", len(entries))
		}
		if !entries[0].Quantity.IsZero() || !entries[0].AmountKRW.IsZero() {
			t.Errorf("bad numerics should coerce to zero: qty=%s krw=%s",
				entries[0].Quantity, entries[0].AmountKRW)
		}
		if !entries[0].Amount.Equal(decimal.NewFromInt(100)) {
			t.Errorf("valid numeric lost: %s", entries[0].Amount)
		}
	})

	t.Run("drops unknown kind codes and bad timestamps", func(t *testing.T) {
		rows := []domain.RawLedgerRow{
			row("A1", "BTC", "2025-01-01", "10:00:00", "XX", "1", "", "1", "1"),
			row("A1", "BTC", "not-a-date", "10:00:00", "B", "1", "", "1", "1"),
			row("A1", "BTC", "2025-01-01", "", "B", "1", "", "1", "1"),
		}
		entries := Preprocess(rows)
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry (date-only timestamp kept), got %d", len(entries))
		}
	})

	t.Run("sorts chronologically", func(t *testing.T) {
		rows := []domain.RawLedgerRow{
			row("A1", "BTC", "2025-01-02", "10:00:00", "B", "1", "", "1", "1"),
			row("A1", "BTC", "2025-01-01", "10:00:00", "B", "1", "", "1", "1"),
		}
		entries := Preprocess(rows)
		if !entries[0].At.Before(entries[1].At) {
			t.Error("entries not sorted ascending")
		}
	})
}

func TestSegmentize(t *testing.T) {
	rows := []domain.RawLedgerRow{
		row("A1", "BTC", "2025-01-01", "10:00:00", "B", "0.5", "50000000", "25000000", "25000000"),
		row("A1", "ETH", "2025-01-01", "10:05:00", "B", "10", "3000000", "30000000", "30000000"),
		row("A1", "BTC", "2025-01-01", "11:00:00", "S", "0.5", "51000000", "25500000", "25500000"),
		row("A1", "KRW", "2025-01-02", "09:00:00", "DK", "", "", "10000000", "10000000"),
	}
	segments := Segmentize(Preprocess(rows))

	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}

	buy := segments[0]
	if buy.Category != domain.CategoryBuy || buy.Entries != 2 {
		t.Errorf("first segment should be 2 buys, got %s with %d entries", buy.Category, buy.Entries)
	}
	if buy.Duration != "5분" {
		t.Errorf("expected duration 5분, got %q", buy.Duration)
	}
	if !buy.TotalKRW.Equal(decimal.NewFromInt(55000000)) {
		t.Errorf("buy segment KRW total = %s, want 55000000", buy.TotalKRW)
	}
	if buy.MainTickers != "ETH, BTC" {
		t.Errorf("main tickers ranked by absolute KRW, got %q", buy.MainTickers)
	}

	if segments[1].Category != domain.CategorySell || segments[2].Category != domain.CategoryKRWDeposit {
		t.Errorf("segment order wrong: %s, %s", segments[1].Category, segments[2].Category)
	}
	if segments[2].Duration != "0초" {
		t.Errorf("single-entry segment duration = %q, want 0초", segments[2].Duration)
	}
}

func TestSegmentizeSeparatesAccounts(t *testing.T) {
	rows := []domain.RawLedgerRow{
		row("A1", "BTC", "2025-01-01", "10:00:00", "B", "1", "", "1", "100"),
		row("A2", "BTC", "2025-01-01", "10:01:00", "B", "1", "", "1", "100"),
		row("A1", "BTC", "2025-01-01", "10:02:00", "B", "1", "", "1", "100"),
	}
	summary := testEngine().Summarize(rows, nil, true)

	// A1's run must not be split by A2's interleaved entry.
	if len(summary.Segments) != 2 {
		t.Fatalf("expected 2 segments (one per account), got %d", len(summary.Segments))
	}
	if summary.Segments[0].Entries != 2 || summary.Segments[1].Entries != 1 {
		t.Errorf("segment entry counts = %d, %d; want 2, 1",
			summary.Segments[0].Entries, summary.Segments[1].Entries)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{5 * time.Minute, "5분"},
		{5*time.Minute + 30*time.Second, "5분 30초"},
		{3 * time.Hour, "3시간"},
		{3*time.Hour + 20*time.Minute, "3시간 20분"},
		{3*time.Hour + 20*time.Minute + 59*time.Second, "3시간 20분"},
		{45 * time.Second, "45초"},
		{0, "0초"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.d); got != c.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}

func TestFormatKRW(t *testing.T) {
	cases := []struct {
		amount int64
		want   string
	}{
		{123456789, "1억 2345만 6789원"},
		{100000000, "1억원"},
		{50000, "5만원"},
		{6789, "6789원"},
		{0, "0원"},
		{-123456789, "-1억 2345만 6789원"},
	}
	for _, c := range cases {
		if got := FormatKRW(decimal.NewFromInt(c.amount)); got != c.want {
			t.Errorf("FormatKRW(%d) = %q, want %q", c.amount, got, c.want)
		}
	}
}

func TestAggregateConservation(t *testing.T) {
	rows := []domain.RawLedgerRow{
		row("A1", "BTC", "2025-01-01", "10:00:00", "B", "1", "", "100", "1000"),
		row("A1", "ETH", "2025-01-01", "10:05:00", "B", "2", "", "200", "2000"),
		row("A1", "BTC", "2025-01-02", "10:00:00", "S", "1", "", "100", "1500"),
		row("A2", "XRP", "2025-01-03", "10:00:00", "B", "100", "", "50", "500"),
	}
	summary := testEngine().Summarize(rows, nil, true)

	var segTotal, actTotal decimal.Decimal
	for _, s := range summary.Segments {
		segTotal = segTotal.Add(s.TotalKRW)
	}
	for _, a := range summary.Actions {
		actTotal = actTotal.Add(a.TotalKRW)
	}
	if !segTotal.Equal(actTotal) {
		t.Errorf("segment total %s != action total %s", segTotal, actTotal)
	}

	segEntries := 0
	for _, s := range summary.Segments {
		segEntries += s.Entries
	}
	if segEntries != summary.EntryCount {
		t.Errorf("segments cover %d entries, ledger has %d", segEntries, summary.EntryCount)
	}
}

func TestDailyInternalExternalSplit(t *testing.T) {
	rows := []domain.RawLedgerRow{
		{AccountID: "A1", Ticker: "BTC", TradeDate: "2025-01-01", TradeTime: "10:00:00", Kind: "WC",
			Amount: "1", AmountKRW: "1000000", FromAddr: "EXW0001-INT", ToAddr: "EXW0002-INT"},
		{AccountID: "A1", Ticker: "BTC", TradeDate: "2025-01-01", TradeTime: "11:00:00", Kind: "WC",
			Amount: "2", AmountKRW: "2000000", FromAddr: "EXW0001-INT", ToAddr: "bc1qexternal"},
		{AccountID: "A1", Ticker: "BTC", TradeDate: "2025-01-01", TradeTime: "12:00:00", Kind: "B",
			Quantity: "1", AmountKRW: "3000000"},
	}
	summary := testEngine().Summarize(rows, nil, true)

	if len(summary.Daily) != 1 {
		t.Fatalf("expected 1 daily bucket, got %d", len(summary.Daily))
	}
	wc := summary.Daily[0].Actions[domain.CategoryCryptoWithdraw]
	if wc == nil {
		t.Fatal("crypto withdraw action missing")
	}
	if wc.InternalCount != 1 || !wc.InternalKRW.Equal(decimal.NewFromInt(1000000)) {
		t.Errorf("internal split: count=%d krw=%s", wc.InternalCount, wc.InternalKRW)
	}
	if wc.ExternalCount != 1 || !wc.ExternalKRW.Equal(decimal.NewFromInt(2000000)) {
		t.Errorf("external split: count=%d krw=%s", wc.ExternalCount, wc.ExternalKRW)
	}

	buy := summary.Daily[0].Actions[domain.CategoryBuy]
	if buy == nil || buy.InternalCount != 0 || buy.ExternalCount != 0 {
		t.Error("non-crypto category must not carry an internal/external split")
	}
}

func TestNarrative(t *testing.T) {
	window := &domain.TimeWindow{
		Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	}

	t.Run("unavailable ledger", func(t *testing.T) {
		summary := testEngine().Summarize(nil, window, false)
		if summary.Narrative != narrativeUnavailable {
			t.Errorf("got %q", summary.Narrative)
		}
	})

	t.Run("empty ledger", func(t *testing.T) {
		summary := testEngine().Summarize(nil, window, true)
		if summary.Narrative != narrativeNoData {
			t.Errorf("got %q", summary.Narrative)
		}
	})

	t.Run("per category sentences", func(t *testing.T) {
		rows := []domain.RawLedgerRow{
			row("A1", "BTC", "2025-01-10", "10:00:00", "B", "1", "", "123456789", "123456789"),
			row("A1", "KRW", "2025-01-11", "10:00:00", "DK", "", "", "50000", "50000"),
		}
		summary := testEngine().Summarize(rows, window, true)

		if !strings.Contains(summary.Narrative, "조사 기간: 2025-01-01 ~ 2025-03-31") {
			t.Errorf("window header missing: %q", summary.Narrative)
		}
		if !strings.Contains(summary.Narrative, "매수 총 1억 2345만 6789원, 1건") {
			t.Errorf("buy sentence missing: %q", summary.Narrative)
		}
		if !strings.Contains(summary.Narrative, "원화 입금 총 5만원, 1건") {
			t.Errorf("deposit sentence missing: %q", summary.Narrative)
		}
		if !strings.Contains(summary.Narrative, "주요 종목: BTC") {
			t.Errorf("main ticker detail missing: %q", summary.Narrative)
		}
		if strings.Contains(summary.Narrative, "매도") {
			t.Errorf("zero category must be omitted: %q", summary.Narrative)
		}
	})
}
