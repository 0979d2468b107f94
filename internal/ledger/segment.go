package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Segmentize walks one account's sorted entries once and emits maximal
// same-category runs. Each category change closes the open segment.
func Segmentize(entries []domain.LedgerEntry) []domain.Segment {
	if len(entries) == 0 {
		return nil
	}

	var segments []domain.Segment
	var cur *segmentBuilder

	for _, e := range entries {
		if cur == nil || cur.category != e.Category {
			if cur != nil {
				segments = append(segments, cur.finish())
			}
			cur = newSegmentBuilder(e)
			continue
		}
		cur.add(e)
	}
	segments = append(segments, cur.finish())
	return segments
}

type segmentBuilder struct {
	category domain.Category
	start    time.Time
	end      time.Time
	entries  int
	totalKRW decimal.Decimal

	tickers []domain.TickerAggregate
	index   map[string]int
}

func newSegmentBuilder(e domain.LedgerEntry) *segmentBuilder {
	b := &segmentBuilder{
		category: e.Category,
		start:    e.At,
		index:    make(map[string]int),
	}
	b.add(e)
	return b
}

func (b *segmentBuilder) add(e domain.LedgerEntry) {
	b.end = e.At
	b.entries++
	b.totalKRW = b.totalKRW.Add(e.AmountKRW)

	i, ok := b.index[e.Ticker]
	if !ok {
		i = len(b.tickers)
		b.index[e.Ticker] = i
		b.tickers = append(b.tickers, domain.TickerAggregate{Ticker: e.Ticker})
	}
	agg := &b.tickers[i]
	agg.Quantity = agg.Quantity.Add(categoryQuantity(e))
	agg.Amount = agg.Amount.Add(e.Amount)
	agg.AmountKRW = agg.AmountKRW.Add(e.AmountKRW)
	agg.Count++
}

func (b *segmentBuilder) finish() domain.Segment {
	return domain.Segment{
		Category:    b.category,
		Start:       b.start,
		End:         b.end,
		Entries:     b.entries,
		TotalKRW:    b.totalKRW,
		Tickers:     b.tickers,
		Duration:    FormatDuration(b.end.Sub(b.start)),
		MainTickers: mainTickerLabel(b.tickers, 3),
	}
}

// categoryQuantity picks the quantity dimension for aggregation: trade
// quantity for buys and sells, transfer notional for crypto moves, zero
// for KRW cash legs which carry no asset quantity.
func categoryQuantity(e domain.LedgerEntry) decimal.Decimal {
	switch e.Category {
	case domain.CategoryBuy, domain.CategorySell:
		return e.Quantity
	case domain.CategoryCryptoDeposit, domain.CategoryCryptoWithdraw:
		return e.Amount
	default:
		return decimal.Zero
	}
}

// FormatDuration renders a span in its coarsest applicable unit with one
// sub-unit, omitting the sub-unit when it is zero ("5분", "3시간 20분").
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	switch {
	case hours > 0:
		if minutes == 0 {
			return fmt.Sprintf("%d시간", hours)
		}
		return fmt.Sprintf("%d시간 %d분", hours, minutes)
	case minutes > 0:
		if seconds == 0 {
			return fmt.Sprintf("%d분", minutes)
		}
		return fmt.Sprintf("%d분 %d초", minutes, seconds)
	default:
		return fmt.Sprintf("%d초", seconds)
	}
}

// mainTickerLabel lists the top n tickers by absolute KRW amount.
func mainTickerLabel(tickers []domain.TickerAggregate, n int) string {
	ranked := make([]domain.TickerAggregate, len(tickers))
	copy(ranked, tickers)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AmountKRW.Abs().GreaterThan(ranked[j].AmountKRW.Abs())
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	names := make([]string, len(ranked))
	for i, t := range ranked {
		names[i] = t.Ticker
	}
	return strings.Join(names, ", ")
}
