package ledger

import (
	"sort"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Aggregate rolls the whole ledger up per category. Tickers within each
// category are ranked descending by absolute KRW amount. Categories with
// no entries are omitted; report order follows domain.Categories.
func Aggregate(entries []domain.LedgerEntry) []domain.ActionSummary {
	type bucket struct {
		summary domain.ActionSummary
		index   map[string]int
	}
	buckets := make(map[domain.Category]*bucket)

	for _, e := range entries {
		b, ok := buckets[e.Category]
		if !ok {
			b = &bucket{
				summary: domain.ActionSummary{Category: e.Category},
				index:   make(map[string]int),
			}
			buckets[e.Category] = b
		}
		b.summary.Count++
		b.summary.TotalKRW = b.summary.TotalKRW.Add(e.AmountKRW)

		i, ok := b.index[e.Ticker]
		if !ok {
			i = len(b.summary.Tickers)
			b.index[e.Ticker] = i
			b.summary.Tickers = append(b.summary.Tickers, domain.TickerAggregate{Ticker: e.Ticker})
		}
		agg := &b.summary.Tickers[i]
		agg.Quantity = agg.Quantity.Add(categoryQuantity(e))
		agg.Amount = agg.Amount.Add(e.Amount)
		agg.AmountKRW = agg.AmountKRW.Add(e.AmountKRW)
		agg.Count++
	}

	out := make([]domain.ActionSummary, 0, len(buckets))
	for _, cat := range domain.Categories {
		b, ok := buckets[cat]
		if !ok {
			continue
		}
		sort.SliceStable(b.summary.Tickers, func(i, j int) bool {
			return b.summary.Tickers[i].AmountKRW.Abs().GreaterThan(b.summary.Tickers[j].AmountKRW.Abs())
		})
		out = append(out, b.summary)
	}
	return out
}

// DailyBuckets groups entries by calendar date. Crypto categories carry an
// extra internal/external split decided by the address classifier.
func DailyBuckets(entries []domain.LedgerEntry, isInternal func(domain.LedgerEntry) bool) []domain.DailyBucket {
	type dayTickers map[domain.Category]map[string]int
	days := make(map[string]*domain.DailyBucket)
	tickerIdx := make(map[string]dayTickers)

	for _, e := range entries {
		date := e.At.Format(dateLayout)
		day, ok := days[date]
		if !ok {
			day = &domain.DailyBucket{
				Date:    date,
				Actions: make(map[domain.Category]*domain.DailyAction),
			}
			days[date] = day
			tickerIdx[date] = make(dayTickers)
		}

		action, ok := day.Actions[e.Category]
		if !ok {
			action = &domain.DailyAction{}
			day.Actions[e.Category] = action
			tickerIdx[date][e.Category] = make(map[string]int)
		}
		action.Count++
		action.TotalKRW = action.TotalKRW.Add(e.AmountKRW)

		idx := tickerIdx[date][e.Category]
		i, ok := idx[e.Ticker]
		if !ok {
			i = len(action.Tickers)
			idx[e.Ticker] = i
			action.Tickers = append(action.Tickers, domain.TickerAggregate{Ticker: e.Ticker})
		}
		agg := &action.Tickers[i]
		agg.Quantity = agg.Quantity.Add(categoryQuantity(e))
		agg.Amount = agg.Amount.Add(e.Amount)
		agg.AmountKRW = agg.AmountKRW.Add(e.AmountKRW)
		agg.Count++

		if e.Category.IsCrypto() {
			if isInternal != nil && isInternal(e) {
				action.InternalKRW = action.InternalKRW.Add(e.AmountKRW)
				action.InternalCount++
			} else {
				action.ExternalKRW = action.ExternalKRW.Add(e.AmountKRW)
				action.ExternalCount++
			}
		}
	}

	out := make([]domain.DailyBucket, 0, len(days))
	for _, day := range days {
		for _, action := range day.Actions {
			sort.SliceStable(action.Tickers, func(i, j int) bool {
				return action.Tickers[i].AmountKRW.Abs().GreaterThan(action.Tickers[j].AmountKRW.Abs())
			})
		}
		out = append(out, *day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
