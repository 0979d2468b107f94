package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Report phrasing for each category, in the register compliance officers
// file reports in.
var categoryLabels = map[domain.Category]string{
	domain.CategoryBuy:            "매수",
	domain.CategorySell:           "매도",
	domain.CategoryKRWDeposit:     "원화 입금",
	domain.CategoryKRWWithdraw:    "원화 출금",
	domain.CategoryCryptoDeposit:  "가상자산 입금",
	domain.CategoryCryptoWithdraw: "가상자산 출금",
}

const (
	narrativeNoData      = "조사 기간 중 거래 내역이 없습니다."
	narrativeUnavailable = "원장 데이터를 조회할 수 없어 거래 요약을 생성하지 못했습니다."
)

// Narrative renders the per-category report sentences from whole-ledger
// rollups. One sentence per non-zero category, in report order.
func Narrative(window *domain.TimeWindow, actions []domain.ActionSummary, available bool) string {
	if !available {
		return narrativeUnavailable
	}
	if len(actions) == 0 {
		return narrativeNoData
	}

	var b strings.Builder
	if window != nil {
		fmt.Fprintf(&b, "조사 기간: %s ~ %s\n",
			window.Start.Format(dateLayout), window.End.Format(dateLayout))
	}
	for _, a := range actions {
		label := categoryLabels[a.Category]
		fmt.Fprintf(&b, "기간 중 %s 총 %s, %d건", label, FormatKRW(a.TotalKRW), a.Count)
		if main := mainTickerLabel(a.Tickers, 3); main != "" && a.Category != domain.CategoryKRWDeposit && a.Category != domain.CategoryKRWWithdraw {
			fmt.Fprintf(&b, " (주요 종목: %s)", main)
		}
		b.WriteString(".\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatKRW renders an amount in the three-tier 억/만/원 convention used in
// report narratives. Tiers with a zero value are omitted; sub-won
// precision is rounded away.
func FormatKRW(v decimal.Decimal) string {
	n := v.Round(0).IntPart()
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	if n == 0 {
		return "0원"
	}

	eok := n / 100_000_000
	man := (n % 100_000_000) / 10_000
	won := n % 10_000

	var parts []string
	if eok > 0 {
		parts = append(parts, fmt.Sprintf("%d억", eok))
	}
	if man > 0 {
		parts = append(parts, fmt.Sprintf("%d만", man))
	}
	if won > 0 {
		parts = append(parts, fmt.Sprintf("%d", won))
	}
	return sign + strings.Join(parts, " ") + "원"
}
