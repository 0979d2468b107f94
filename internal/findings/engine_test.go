package findings

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/harrier/internal/domain"
)

func TestNewEngineRejectsBadExpressions(t *testing.T) {
	_, err := NewEngine([]domain.FindingConfig{
		{ID: "broken", Expression: "totals['BUY'] >"},
	})
	if err == nil {
		t.Error("syntax error must fail compilation")
	}

	_, err = NewEngine([]domain.FindingConfig{
		{ID: "not-bool", Expression: "totals['BUY'] + 1.0"},
	})
	if err == nil {
		t.Error("non-bool expression must be rejected")
	}

	_, err = NewEngine([]domain.FindingConfig{
		{ID: "unknown-var", Expression: "velocity > 10"},
	})
	if err == nil {
		t.Error("undeclared variable must fail compilation")
	}
}

func TestEvaluate(t *testing.T) {
	engine, err := NewEngine([]domain.FindingConfig{
		{ID: "heavy-buying", Severity: "high",
			Expression: "totals['BUY'] > 100000000.0",
			Message:    "매수 총액이 1억원을 초과"},
		{ID: "no-ledger", Severity: "low",
			Expression: "!ledger_available",
			Message:    "원장 조회 실패"},
		{ID: "many-duplicates", Severity: "medium",
			Expression: "duplicate_count >= 3 && counterparty_count > 0",
			Message:    "중복 고객 다수"},
	})
	if err != nil {
		t.Fatal(err)
	}

	window := &domain.TimeWindow{}
	input := &Input{
		Summary: &domain.ActivitySummary{
			Window:          window,
			LedgerAvailable: true,
			EntryCount:      12,
			Actions: []domain.ActionSummary{
				{Category: domain.CategoryBuy, Count: 8, TotalKRW: decimal.NewFromInt(150000000)},
				{Category: domain.CategorySell, Count: 4, TotalKRW: decimal.NewFromInt(20000000)},
			},
		},
		CounterpartyCount: 2,
		DuplicateCount:    5,
	}

	got := engine.Evaluate(input)
	if len(got) != 2 {
		t.Fatalf("findings = %+v, want 2", got)
	}
	if got[0].ID != "heavy-buying" || got[0].Severity != "high" {
		t.Errorf("first finding = %+v", got[0])
	}
	if got[1].ID != "many-duplicates" {
		t.Errorf("second finding = %+v", got[1])
	}
}

func TestEvaluateUnavailableLedger(t *testing.T) {
	engine, err := NewEngine([]domain.FindingConfig{
		{ID: "no-ledger", Expression: "!ledger_available"},
		{ID: "zero-buys", Expression: "counts['BUY'] == 0"},
	})
	if err != nil {
		t.Fatal(err)
	}

	// nil summary: every total and count defaults to zero.
	got := engine.Evaluate(&Input{})
	if len(got) != 2 {
		t.Fatalf("findings = %+v, want both defaults to match", got)
	}
}

func TestEvaluateNilEngine(t *testing.T) {
	var engine *Engine
	if got := engine.Evaluate(&Input{}); got != nil {
		t.Errorf("nil engine Evaluate = %+v", got)
	}

	empty, err := NewEngine(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := empty.Evaluate(&Input{}); got != nil {
		t.Errorf("empty engine Evaluate = %+v", got)
	}
}
