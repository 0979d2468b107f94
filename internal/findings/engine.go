// Package findings evaluates configurable CEL expressions over a finished
// run's aggregates. Matches become report highlights; they never change
// pipeline behavior.
package findings

import (
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Engine holds the compiled finding programs. Compile once at startup;
// evaluation is read-only and safe for concurrent runs.
type Engine struct {
	compiled []compiledFinding
}

type compiledFinding struct {
	cfg     domain.FindingConfig
	program cel.Program
}

// Input carries the run aggregates a finding expression can see.
type Input struct {
	Summary           *domain.ActivitySummary
	CounterpartyCount int
	DuplicateCount    int
}

// NewEngine compiles the configured finding expressions. Every expression
// must evaluate to bool.
func NewEngine(configs []domain.FindingConfig) (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("totals", cel.MapType(cel.StringType, cel.DoubleType)),
		cel.Variable("counts", cel.MapType(cel.StringType, cel.IntType)),
		cel.Variable("entry_count", cel.IntType),
		cel.Variable("counterparty_count", cel.IntType),
		cel.Variable("duplicate_count", cel.IntType),
		cel.Variable("window_days", cel.IntType),
		cel.Variable("ledger_available", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel environment: %w", err)
	}

	e := &Engine{}
	for _, cfg := range configs {
		ast, issues := env.Compile(cfg.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("compile finding %s: %w", cfg.ID, issues.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("finding %s: expression must return bool, got %s", cfg.ID, ast.OutputType())
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("program for finding %s: %w", cfg.ID, err)
		}
		e.compiled = append(e.compiled, compiledFinding{cfg: cfg, program: program})
	}
	return e, nil
}

// Evaluate runs every finding against the input. Evaluation failures are
// soft: the finding is skipped with a logged warning.
func (e *Engine) Evaluate(input *Input) []domain.Finding {
	if e == nil || len(e.compiled) == 0 {
		return nil
	}
	activation := buildActivation(input)

	var out []domain.Finding
	for _, f := range e.compiled {
		val, _, err := f.program.Eval(activation)
		if err != nil {
			slog.Warn("finding evaluation failed",
				"finding_id", f.cfg.ID,
				"error", err,
			)
			continue
		}
		if matched, ok := val.(types.Bool); ok && bool(matched) {
			out = append(out, domain.Finding{
				ID:       f.cfg.ID,
				Severity: f.cfg.Severity,
				Message:  f.cfg.Message,
			})
		}
	}
	return out
}

func buildActivation(input *Input) map[string]any {
	totals := make(map[string]float64, len(domain.Categories))
	counts := make(map[string]int64, len(domain.Categories))
	for _, cat := range domain.Categories {
		totals[string(cat)] = 0
		counts[string(cat)] = 0
	}

	entryCount := 0
	windowDays := 0
	available := false
	if s := input.Summary; s != nil {
		available = s.LedgerAvailable
		entryCount = s.EntryCount
		if s.Window != nil {
			windowDays = s.Window.Days()
		}
		for _, a := range s.Actions {
			totals[string(a.Category)] = a.TotalKRW.InexactFloat64()
			counts[string(a.Category)] = int64(a.Count)
		}
	}

	return map[string]any{
		"totals":             totals,
		"counts":             counts,
		"entry_count":        entryCount,
		"counterparty_count": input.CounterpartyCount,
		"duplicate_count":    input.DuplicateCount,
		"window_days":        windowDays,
		"ledger_available":   available,
	}
}
