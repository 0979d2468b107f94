// Package pipeline orchestrates the four investigation stages and the
// aggregation engine for one alert. Stages 1 and 2 are prerequisites and
// fail the run; stages 3 and 4 are enrichments and fail soft.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/harrier/internal/dataset"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/findings"
	"github.com/opensource-finance/harrier/internal/ledger"
	"github.com/opensource-finance/harrier/internal/metrics"
)

// Stage names as recorded in run metadata when skipped.
const (
	StageAccessHistory = "access_history"
	StageLedger        = "ledger"
)

// RunResult is the public outcome of one investigation run. Export holds
// whatever completed; on failure it contains the datasets persisted before
// the fatal stage.
type RunResult struct {
	RunID    string           `json:"runId"`
	AlertID  string           `json:"alertId"`
	Success  bool             `json:"success"`
	Skipped  []string         `json:"skipped,omitempty"`
	Error    string           `json:"error,omitempty"`
	Kind     string           `json:"errorKind,omitempty"`
	Findings []domain.Finding `json:"findings,omitempty"`
	Export   *dataset.Export  `json:"export,omitempty"`
}

// Pipeline runs investigations. Safe for concurrent runs; each run owns
// its Dataset Store and the stages within a run are strictly sequential.
type Pipeline struct {
	cases    domain.CaseStore
	ledgers  domain.LedgerStore
	cache    domain.LedgerCache
	engine   *ledger.Engine
	findings *findings.Engine
	cfg      domain.PipelineConfig
	cacheTTL time.Duration
	tracer   trace.Tracer
}

// New creates a pipeline. The cache and findings engine are optional.
func New(cases domain.CaseStore, ledgers domain.LedgerStore, cache domain.LedgerCache,
	fe *findings.Engine, cfg domain.PipelineConfig, cacheTTL time.Duration) *Pipeline {
	return &Pipeline{
		cases:    cases,
		ledgers:  ledgers,
		cache:    cache,
		engine:   ledger.NewEngine(cfg),
		findings: fe,
		cfg:      cfg,
		cacheTTL: cacheTTL,
		tracer:   otel.Tracer("harrier/pipeline"),
	}
}

// Run executes the full investigation for one alert id.
func (p *Pipeline) Run(ctx context.Context, alertID string) *RunResult {
	started := time.Now()
	metrics.RunsStarted.Inc()

	res := &RunResult{
		RunID:   uuid.New().String(),
		AlertID: alertID,
	}
	store := dataset.NewStore()
	store.SetMeta("run_id", res.RunID)
	store.SetMeta("alert_id", alertID)

	ctx, span := p.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(
			attribute.String("alert_id", alertID),
			attribute.String("run_id", res.RunID),
		))
	defer span.End()

	log := slog.With("run_id", res.RunID, "alert_id", alertID)

	fail := func(stage string, err error) *RunResult {
		res.Kind = classify(err)
		res.Error = stageErr(stage, err).Error()
		res.Export = store.Export()
		log.Error("investigation run failed", "stage", stage, "kind", res.Kind, "error", err)
		metrics.RunsFailed.WithLabelValues(res.Kind).Inc()
		metrics.RunDuration.Observe(time.Since(started).Seconds())
		return res
	}
	skip := func(stage string, err error) {
		res.Skipped = append(res.Skipped, stage)
		metrics.StagesSkipped.WithLabelValues(stage).Inc()
		if err != nil {
			log.Warn("stage skipped", "stage", stage, "error", err)
		} else {
			log.Info("stage skipped", "stage", stage)
		}
	}

	// Stage 1: alert resolution. Fatal.
	sctx, s1 := p.tracer.Start(ctx, "pipeline.stage1")
	ac, err := p.resolveAlert(sctx, alertID)
	s1.End()
	if err != nil {
		return fail("stage 1", err)
	}
	if err := persistAlert(store, ac); err != nil {
		return fail("stage 1", err)
	}
	log.Info("stage 1 complete",
		"case_id", ac.CaseID,
		"cust_id", ac.CustID,
		"rules", len(ac.CanonicalRuleIDs),
	)

	// Stage 2: identity and network. Fatal.
	sctx, s2 := p.tracer.Start(ctx, "pipeline.stage2")
	ident, err := p.resolveIdentity(sctx, ac.CustID, ac.TransactionWindow)
	s2.End()
	if err != nil {
		return fail("stage 2", err)
	}
	if err := persistIdentity(store, ident); err != nil {
		return fail("stage 2", err)
	}
	store.SetMeta("customer_type", string(ident.Type))
	log.Info("stage 2 complete",
		"customer_type", ident.Type,
		"related_parties", len(ident.Parties),
		"duplicate_candidates", len(ident.Duplicates),
	)

	// Stage 3: access history. Individuals only; soft.
	if ident.Type == domain.CustomerIndividual && len(ident.Accounts) > 0 && ac.TransactionWindow != nil {
		sctx, s3 := p.tracer.Start(ctx, "pipeline.stage3")
		records, err := p.resolveAccess(sctx, ident.Accounts, ac.TransactionWindow)
		s3.End()
		if err != nil {
			skip(StageAccessHistory, err)
		} else if err := persistAccess(store, records); err != nil {
			skip(StageAccessHistory, err)
		} else {
			log.Info("stage 3 complete", "access_events", len(records))
		}
	} else {
		skip(StageAccessHistory, nil)
	}

	// Stage 4: ledger fetch. Best-effort.
	window := DeriveWindow(ac.Rows, ac.CanonicalRuleIDs, ident.Profile.KYCCompletedAt, p.cfg)
	var raw []domain.RawLedgerRow
	available := false
	if window == nil || len(ident.Accounts) == 0 {
		skip(StageLedger, nil)
	} else {
		sctx, s4 := p.tracer.Start(ctx, "pipeline.stage4")
		raw, err = p.fetchLedger(sctx, ident.Accounts, *window)
		s4.End()
		if err != nil {
			skip(StageLedger, err)
			raw = nil
		} else {
			available = true
			log.Info("stage 4 complete", "ledger_rows", len(raw))
		}
	}

	// Aggregation engine; always runs so the narrative can state that the
	// ledger was unavailable rather than omitting the section.
	summary := p.engine.Summarize(raw, window, available)
	if err := persistLedger(store, summary); err != nil {
		return fail("aggregation", err)
	}
	store.SetMeta("narrative", summary.Narrative)
	store.SetMeta("ledger_available", summary.LedgerAvailable)
	store.SetMeta("ledger_entries", summary.EntryCount)
	if len(res.Skipped) > 0 {
		store.SetMeta("skipped_stages", append([]string(nil), res.Skipped...))
	}

	res.Findings = p.findings.Evaluate(&findings.Input{
		Summary:           summary,
		CounterpartyCount: countParties(ident.Parties, domain.PartyCounterparty),
		DuplicateCount:    len(ident.Duplicates),
	})

	res.Success = true
	res.Export = store.Export()
	metrics.RunsSucceeded.Inc()
	metrics.RunDuration.Observe(time.Since(started).Seconds())
	log.Info("investigation run complete",
		"skipped", res.Skipped,
		"findings", len(res.Findings),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return res
}

func countParties(parties []domain.RelatedParty, kind domain.RelatedPartyKind) int {
	n := 0
	for _, p := range parties {
		if p.Kind == kind {
			n++
		}
	}
	return n
}
