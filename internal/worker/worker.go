// Package worker consumes investigation requests from the event bus, runs
// the pipeline, and publishes the outcome.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/pipeline"
)

// Worker processes investigation requests asynchronously.
type Worker struct {
	bus  domain.EventBus
	pipe *pipeline.Pipeline

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates a worker bound to a bus and pipeline.
func NewWorker(bus domain.EventBus, pipe *pipeline.Pipeline) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		pipe:   pipe,
		ctx:    ctx,
		cancel: cancel,
	}
}

// RequestMessage is the payload of an investigation request.
type RequestMessage struct {
	AlertID string `json:"alertId"`
}

// OutcomeMessage is published on completion or failure. The masked export
// travels separately; this is the lifecycle envelope.
type OutcomeMessage struct {
	RunID    string   `json:"runId"`
	AlertID  string   `json:"alertId"`
	Success  bool     `json:"success"`
	Skipped  []string `json:"skipped,omitempty"`
	Error    string   `json:"error,omitempty"`
	Kind     string   `json:"errorKind,omitempty"`
	Findings int      `json:"findings"`
}

// Start subscribes to investigation requests.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicInvestigationRequested, w.handleRequest)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("worker started", "topic", domain.TopicInvestigationRequested)
	return nil
}

func (w *Worker) handleRequest(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var req RequestMessage
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		slog.Error("failed to parse investigation request",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}
	if req.AlertID == "" {
		slog.Error("investigation request without alert id", "message_id", msg.ID)
		return nil
	}

	res := w.pipe.Run(ctx, req.AlertID)

	outcome := OutcomeMessage{
		RunID:    res.RunID,
		AlertID:  res.AlertID,
		Success:  res.Success,
		Skipped:  res.Skipped,
		Error:    res.Error,
		Kind:     res.Kind,
		Findings: len(res.Findings),
	}
	payload, _ := json.Marshal(outcome)

	topic := domain.TopicInvestigationCompleted
	if !res.Success {
		topic = domain.TopicInvestigationFailed
	}
	if err := w.bus.Publish(ctx, topic, payload); err != nil {
		slog.Error("failed to publish investigation outcome",
			"run_id", res.RunID,
			"topic", topic,
			"error", err,
		)
	}

	slog.Info("investigation request processed",
		"alert_id", req.AlertID,
		"run_id", res.RunID,
		"success", res.Success,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Stop unsubscribes and waits for in-flight handlers.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("worker stopped")
	return nil
}
