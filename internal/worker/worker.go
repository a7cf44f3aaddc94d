package worker

import (
	"context"
	"errors"
	"fmt"

	"donor-crm/internal/core/ports"
	"donor-crm/internal/domain"
	"donor-crm/internal/metrics"
	"donor-crm/internal/pkg/logger"
)

type Options struct {
	// MaxConsecutiveFailures > 0 halts a run into error after that many
	// failed steps in a row
	MaxConsecutiveFailures int
}

// Worker advances journey runs one step at a time
type Worker struct {
	runs     ports.RunRepository
	journeys ports.JourneyRepository
	contacts ports.ContactRepository
	eventBus ports.EventBus
	registry NodeRegistry
	clock    ports.Clock
	log      *logger.Logger
	metrics  *metrics.Metrics
	opts     Options
}

func NewWorker(
	runs ports.RunRepository,
	journeys ports.JourneyRepository,
	contacts ports.ContactRepository,
	bus ports.EventBus,
	reg NodeRegistry,
	clock ports.Clock,
	log *logger.Logger,
	m *metrics.Metrics,
	opts Options,
) *Worker {
	return &Worker{
		runs:     runs,
		journeys: journeys,
		contacts: contacts,
		eventBus: bus,
		registry: reg,
		clock:    clock,
		log:      log.Component("worker"),
		metrics:  m,
		opts:     opts,
	}
}

// ProcessRun handles exactly ONE step of a run: claim, execute, persist.
// A lost claim returns domain.ErrClaimConflict and changes nothing.
func (w *Worker) ProcessRun(ctx context.Context, run *domain.JourneyRun) (domain.RunStatus, error) {
	// 1. CLAIM: optimistic lock on the version we read
	now := w.clock.Now()
	if err := w.runs.Claim(ctx, run.ID, run.Version, now); err != nil {
		return run.Status, err
	}
	run.MarkClaimed(now)

	// 2. STEP
	nodeID, err := w.step(ctx, run)
	if err != nil {
		// the claim goes stale and the run is picked up again later
		return run.Status, err
	}

	// 3. PERSIST
	if err := w.runs.SaveProgress(ctx, run); err != nil {
		return run.Status, fmt.Errorf("save run %s: %w", run.ID, err)
	}
	w.metrics.RunProcessed(string(run.Status))

	// 4. PUBLISH
	if err := w.eventBus.PublishRunEvent(ctx, domain.NewRunEvent(run, nodeID, w.clock.Now())); err != nil {
		w.log.Warn("Failed to publish run event", "run_id", run.ID, "error", err)
	}

	return run.Status, nil
}

// step applies the state machine to an in-memory claimed run. It returns the
// id of the node it executed, if any.
func (w *Worker) step(ctx context.Context, run *domain.JourneyRun) (string, error) {
	journey, err := w.journeys.GetByID(ctx, run.JourneyID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		w.log.Info("Journey gone, stopping run", "run_id", run.ID, "journey_id", run.JourneyID)
		run.Finish(domain.RunStopped)
		return "", nil
	case err != nil:
		return "", fmt.Errorf("load journey %s: %w", run.JourneyID, err)
	}

	if !journey.IsActive() {
		w.log.Info("Journey not active, stopping run", "run_id", run.ID, "journey_status", journey.Status)
		run.Finish(domain.RunStopped)
		return "", nil
	}

	node, ok := journey.NodeByID(run.CurrentNode())
	if !ok {
		w.log.Warn("Run points at unknown node, completing", "run_id", run.ID, "node_id", run.CurrentNode())
		run.Finish(domain.RunCompleted)
		return "", nil
	}

	contact, err := w.contacts.GetByID(ctx, run.ContactID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("load contact %s: %w", run.ContactID, err)
	}

	// EXECUTE: find the right handler and run it
	now := w.clock.Now()
	result := w.execute(ctx, node, contact)
	run.Record(domain.HistoryEntry{
		NodeID:     node.ID,
		NodeType:   node.Type,
		ExecutedAt: now,
		Result:     result,
	})
	w.metrics.NodeExecuted(string(node.Type), resultLabel(result))

	if !result.OK {
		w.log.Warn("Node failed", "run_id", run.ID, "node_id", node.ID, "type", node.Type, "error", result.Error)
		if limit := w.opts.MaxConsecutiveFailures; limit > 0 && run.ConsecutiveFailures() >= limit {
			w.log.Error("Run halted after repeated failures", "run_id", run.ID, "failures", limit)
			run.Finish(domain.RunError)
			return node.ID, nil
		}
	}

	next, ok := journey.NextNode(node.ID)
	if !ok {
		run.Finish(domain.RunCompleted)
		return node.ID, nil
	}
	run.Advance(next, now)
	return node.ID, nil
}

func (w *Worker) execute(ctx context.Context, node domain.Node, contact *domain.Contact) domain.NodeResult {
	handler, exists := w.registry[node.Type]
	if !exists {
		return domain.NodeResult{OK: false, Error: "unsupported node type"}
	}
	return handler(ctx, node, contact)
}

func resultLabel(r domain.NodeResult) string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.OK:
		return "ok"
	default:
		return "failed"
	}
}
