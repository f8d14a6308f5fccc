// Package batch decodes arrival batches and runs each record through anomaly
// detection and guarded persistence, isolating per-record failures.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/gridpulse/internal/alerting"
	"github.com/vietddude/gridpulse/internal/anomaly"
	"github.com/vietddude/gridpulse/internal/core/domain"
	"github.com/vietddude/gridpulse/internal/infra/metrics"
	"github.com/vietddude/gridpulse/internal/infra/storage"
	"github.com/vietddude/gridpulse/internal/resilience"
)

// Notifier routes qualifying anomaly and error contexts to alert channels.
type Notifier interface {
	Notify(ctx context.Context, in alerting.Input) (alerting.Outcome, error)
}

// Observer accumulates daily counters for every processed record and error.
type Observer interface {
	ObserveRecord(rec *domain.EnergyRecord)
	ObserveError(ev *domain.ErrorEvent)
}

// Result summarizes one batch invocation. Attempted equals Persisted plus
// validation failures plus terminal persistence errors: no silent drops.
type Result struct {
	SourceKey string
	Attempted int
	Persisted int
	Failures  []domain.ValidationFailure
	Errors    []domain.ErrorEvent
}

// Processor is the batch ingestion pipeline.
type Processor struct {
	records  storage.RecordRepository
	events   storage.ErrorEventRepository
	retrier  *resilience.Retrier
	notifier Notifier
	observer Observer
	log      *slog.Logger

	now func() time.Time
}

// NewProcessor wires the pipeline stages together.
func NewProcessor(
	records storage.RecordRepository,
	events storage.ErrorEventRepository,
	retrier *resilience.Retrier,
	notifier Notifier,
	observer Observer,
) *Processor {
	return &Processor{
		records:  records,
		events:   events,
		retrier:  retrier,
		notifier: notifier,
		observer: observer,
		log:      slog.Default(),
		now:      time.Now,
	}
}

// rawRecord is one loosely-typed batch element before coercion.
type rawRecord struct {
	SiteID    any `json:"site_id"`
	Timestamp any `json:"timestamp"`
	Generated any `json:"energy_generated_kwh"`
	Consumed  any `json:"energy_consumed_kwh"`
}

// Process runs one batch. A batch-level failure (payload not decodable as a
// record sequence) is returned as an error and reported once by the caller;
// record-level failures never abort the batch.
func (p *Processor) Process(ctx context.Context, b domain.Batch) (*Result, error) {
	start := p.now()

	var elements []json.RawMessage
	if err := json.Unmarshal(b.Payload, &elements); err != nil {
		return nil, fmt.Errorf("failed to decode batch %s: %w", b.SourceKey, err)
	}

	res := &Result{SourceKey: b.SourceKey, Attempted: len(elements)}

	for i, element := range elements {
		p.processElement(ctx, b.SourceKey, i, element, res)
	}

	metrics.BatchDuration.Observe(p.now().Sub(start).Seconds())
	p.log.Info("Batch processed",
		"source", b.SourceKey,
		"attempted", res.Attempted,
		"persisted", res.Persisted,
		"validation_failures", len(res.Failures),
		"errors", len(res.Errors),
	)
	return res, nil
}

func (p *Processor) processElement(
	ctx context.Context,
	sourceKey string,
	index int,
	element json.RawMessage,
	res *Result,
) {
	rec, vf := p.parse(index, element)
	if vf != nil {
		res.Failures = append(res.Failures, *vf)
		metrics.ValidationFailures.Inc()
		p.log.Warn("Record validation failed",
			"kind", domain.ErrorKindValidation,
			"source", sourceKey,
			"source_index", vf.SourceIndex,
			"reason", vf.Reason,
		)
		p.observer.ObserveError(&domain.ErrorEvent{
			ID:        uuid.New().String(),
			Kind:      domain.ErrorKindValidation,
			Message:   vf.Reason,
			Context:   domain.ErrorContext{Resource: "batch", Operation: "parse_record", SourceKey: sourceKey},
			Timestamp: p.now().UTC(),
		})
		return
	}

	metrics.RecordsProcessed.WithLabelValues(rec.SiteID).Inc()
	if rec.Anomaly {
		for _, reason := range rec.AnomalyReasons {
			metrics.AnomaliesDetected.WithLabelValues(rec.SiteID, string(reason)).Inc()
		}
	}

	ectx := domain.ErrorContext{
		Resource:  domain.ResourceEnergyStore,
		Operation: "put_record",
		SiteID:    rec.SiteID,
		SourceKey: sourceKey,
	}
	outcome := p.retrier.Do(ctx, ectx, func(ctx context.Context) error {
		return p.records.Save(ctx, rec)
	})

	// All attempt-level events go to the event log, resolved or not.
	for i := range outcome.Events {
		if err := p.events.Save(ctx, &outcome.Events[i]); err != nil {
			p.log.Warn("Failed to record error event", "error", err)
		}
	}

	if outcome.Err != nil {
		ev := outcome.LastEvent()
		res.Errors = append(res.Errors, *ev)
		p.observer.ObserveError(ev)
		if _, err := p.notifier.Notify(ctx, alerting.Input{Event: ev}); err != nil {
			p.log.Warn("Failed to route error alert", "error", err)
		}
		return
	}

	res.Persisted++
	metrics.RecordsPersisted.WithLabelValues(rec.SiteID).Inc()
	p.observer.ObserveRecord(rec)

	if rec.Anomaly {
		if _, err := p.notifier.Notify(ctx, alerting.Input{Record: rec}); err != nil {
			p.log.Warn("Failed to route anomaly alert", "error", err)
		}
	}
}

// parse coerces one element into a typed record. Structural problems (bad
// shape, unusable site or timestamp) yield a ValidationFailure; missing or
// non-numeric energy fields yield a valid record flagged missing_field.
func (p *Processor) parse(index int, element json.RawMessage) (*domain.EnergyRecord, *domain.ValidationFailure) {
	fail := func(reason string) (*domain.EnergyRecord, *domain.ValidationFailure) {
		return nil, &domain.ValidationFailure{
			SourceIndex: index,
			Reason:      reason,
			RawPayload:  string(element),
		}
	}

	var raw rawRecord
	if err := json.Unmarshal(element, &raw); err != nil {
		return fail("element is not a JSON object")
	}

	siteID, ok := raw.SiteID.(string)
	if !ok || siteID == "" {
		return fail("missing or invalid site_id")
	}
	timestamp, ok := raw.Timestamp.(string)
	if !ok || timestamp == "" {
		return fail("missing or invalid timestamp")
	}

	candidate := anomaly.Candidate{
		GeneratedKWh: coerceFloat(raw.Generated),
		ConsumedKWh:  coerceFloat(raw.Consumed),
	}
	det := anomaly.Detect(candidate)

	rec := &domain.EnergyRecord{
		SiteID:         siteID,
		Timestamp:      timestamp,
		NetEnergyKWh:   det.NetEnergyKWh,
		Anomaly:        det.Anomaly,
		AnomalyReasons: det.Reasons,
		ProcessedAt:    p.now().UTC().Format(time.RFC3339),
	}
	if candidate.GeneratedKWh != nil {
		rec.EnergyGeneratedKWh = *candidate.GeneratedKWh
	}
	if candidate.ConsumedKWh != nil {
		rec.EnergyConsumedKWh = *candidate.ConsumedKWh
	}
	return rec, nil
}

// coerceFloat accepts JSON numbers and numeric strings; anything else counts
// as missing.
func coerceFloat(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}
