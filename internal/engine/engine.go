// internal/engine/engine.go
//
// BatchEngine drives the per-item pipeline (render prompt, call backend,
// write output) over a discovered batch. The central property is isolation:
// one malformed document or one backend hiccup fails its own item and
// nothing else. Cancellation is cooperative and observed between items.

package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"flowscribe/internal/config"
	"flowscribe/internal/discovery"
	"flowscribe/internal/llm"
	"flowscribe/internal/output"

	promptpkg "flowscribe/internal/prompt"
)

// Engine orchestrates one batch run. It holds no mutable state across runs;
// the configuration is read-only and shared by every worker.
type Engine struct {
	cfg     config.Config
	client  llm.Client
	builder *promptpkg.Builder
	writer  *output.Writer
	log     zerolog.Logger
}

// New wires the engine. Template validation happens here so a typoed
// placeholder fails before any item is attempted.
func New(cfg config.Config, client llm.Client, log zerolog.Logger) (*Engine, error) {
	builder, err := promptpkg.NewBuilder(cfg.Prompts)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:     cfg,
		client:  client,
		builder: builder,
		writer:  output.NewWriter(),
		log:     log,
	}, nil
}

// Run processes the batch and returns the aggregated result. Total is fixed
// at the size of items; cancelling ctx stops new work while items already in
// flight finish naturally. sink receives one event per terminal item and may
// be nil.
func (e *Engine) Run(ctx context.Context, items []discovery.WorkItem, sink ProgressSink) BatchResult {
	if sink == nil {
		sink = SinkFunc(func(Event) {})
	}

	res := BatchResult{RunID: uuid.NewString(), Total: len(items)}
	if len(items) == 0 {
		return res
	}

	e.log.Info().
		Str("run_id", res.RunID).
		Int("total", res.Total).
		Int("workers", e.cfg.Run.Workers).
		Bool("dry_run", e.cfg.Run.DryRun).
		Msg("batch started")

	if e.cfg.Run.Workers <= 1 {
		e.runSequential(ctx, items, sink, &res)
	} else {
		e.runConcurrent(ctx, items, sink, &res)
	}

	e.log.Info().
		Str("run_id", res.RunID).
		Int("succeeded", res.Succeeded).
		Int("failed", res.Failed).
		Bool("cancelled", res.Cancelled).
		Msg("batch finished")
	return res
}

// runSequential processes items one at a time in discovery order.
func (e *Engine) runSequential(ctx context.Context, items []discovery.WorkItem, sink ProgressSink, res *BatchResult) {
	consecutiveProtocol := 0
	for i, item := range items {
		if ctx.Err() != nil {
			res.Cancelled = true
			return
		}
		if e.protocolTripped(consecutiveProtocol) {
			res.Cancelled = true
			return
		}

		out := e.processItem(ctx, item)
		record(res, out)
		consecutiveProtocol = nextStreak(consecutiveProtocol, out)
		sink.Publish(Event{
			RunID:     res.RunID,
			Index:     i,
			Total:     res.Total,
			Outcome:   out,
			Succeeded: res.Succeeded,
			Failed:    res.Failed,
		})
	}
}

// runConcurrent processes items with a bounded worker pool. Workers share
// nothing per-item; the mutex guards only the aggregate counters and the
// outcome slots. Outcomes land at their discovery index, so the final order
// is deterministic regardless of completion order.
func (e *Engine) runConcurrent(ctx context.Context, items []discovery.WorkItem, sink ProgressSink, res *BatchResult) {
	workers := e.cfg.Run.Workers
	if workers > len(items) {
		workers = len(items)
	}

	type job struct {
		idx  int
		item discovery.WorkItem
	}

	jobs := make(chan job)
	slots := make([]*ItemOutcome, len(items))

	var mu sync.Mutex
	consecutiveProtocol := 0
	tripped := false

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				out := e.processItem(ctx, j.item)

				mu.Lock()
				slots[j.idx] = &out
				countTerminal(&res.Succeeded, &res.Failed, out)
				consecutiveProtocol = nextStreak(consecutiveProtocol, out)
				if e.protocolTripped(consecutiveProtocol) {
					tripped = true
				}
				ev := Event{
					RunID:     res.RunID,
					Index:     j.idx,
					Total:     res.Total,
					Outcome:   out,
					Succeeded: res.Succeeded,
					Failed:    res.Failed,
				}
				mu.Unlock()

				sink.Publish(ev)
			}
		}()
	}

	for i, item := range items {
		mu.Lock()
		stop := tripped
		mu.Unlock()
		if stop {
			res.Cancelled = true
			break
		}
		select {
		case <-ctx.Done():
			res.Cancelled = true
		case jobs <- job{idx: i, item: item}:
			continue
		}
		break
	}
	close(jobs)
	wg.Wait()

	mu.Lock()
	if tripped {
		res.Cancelled = true
	}
	mu.Unlock()

	for _, out := range slots {
		if out != nil {
			res.Outcomes = append(res.Outcomes, *out)
		}
	}
}

// processItem runs the full pipeline for one item and never returns an
// error: every failure is caught here and folded into the outcome.
func (e *Engine) processItem(ctx context.Context, item discovery.WorkItem) ItemOutcome {
	start := time.Now()

	if e.cfg.Run.DryRun {
		e.log.Info().Str("item", item.SourcePath).Msg("dry run, skipping generation")
		return ItemOutcome{Item: item, Status: StatusSkippedDryRun, Duration: time.Since(start)}
	}

	payload, err := e.builder.Render(item)
	if err != nil {
		return e.failed(item, err, start)
	}

	// The backend call runs on a detached context: cancellation is honored
	// between items, and an in-flight request is bounded only by the
	// adapter's own timeout rather than being aborted mid-call.
	result, err := e.client.Generate(context.WithoutCancel(ctx), llm.Request{
		Model:   e.cfg.LLM.Model,
		System:  payload.System,
		User:    payload.User,
		Options: e.cfg.LLM.Options,
	})
	if err != nil {
		return e.failed(item, err, start)
	}

	if err := e.writer.Write(item.OutputPath, result.Content); err != nil {
		return e.failed(item, err, start)
	}

	e.log.Info().
		Str("item", item.SourcePath).
		Str("output", item.OutputPath).
		Dur("duration", time.Since(start)).
		Msg("generated")
	return ItemOutcome{Item: item, Status: StatusSucceeded, Duration: time.Since(start)}
}

func (e *Engine) failed(item discovery.WorkItem, err error, start time.Time) ItemOutcome {
	kind := classify(err)
	ev := e.log.Error().Str("item", item.SourcePath).Str("kind", string(kind))
	var perr *llm.ProtocolError
	if errors.As(err, &perr) {
		ev = ev.Str("raw_body", perr.RawBody)
	}
	ev.Err(err).Msg("item failed")
	return ItemOutcome{
		Item:     item,
		Status:   StatusFailed,
		Kind:     kind,
		Err:      err.Error(),
		Duration: time.Since(start),
	}
}

// protocolTripped reports whether the consecutive protocol-error limit is
// enabled and reached. A systemic backend mismatch fails every item the same
// way, so there is no point issuing the rest of the batch.
func (e *Engine) protocolTripped(streak int) bool {
	limit := e.cfg.Run.ProtocolErrorLimit
	if limit <= 0 || streak < limit {
		return false
	}
	e.log.Warn().
		Int("limit", limit).
		Msg("consecutive protocol errors reached limit, stopping batch")
	return true
}

func record(res *BatchResult, out ItemOutcome) {
	res.Outcomes = append(res.Outcomes, out)
	countTerminal(&res.Succeeded, &res.Failed, out)
}

func countTerminal(succeeded, failed *int, out ItemOutcome) {
	switch out.Status {
	case StatusSucceeded:
		*succeeded++
	case StatusFailed:
		*failed++
	}
}

func nextStreak(streak int, out ItemOutcome) int {
	if out.Kind == KindProtocol {
		return streak + 1
	}
	return 0
}
