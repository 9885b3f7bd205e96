// internal/engine/types.go
//
// Outcome and progress types for the batch engine. Everything here is plain
// data; the sink is the only coupling point between the engine and any
// front-end.

package engine

import (
	"errors"
	"time"

	"flowscribe/internal/discovery"
	"flowscribe/internal/llm"
	"flowscribe/internal/output"
	"flowscribe/internal/workflow"

	promptpkg "flowscribe/internal/prompt"
)

// Status is the terminal state of one work item.
type Status string

const (
	StatusSucceeded     Status = "succeeded"
	StatusFailed        Status = "failed"
	StatusSkippedDryRun Status = "skipped_dry_run"
)

// ErrorKind classifies a per-item failure. The kinds mirror the package
// sentinels so a front-end can report them without unwrapping errors itself.
type ErrorKind string

const (
	KindNone          ErrorKind = ""
	KindDocument      ErrorKind = "document"
	KindTemplate      ErrorKind = "template"
	KindCommunication ErrorKind = "communication"
	KindProtocol      ErrorKind = "protocol"
	KindWrite         ErrorKind = "write"
	KindUnknown       ErrorKind = "unknown"
)

// classify maps an item pipeline error to its kind.
func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, workflow.ErrDocument):
		return KindDocument
	case errors.Is(err, promptpkg.ErrTemplate):
		return KindTemplate
	case errors.Is(err, llm.ErrCommunication):
		return KindCommunication
	case errors.Is(err, llm.ErrProtocol):
		return KindProtocol
	case errors.Is(err, output.ErrWrite):
		return KindWrite
	default:
		return KindUnknown
	}
}

// ItemOutcome records the terminal state of one work item.
type ItemOutcome struct {
	Item     discovery.WorkItem
	Status   Status
	Kind     ErrorKind
	Err      string
	Duration time.Duration
}

// BatchResult aggregates one run. Outcomes are ordered by discovery index
// regardless of the scheduling model, so results are deterministic.
type BatchResult struct {
	RunID     string
	Total     int
	Succeeded int
	Failed    int
	Outcomes  []ItemOutcome
	Cancelled bool
}

// Event is published to the progress sink after each item reaches a terminal
// state. Succeeded/Failed are running totals at publish time.
type Event struct {
	RunID     string
	Index     int
	Total     int
	Outcome   ItemOutcome
	Succeeded int
	Failed    int
}

// ProgressSink receives progress events. Implementations must tolerate
// concurrent calls when the engine runs with more than one worker.
type ProgressSink interface {
	Publish(Event)
}

// SinkFunc adapts a function to the ProgressSink interface.
type SinkFunc func(Event)

// Publish implements ProgressSink.
func (f SinkFunc) Publish(ev Event) { f(ev) }

// ChannelSink forwards events into a channel, for front-ends that consume
// progress on their own thread of control. The channel should be buffered;
// Publish blocks when it is full.
type ChannelSink chan Event

// Publish implements ProgressSink.
func (c ChannelSink) Publish(ev Event) { c <- ev }
