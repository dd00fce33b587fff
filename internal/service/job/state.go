// Package job provides job id generation and the per-event pipeline lifecycle.
package job

import (
	"errors"
	"fmt"
	"sync"
)

// State is a stage of the per-event pipeline.
type State int

const (
	// StateIdle - no work in progress. Initial and final state.
	StateIdle State = iota
	// StateReceiving - the inbound event is being validated.
	StateReceiving
	// StateDownloading - the media file is being fetched.
	StateDownloading
	// StateExtracting - the audio track is being pulled out of a video.
	StateExtracting
	// StateTranscribing - the AI backend call is in flight.
	StateTranscribing
	// StateReplying - the result (or a rejection notice) is being sent.
	StateReplying
	// StateFailureReply - a work stage failed and the failure notice is being sent.
	StateFailureReply
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateReceiving:
		return "RECEIVING"
	case StateDownloading:
		return "DOWNLOADING"
	case StateExtracting:
		return "EXTRACTING"
	case StateTranscribing:
		return "TRANSCRIBING"
	case StateReplying:
		return "REPLYING"
	case StateFailureReply:
		return "FAILURE_REPLY"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Stage returns the lowercase label used in logs, metrics and events.
func (s State) Stage() string {
	switch s {
	case StateDownloading:
		return "download"
	case StateExtracting:
		return "extract"
	case StateTranscribing:
		return "transcribe"
	case StateReplying, StateFailureReply:
		return "reply"
	case StateReceiving:
		return "receive"
	default:
		return "idle"
	}
}

// IsWork returns true for the stages whose failure yields a failure reply.
func (s State) IsWork() bool {
	return s == StateDownloading || s == StateExtracting || s == StateTranscribing
}

// ErrIllegalTransition is returned for transitions the pipeline does not allow.
var ErrIllegalTransition = errors.New("illegal pipeline transition")

// transitions lists the allowed successors of each state.
//
//	IDLE → RECEIVING → DOWNLOADING → (EXTRACTING) → TRANSCRIBING → REPLYING → IDLE
//	            │            │              │              │
//	            │            └──────────────┴──────────────┴──→ FAILURE_REPLY → IDLE
//	            ├──→ REPLYING  (rejection notice)
//	            └──→ IDLE      (ignored event)
var transitions = map[State][]State{
	StateIdle:         {StateReceiving},
	StateReceiving:    {StateDownloading, StateReplying, StateIdle},
	StateDownloading:  {StateExtracting, StateTranscribing, StateFailureReply},
	StateExtracting:   {StateTranscribing, StateFailureReply},
	StateTranscribing: {StateReplying, StateFailureReply},
	StateReplying:     {StateIdle},
	StateFailureReply: {StateIdle},
}

// Lifecycle tracks the state of a single job.
// Thread-safe for concurrent access.
type Lifecycle struct {
	mu       sync.RWMutex
	jobID    string
	state    State
	failedAt State
}

// NewLifecycle creates a lifecycle in IDLE state.
func NewLifecycle(jobID string) *Lifecycle {
	return &Lifecycle{
		jobID: jobID,
		state: StateIdle,
	}
}

// JobID returns the job id.
func (l *Lifecycle) JobID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.jobID
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// FailedAt returns the work stage that failed, or StateIdle if none did.
func (l *Lifecycle) FailedAt() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.failedAt
}

// To moves the job to the next state.
// Returns ErrIllegalTransition (wrapped) if the move is not allowed; the state is unchanged.
func (l *Lifecycle) To(next State) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, s := range transitions[l.state] {
		if s == next {
			if next == StateFailureReply {
				l.failedAt = l.state
			}
			l.state = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, l.state, next)
}

// Fail moves a job in a work stage to FAILURE_REPLY and returns the stage that failed.
// Returns false if the job is not in a work stage.
func (l *Lifecycle) Fail() (State, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.state.IsWork() {
		return l.state, false
	}
	l.failedAt = l.state
	l.state = StateFailureReply
	return l.failedAt, true
}

// Finish returns the job to IDLE from any state. Idempotent.
func (l *Lifecycle) Finish() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = StateIdle
}
