package job

import (
	"errors"
	"testing"
)

func TestLifecycle_InitialState(t *testing.T) {
	lc := NewLifecycle("1-1")

	if lc.State() != StateIdle {
		t.Errorf("expected StateIdle, got %v", lc.State())
	}
	if lc.JobID() != "1-1" {
		t.Errorf("expected 1-1, got %v", lc.JobID())
	}
	if lc.FailedAt() != StateIdle {
		t.Errorf("expected no failed stage, got %v", lc.FailedAt())
	}
}

func TestLifecycle_VoicePath(t *testing.T) {
	lc := NewLifecycle("1-1")

	for _, s := range []State{StateReceiving, StateDownloading, StateTranscribing, StateReplying, StateIdle} {
		if err := lc.To(s); err != nil {
			t.Fatalf("To(%v): unexpected error: %v", s, err)
		}
	}
}

func TestLifecycle_VideoNotePath(t *testing.T) {
	lc := NewLifecycle("1-1")

	for _, s := range []State{StateReceiving, StateDownloading, StateExtracting, StateTranscribing, StateReplying, StateIdle} {
		if err := lc.To(s); err != nil {
			t.Fatalf("To(%v): unexpected error: %v", s, err)
		}
	}
}

func TestLifecycle_IllegalTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []State
		next State
	}{
		{"skip receiving", nil, StateDownloading},
		{"transcribe before download", []State{StateReceiving}, StateTranscribing},
		{"extract after transcribe", []State{StateReceiving, StateDownloading, StateTranscribing}, StateExtracting},
		{"failure reply from receiving", []State{StateReceiving}, StateFailureReply},
		{"failure reply from replying", []State{StateReceiving, StateReplying}, StateFailureReply},
		{"download after reply", []State{StateReceiving, StateReplying}, StateDownloading},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := NewLifecycle("1-1")
			for _, s := range tt.path {
				if err := lc.To(s); err != nil {
					t.Fatalf("setup To(%v): %v", s, err)
				}
			}
			before := lc.State()

			err := lc.To(tt.next)
			if !errors.Is(err, ErrIllegalTransition) {
				t.Errorf("expected ErrIllegalTransition, got %v", err)
			}
			if lc.State() != before {
				t.Errorf("state changed on illegal transition: %v -> %v", before, lc.State())
			}
		})
	}
}

func TestLifecycle_Fail_FromWorkStages(t *testing.T) {
	tests := []struct {
		path []State
		want State
	}{
		{[]State{StateReceiving, StateDownloading}, StateDownloading},
		{[]State{StateReceiving, StateDownloading, StateExtracting}, StateExtracting},
		{[]State{StateReceiving, StateDownloading, StateTranscribing}, StateTranscribing},
	}

	for _, tt := range tests {
		lc := NewLifecycle("1-1")
		for _, s := range tt.path {
			lc.To(s)
		}

		stage, ok := lc.Fail()
		if !ok {
			t.Fatalf("Fail() from %v returned false", tt.want)
		}
		if stage != tt.want {
			t.Errorf("Fail() stage = %v, want %v", stage, tt.want)
		}
		if lc.State() != StateFailureReply {
			t.Errorf("expected StateFailureReply, got %v", lc.State())
		}
		if lc.FailedAt() != tt.want {
			t.Errorf("FailedAt() = %v, want %v", lc.FailedAt(), tt.want)
		}
		if err := lc.To(StateIdle); err != nil {
			t.Errorf("FAILURE_REPLY -> IDLE: %v", err)
		}
	}
}

func TestLifecycle_Fail_OutsideWorkStage(t *testing.T) {
	lc := NewLifecycle("1-1")
	lc.To(StateReceiving)

	if _, ok := lc.Fail(); ok {
		t.Error("expected Fail() to return false from RECEIVING")
	}
	if lc.State() != StateReceiving {
		t.Errorf("expected StateReceiving, got %v", lc.State())
	}
}

func TestLifecycle_ToFailureReplyRecordsStage(t *testing.T) {
	lc := NewLifecycle("1-1")
	lc.To(StateReceiving)
	lc.To(StateDownloading)

	if err := lc.To(StateFailureReply); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lc.FailedAt() != StateDownloading {
		t.Errorf("FailedAt() = %v, want DOWNLOADING", lc.FailedAt())
	}
}

func TestLifecycle_Finish_Idempotent(t *testing.T) {
	lc := NewLifecycle("1-1")
	lc.To(StateReceiving)
	lc.To(StateDownloading)

	lc.Finish()
	lc.Finish()

	if lc.State() != StateIdle {
		t.Errorf("expected StateIdle, got %v", lc.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateIdle, "IDLE"},
		{StateReceiving, "RECEIVING"},
		{StateDownloading, "DOWNLOADING"},
		{StateExtracting, "EXTRACTING"},
		{StateTranscribing, "TRANSCRIBING"},
		{StateReplying, "REPLYING"},
		{StateFailureReply, "FAILURE_REPLY"},
		{State(99), "UNKNOWN(99)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %v, want %v", tt.state, got, tt.expected)
		}
	}
}

func TestState_Stage(t *testing.T) {
	tests := map[State]string{
		StateDownloading:  "download",
		StateExtracting:   "extract",
		StateTranscribing: "transcribe",
		StateReplying:     "reply",
	}
	for s, want := range tests {
		if got := s.Stage(); got != want {
			t.Errorf("%v.Stage() = %q, want %q", s, got, want)
		}
	}
}
