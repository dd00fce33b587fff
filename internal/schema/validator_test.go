package schema

import (
	"errors"
	"testing"
)

func TestValidator_Valid(t *testing.T) {
	v := New()

	res, err := v.Validate(map[string]any{
		"transcribedText": "Hello world.",
		"tldr":            nil,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TranscribedText != "Hello world." {
		t.Errorf("expected 'Hello world.', got %q", res.TranscribedText)
	}
	if res.TLDR != nil {
		t.Errorf("expected nil tldr, got %q", *res.TLDR)
	}
}

func TestValidator_WithTLDR(t *testing.T) {
	v := New()

	res, err := v.Validate(map[string]any{
		"transcribedText": "A long story.",
		"tldr":            "Short.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TLDR == nil || *res.TLDR != "Short." {
		t.Errorf("expected tldr 'Short.', got %v", res.TLDR)
	}
}

func TestValidator_MissingTLDRIsAllowed(t *testing.T) {
	v := New()

	res, err := v.Validate(map[string]any{"transcribedText": "Hi."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TLDR != nil {
		t.Error("expected nil tldr when absent")
	}
}

func TestValidator_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
	}{
		{"nil args", nil},
		{"missing text", map[string]any{"tldr": "x"}},
		{"empty text", map[string]any{"transcribedText": ""}},
		{"blank text", map[string]any{"transcribedText": "   "}},
		{"text wrong type", map[string]any{"transcribedText": 12}},
		{"tldr wrong type", map[string]any{"transcribedText": "ok", "tldr": 3}},
	}

	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.args)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrInvalidResult) {
				t.Errorf("expected ErrInvalidResult, got %v", err)
			}
		})
	}
}
