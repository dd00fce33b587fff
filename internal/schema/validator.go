// Package schema validates the structured result returned by the transcription tool call.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"voice-relay-bot/internal/models"
)

// ErrInvalidResult is returned when tool arguments do not match the output schema.
var ErrInvalidResult = errors.New("invalid transcription result")

// TranscriptionResultSchema describes the parameters of the output tool.
const TranscriptionResultSchema = `{
  "type": "object",
  "properties": {
    "transcribedText": {"type": "string", "minLength": 1},
    "tldr": {"type": ["string", "null"]}
  },
  "required": ["transcribedText"]
}`

type Validator struct {
	schema *gojsonschema.Schema
}

// New compiles the output schema. It panics only if the embedded schema is malformed.
func New() *Validator {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(TranscriptionResultSchema))
	if err != nil {
		panic(fmt.Sprintf("schema: compile transcription result schema: %v", err))
	}
	return &Validator{schema: s}
}

// Validate checks tool-call arguments and decodes them into a TranscriptionResult.
func (v *Validator) Validate(args map[string]any) (models.TranscriptionResult, error) {
	if args == nil {
		return models.TranscriptionResult{}, fmt.Errorf("%w: no arguments", ErrInvalidResult)
	}

	res, err := v.schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return models.TranscriptionResult{}, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return models.TranscriptionResult{}, fmt.Errorf("%w: %s", ErrInvalidResult, strings.Join(msgs, "; "))
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return models.TranscriptionResult{}, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}
	var out models.TranscriptionResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return models.TranscriptionResult{}, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}

	// minLength admits whitespace; the transcript must carry text.
	if strings.TrimSpace(out.TranscribedText) == "" {
		return models.TranscriptionResult{}, fmt.Errorf("%w: transcribedText is blank", ErrInvalidResult)
	}
	return out, nil
}
