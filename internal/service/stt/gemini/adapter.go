// Package gemini provides a Gemini speech-to-text adapter.
//
// Audio is sent inline together with a fixed instruction, and the model is
// forced to answer through a single function call whose arguments carry the
// transcript. The arguments are validated before being returned.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"voice-relay-bot/internal/models"
	"voice-relay-bot/internal/schema"
	"voice-relay-bot/internal/service/stt"
)

// DefaultTimeout bounds a single transcription call.
const DefaultTimeout = 60 * time.Second

// Generator is the subset of the genai Models service used by the adapter.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config configures the Adapter.
type Config struct {
	APIKey     string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client // optional, e.g. a proxied client
}

// Adapter implements stt.Transcriber using the Gemini API.
type Adapter struct {
	gen       Generator
	model     string
	timeout   time.Duration
	validator *schema.Validator
}

// New creates a Gemini adapter backed by a real genai client.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return NewWithGenerator(client.Models, cfg), nil
}

// NewWithGenerator creates an adapter around an existing Generator.
func NewWithGenerator(gen Generator, cfg Config) *Adapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Adapter{
		gen:       gen,
		model:     cfg.Model,
		timeout:   cfg.Timeout,
		validator: schema.New(),
	}
}

type outcome struct {
	result models.TranscriptionResult
	err    error
}

// Transcribe sends the audio to Gemini and returns the validated tool arguments.
//
// The call is bounded by the adapter timeout. A response without the tool
// call is not retried here; the adapter keeps waiting until the deadline and
// reports stt.ErrTimeout, so a missing call and a slow backend look the same
// to callers.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte, mimeType string) (models.TranscriptionResult, error) {
	if mimeType == "" {
		mimeType = stt.DefaultMIMEType
	}
	logger := zerolog.Ctx(ctx)

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		res, err := a.call(callCtx, audio, mimeType)
		done <- outcome{result: res, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-callCtx.Done():
		return a.expired(ctx)
	}

	if errors.Is(out.err, stt.ErrNoToolCall) {
		logger.Warn().Str("model", a.model).Msg("Response did not invoke the output tool, waiting for deadline")
		<-callCtx.Done()
		return a.expired(ctx)
	}
	if out.err != nil {
		if callCtx.Err() != nil {
			return a.expired(ctx)
		}
		return models.TranscriptionResult{}, out.err
	}
	return out.result, nil
}

// expired reports why the call context ended: the caller's own cancellation
// wins over the adapter timeout.
func (a *Adapter) expired(parent context.Context) (models.TranscriptionResult, error) {
	if err := parent.Err(); err != nil {
		return models.TranscriptionResult{}, err
	}
	return models.TranscriptionResult{}, fmt.Errorf("%w after %s", stt.ErrTimeout, a.timeout)
}

func (a *Adapter) call(ctx context.Context, audio []byte, mimeType string) (models.TranscriptionResult, error) {
	contents := []*genai.Content{{
		Role: string(genai.RoleUser),
		Parts: []*genai.Part{
			{Text: stt.Instruction},
			{InlineData: &genai.Blob{Data: audio, MIMEType: mimeType}},
		},
	}}

	resp, err := a.gen.GenerateContent(ctx, a.model, contents, RequestConfig())
	if err != nil {
		return models.TranscriptionResult{}, fmt.Errorf("gemini generate content: %w", err)
	}

	args, ok := toolArgs(resp)
	if !ok {
		return models.TranscriptionResult{}, stt.ErrNoToolCall
	}
	return a.validator.Validate(args)
}

// RequestConfig builds the generation config: system prompt, the output tool
// declaration and a tool config that only allows calling that tool.
func RequestConfig() *genai.GenerateContentConfig {
	nullable := true
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: stt.SystemPrompt}},
		},
		Tools: []*genai.Tool{{
			FunctionDeclarations: []*genai.FunctionDeclaration{{
				Name:        stt.ToolName,
				Description: stt.ToolDescription,
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"transcribedText": {
							Type:        genai.TypeString,
							Description: "Verbatim transcription of the audio.",
						},
						"tldr": {
							Type:        genai.TypeString,
							Description: "One-sentence summary for transcripts over 300 characters, otherwise null.",
							Nullable:    &nullable,
						},
					},
					Required: []string{"transcribedText"},
				},
			}},
		}},
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode:                 genai.FunctionCallingConfigModeAny,
				AllowedFunctionNames: []string{stt.ToolName},
			},
		},
	}
}

// toolArgs returns the arguments of the first call to the output tool.
func toolArgs(resp *genai.GenerateContentResponse) (map[string]any, bool) {
	if resp == nil {
		return nil, false
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.FunctionCall != nil && part.FunctionCall.Name == stt.ToolName {
				return part.FunctionCall.Args, true
			}
		}
	}
	return nil, false
}
