package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/parley-ai/parley/internal/llm"
)

// validatorTemperature is deliberately lower than the conversational
// endpoints so verdicts stay consistent across attempts.
const validatorTemperature = 0.3

const validationPrompt = `You are a validator. Your job is to check if the response correctly answers the user's request.

User Request: %s

Agent Response: %s

Analyze if the response:
1. Directly addresses the user's question
2. Is accurate and complete
3. Is relevant to the request

Respond with ONLY one of these:
- "VALID" if the response is good
- "INVALID: [reason]" if the response needs improvement

Your validation:`

// Completer is the model surface the validator needs. *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, model string, messages []llm.Message, temperature float64) (string, error)
}

// Validator judges whether a response answers the original request, using a
// separate low-temperature model call.
type Validator struct {
	client Completer
	model  string
}

// NewValidator creates a Validator using the given client and model.
func NewValidator(client Completer, model string) *Validator {
	return &Validator{client: client, model: model}
}

// Validate returns the model's trimmed verdict for the response. The verdict
// is free text; Passed decides what counts as approval.
func (v *Validator) Validate(ctx context.Context, request, response string) (string, error) {
	prompt := fmt.Sprintf(validationPrompt, request, response)
	verdict, err := v.client.Complete(ctx, v.model, []llm.Message{
		{Role: "user", Content: prompt},
	}, validatorTemperature)
	if err != nil {
		return "", fmt.Errorf("validating response: %w", err)
	}
	return strings.TrimSpace(verdict), nil
}

// Passed reports whether a verdict approves the response. Only a verdict
// beginning with VALID counts; anything else, including prose that merely
// mentions validity, is a rejection.
func Passed(verdict string) bool {
	return strings.HasPrefix(verdict, "VALID")
}
