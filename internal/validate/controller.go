package validate

import (
	"context"
	"fmt"

	"github.com/parley-ai/parley/internal/agent"
	"github.com/parley-ai/parley/internal/llm"
)

// MaxAttempts bounds the generate-validate loop.
const MaxAttempts = 3

// Terminal statuses of a validated run.
const (
	StatusPassed           = "PASSED"
	StatusFailedMaxRetries = "FAILED_MAX_RETRIES"
)

// Attempt records one generate-validate round for the audit trail.
type Attempt struct {
	Attempt    int    `json:"attempt"`
	Response   string `json:"response"`
	Validation string `json:"validation"`
}

// Outcome is the result of a validated run: the final response, how the loop
// ended, and every attempt that was made.
type Outcome struct {
	Status   string
	Response string
	Attempts []Attempt
}

// AgentRunner produces candidate responses. *agent.Agent satisfies it.
type AgentRunner interface {
	Run(ctx context.Context, messages []llm.Message) (agent.Result, error)
}

// Controller drives the generate-validate-retry loop: the agent produces a
// response, the validator judges it against the original request, and
// rejected responses are retried with the verdict folded into the prompt.
type Controller struct {
	agent     AgentRunner
	validator *Validator
}

// NewController creates a Controller over the given agent and validator.
func NewController(agent AgentRunner, validator *Validator) *Controller {
	return &Controller{agent: agent, validator: validator}
}

// Run executes up to MaxAttempts rounds for the prompt. The validator always
// judges against the original prompt; retry feedback rewrites the working
// prompt from the original each round so verdicts do not compound.
//
// Agent and validator failures abort the run with the underlying error. A
// loop that exhausts its attempts is not an error: it reports
// FAILED_MAX_RETRIES with the last response and the full audit trail.
func (c *Controller) Run(ctx context.Context, prompt string, history []llm.Message) (Outcome, error) {
	workingPrompt := prompt
	attempts := make([]Attempt, 0, MaxAttempts)
	var lastResponse string

	for n := 1; n <= MaxAttempts; n++ {
		msgs := make([]llm.Message, 0, len(history)+1)
		msgs = append(msgs, history...)
		msgs = append(msgs, llm.Message{Role: "user", Content: workingPrompt})

		res, err := c.agent.Run(ctx, msgs)
		if err != nil {
			return Outcome{}, fmt.Errorf("attempt %d: %w", n, err)
		}
		lastResponse = res.Answer

		verdict, err := c.validator.Validate(ctx, prompt, res.Answer)
		if err != nil {
			return Outcome{}, fmt.Errorf("attempt %d: %w", n, err)
		}

		attempts = append(attempts, Attempt{Attempt: n, Response: res.Answer, Validation: verdict})

		if Passed(verdict) {
			return Outcome{Status: StatusPassed, Response: res.Answer, Attempts: attempts}, nil
		}

		workingPrompt = fmt.Sprintf(
			"%s\n\nPrevious attempt was insufficient. Validator feedback: %s. Please provide a better response.",
			prompt, verdict)
	}

	return Outcome{Status: StatusFailedMaxRetries, Response: lastResponse, Attempts: attempts}, nil
}
