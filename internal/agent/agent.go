package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/parley-ai/parley/internal/llm"
)

// chatTemperature matches the conversational endpoints so agent answers read
// the same as direct ones.
const chatTemperature = 0.7

// maxCycles bounds the tool-calling loop. A model that keeps requesting tools
// past this many rounds is looping, not converging.
const maxCycles = 8

// Chatter is the model surface the agent needs. *llm.Client satisfies it.
type Chatter interface {
	Chat(ctx context.Context, req llm.ChatRequest) (llm.Message, error)
}

// Result is the outcome of one agent run.
type Result struct {
	// Answer is the model's final plain-text response.
	Answer string
	// ToolUsed reports whether any cycle invoked a tool.
	ToolUsed bool
	// Transcript is the full message exchange including tool calls and
	// results, in order.
	Transcript []llm.Message
}

// Agent runs a bounded function-calling loop: the model may request tool
// invocations, their results are fed back, and the loop ends when the model
// produces a plain answer.
type Agent struct {
	client   Chatter
	model    string
	registry *Registry
}

// New creates an Agent over the given model client and tool registry.
func New(client Chatter, model string, registry *Registry) *Agent {
	return &Agent{client: client, model: model, registry: registry}
}

// Run executes the loop starting from the given conversation messages.
// Tool failures are reported back to the model as tool results rather than
// aborting the run; only provider errors and cycle exhaustion fail it.
func (a *Agent) Run(ctx context.Context, messages []llm.Message) (Result, error) {
	msgs := make([]llm.Message, len(messages), len(messages)+4)
	copy(msgs, messages)

	defs := a.registry.Defs()
	toolUsed := false

	for cycle := 0; cycle < maxCycles; cycle++ {
		reply, err := a.client.Chat(ctx, llm.ChatRequest{
			Model:       a.model,
			Messages:    msgs,
			Tools:       defs,
			Temperature: chatTemperature,
		})
		if err != nil {
			return Result{}, err
		}
		msgs = append(msgs, reply)

		if len(reply.ToolCalls) == 0 {
			return Result{Answer: reply.Content, ToolUsed: toolUsed, Transcript: msgs}, nil
		}

		toolUsed = true
		for _, call := range reply.ToolCalls {
			msgs = append(msgs, llm.Message{
				Role:       "tool",
				Content:    a.invoke(ctx, call),
				ToolCallID: call.ID,
			})
		}
	}

	return Result{}, fmt.Errorf("agent exceeded %d tool cycles without a final answer", maxCycles)
}

// invoke runs one tool call and renders its outcome as tool-result text.
// Unknown tools and tool errors become messages the model can recover from.
func (a *Agent) invoke(ctx context.Context, call llm.ToolCall) string {
	tool, ok := a.registry.Get(call.Function.Name)
	if !ok {
		return fmt.Sprintf("Error: unknown tool %q", call.Function.Name)
	}

	out, err := tool.Call(ctx, json.RawMessage(call.Function.Arguments))
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return out
}
