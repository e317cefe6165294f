package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/parley-ai/parley/internal/llm"
)

// retrieveK is how many context blocks are pulled into the prompt when no
// explicit limit is configured.
const retrieveK = 3

// generateTemperature matches the conversational endpoints.
const generateTemperature = 0.7

const generatePrompt = `Based on the following context, answer the user's question. If the context doesn't contain enough information to answer the question, say so.

Context:
%s

Question: %s

Answer:`

// Retriever returns the context blocks most relevant to a question.
// *index.Index satisfies it via Query.
type Retriever interface {
	Query(ctx context.Context, question string, topK int) ([]string, error)
}

// Completer produces the grounded answer. *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, model string, messages []llm.Message, temperature float64) (string, error)
}

// Result is the outcome of one pipeline run: the answer plus the context it
// was grounded on.
type Result struct {
	Answer  string
	Context []string
}

// Pipeline is the two-stage retrieve-then-generate flow. Each stage consumes
// the previous stage's output; a stage failure aborts the run.
type Pipeline struct {
	retriever Retriever
	client    Completer
	model     string
	topK      int
}

// New creates a Pipeline over the given retriever and completion client.
func New(retriever Retriever, client Completer, model string) *Pipeline {
	return &Pipeline{retriever: retriever, client: client, model: model, topK: retrieveK}
}

// NewWithTopK creates a Pipeline retrieving up to topK context blocks per
// question. Non-positive values fall back to the default.
func NewWithTopK(retriever Retriever, client Completer, model string, topK int) *Pipeline {
	p := New(retriever, client, model)
	if topK > 0 {
		p.topK = topK
	}
	return p
}

// Run answers the question grounded on retrieved context. The retrieval
// stage never yields an empty context: an empty corpus produces an explicit
// no-documents block instead, so the generation stage always has something
// to condition on.
func (p *Pipeline) Run(ctx context.Context, question string) (Result, error) {
	blocks, err := p.retrieve(ctx, question)
	if err != nil {
		return Result{}, fmt.Errorf("retrieve stage: %w", err)
	}

	answer, err := p.generate(ctx, question, blocks)
	if err != nil {
		return Result{}, fmt.Errorf("generate stage: %w", err)
	}

	return Result{Answer: answer, Context: blocks}, nil
}

func (p *Pipeline) retrieve(ctx context.Context, question string) ([]string, error) {
	return p.retriever.Query(ctx, question, p.topK)
}

func (p *Pipeline) generate(ctx context.Context, question string, blocks []string) (string, error) {
	prompt := fmt.Sprintf(generatePrompt, strings.Join(blocks, "\n\n"), question)
	return p.client.Complete(ctx, p.model, []llm.Message{
		{Role: "user", Content: prompt},
	}, generateTemperature)
}
