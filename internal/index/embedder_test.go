package index

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
)

type fakeEmbeddingClient struct {
	failOn string
	calls  atomic.Int64
}

func (f *fakeEmbeddingClient) Embed(ctx context.Context, model, text string) ([]float32, error) {
	f.calls.Add(1)
	if text == f.failOn {
		return nil, errors.New("provider rejected input")
	}
	return []float32{float32(len(text))}, nil
}

func TestEmbedBatch_PreservesOrder(t *testing.T) {
	e := NewEmbedder(&fakeEmbeddingClient{}, "test-model")

	texts := make([]string, 20)
	for i := range texts {
		texts[i] = fmt.Sprintf("%0*d", i+1, 0) // lengths 1..20
	}

	vecs, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if int(v[0]) != len(texts[i]) {
			t.Errorf("vector %d does not correspond to its input text", i)
		}
	}
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	e := NewEmbedder(&fakeEmbeddingClient{}, "test-model")
	vecs, err := e.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if vecs != nil {
		t.Errorf("got %v, want nil", vecs)
	}
}

func TestEmbedBatch_FailureAborts(t *testing.T) {
	client := &fakeEmbeddingClient{failOn: "bad"}
	e := NewEmbedder(client, "test-model")

	_, err := e.EmbedBatch(context.Background(), []string{"ok", "bad", "also ok"})
	if err == nil {
		t.Fatal("expected error")
	}
}
