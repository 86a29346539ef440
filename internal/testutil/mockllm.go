package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
)

// MockLLM replays a scripted sequence of model responses. Each Generate call
// consumes the next queued entry, so tests can assert the exact number and
// shape of model calls a code path makes.
//
// Thread-safe for concurrent use.
type MockLLM struct {
	mu     sync.Mutex
	script []scriptedResponse
	calls  []MockCall
}

type scriptedResponse struct {
	text  string
	tools []*ai.ToolRequest
	err   error
}

// MockCall records a single call to the mock model.
type MockCall struct {
	UserText string // last user message text
	System   string // system message text, if any
	ToolsOn  bool   // whether the request carried tool definitions
	Response string // response text returned ("" for errors)
}

// NewMockLLM creates an empty scripted mock.
func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// QueueText queues a plain text response.
func (m *MockLLM) QueueText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scriptedResponse{text: text})
}

// QueueToolCalls queues a response requesting the given tool calls.
func (m *MockLLM) QueueToolCalls(requests ...*ai.ToolRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scriptedResponse{tools: requests})
}

// QueueError queues a failing call.
func (m *MockLLM) QueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scriptedResponse{err: err})
}

// Calls returns a copy of all recorded calls.
func (m *MockLLM) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]MockCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// CallCount returns how many times the model was invoked.
func (m *MockLLM) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears recorded calls and any unconsumed script entries.
func (m *MockLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.script = nil
}

// RegisterModel registers the mock as a Genkit model and returns a reference.
// The model name will be "mock/test-model".
func (m *MockLLM) RegisterModel(g *genkit.Genkit) ai.Model {
	return genkit.DefineModel(g, "mock/test-model", &ai.ModelOptions{
		Label: "Mock Test Model",
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			Tools:      true,
			SystemRole: true,
			Media:      false,
		},
	}, m.generate)
}

// generate is the Genkit model function.
func (m *MockLLM) generate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	var userText, system string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if userText == "" && req.Messages[i].Role == ai.RoleUser {
			userText = req.Messages[i].Text()
		}
		if system == "" && req.Messages[i].Role == ai.RoleSystem {
			system = req.Messages[i].Text()
		}
	}

	m.mu.Lock()
	var next scriptedResponse
	if len(m.script) > 0 {
		next = m.script[0]
		m.script = m.script[1:]
	} else {
		next = scriptedResponse{text: "unscripted response"}
	}
	m.calls = append(m.calls, MockCall{
		UserText: userText,
		System:   system,
		ToolsOn:  len(req.Tools) > 0,
		Response: next.text,
	})
	m.mu.Unlock()

	if next.err != nil {
		return nil, next.err
	}

	if cb != nil {
		_ = cb(ctx, &ai.ModelResponseChunk{
			Content: []*ai.Part{ai.NewTextPart(next.text)},
		})
	}

	var parts []*ai.Part
	for _, tr := range next.tools {
		parts = append(parts, &ai.Part{
			Kind:        ai.PartToolRequest,
			ToolRequest: tr,
		})
	}
	if len(parts) == 0 || next.text != "" {
		parts = append(parts, ai.NewTextPart(next.text))
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{
			Role:    ai.RoleModel,
			Content: parts,
		},
	}, nil
}

// MockEmbedder provides deterministic embedding vectors for testing.
//
// By default it generates a deterministic vector from content using SHA-256.
// Explicit mappings can be added for precise cosine similarity control.
//
// Thread-safe for concurrent use.
type MockEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	dim     int
}

// NewMockEmbedder creates a mock embedder with the given vector dimensions.
func NewMockEmbedder(dim int) *MockEmbedder {
	return &MockEmbedder{
		vectors: make(map[string][]float32),
		dim:     dim,
	}
}

// SetVector registers an explicit vector for a given content string.
// Use this to control exact cosine similarity between test inputs.
func (e *MockEmbedder) SetVector(content string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors[content] = vec
}

// RegisterEmbedder registers the mock as a Genkit embedder.
// The embedder name will be "mock/test-embedder".
func (e *MockEmbedder) RegisterEmbedder(g *genkit.Genkit) ai.Embedder {
	return genkit.DefineEmbedder(g, "mock/test-embedder", &ai.EmbedderOptions{
		Label:      "Mock Test Embedder",
		Dimensions: e.dim,
	}, e.embed)
}

// Embed implements ai.Embedder directly so the mock can also be injected
// without a Genkit registry.
func (e *MockEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	return e.embed(ctx, req)
}

// Name implements ai.Embedder.
func (e *MockEmbedder) Name() string {
	return "mock/test-embedder"
}

// Register implements ai.Embedder. No-op for direct injection.
func (e *MockEmbedder) Register(api.Registry) {}

func (e *MockEmbedder) embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	embeddings := make([]*ai.Embedding, len(req.Input))
	for i, doc := range req.Input {
		embeddings[i] = &ai.Embedding{
			Embedding: e.vectorFor(documentText(doc)),
		}
	}
	return &ai.EmbedResponse{Embeddings: embeddings}, nil
}

// vectorFor returns the explicit vector for content if registered, otherwise
// a deterministic hash-derived vector.
func (e *MockEmbedder) vectorFor(content string) []float32 {
	e.mu.Lock()
	if v, ok := e.vectors[content]; ok {
		e.mu.Unlock()
		return v
	}
	e.mu.Unlock()

	return deterministicVector(content, e.dim)
}

// documentText extracts all text content from a Document's parts.
func documentText(doc *ai.Document) string {
	var sb strings.Builder
	for _, p := range doc.Content {
		if p.Kind == ai.PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// deterministicVector generates a normalized vector from content using
// SHA-256. The same content always produces the same vector.
func deterministicVector(content string, dim int) []float32 {
	hash := sha256.Sum256([]byte(content))
	vec := make([]float32, dim)

	for i := range vec {
		idx := (i * 4) % len(hash)
		bits := binary.LittleEndian.Uint32([]byte{
			hash[idx%32],
			hash[(idx+1)%32],
			hash[(idx+2)%32],
			hash[(idx+3)%32],
		})
		vec[i] = (float32(bits)/float32(math.MaxUint32))*2 - 1
	}

	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	norm = float32(math.Sqrt(float64(norm)))
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}

	return vec
}
