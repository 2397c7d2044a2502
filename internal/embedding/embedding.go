// Package embedding provides a pluggable interface for text embedding providers
// and the vector math used by the drift detectors.
package embedding

import (
	"context"
	"fmt"
	"math"
	"os"
)

// Vector is a float32 embedding vector.
type Vector = []float32

// Embedder generates embedding vectors from text.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Dims() int
}

// BatchEmbedder is implemented by providers that embed several texts in one
// request.
type BatchEmbedder interface {
	Embedder
	EmbedBatch(ctx context.Context, texts []string) ([]Vector, error)
}

// CosineSimilarity computes cosine similarity between two vectors.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Centroid returns the element-wise mean of vectors sharing the dimension of
// the first one. Vectors with a different length are skipped.
func Centroid(vectors []Vector) Vector {
	if len(vectors) == 0 {
		return nil
	}
	dims := len(vectors[0])
	if dims == 0 {
		return nil
	}
	sum := make([]float64, dims)
	n := 0
	for _, v := range vectors {
		if len(v) != dims {
			continue
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
		n++
	}
	out := make(Vector, dims)
	for i := range sum {
		out[i] = float32(sum[i] / float64(n))
	}
	return out
}

// Config selects and configures a provider.
type Config struct {
	Provider string // "ollama" | "openai" | "gemini" | "" (disabled)
	Model    string
	BaseURL  string
	APIKey   string
}

// New creates an embedder for the configured provider. It returns nil, nil
// when embeddings are disabled.
func New(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "ollama":
		model := cfg.Model
		if model == "" {
			model = "nomic-embed-text"
		}
		return NewOllamaEmbedder(cfg.BaseURL, model), nil
	case "openai":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		return NewOpenAIEmbedder(cfg.BaseURL, key, cfg.Model, 0), nil
	case "gemini":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("GEMINI_API_KEY")
		}
		e, err := NewGenAIEmbedder(context.Background(), key, cfg.Model)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q (valid: ollama, openai, gemini)", cfg.Provider)
	}
}
