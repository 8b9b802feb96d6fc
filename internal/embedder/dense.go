package embedder

import (
	"context"
	"fmt"
	"strings"
)

// Encoder produces raw sentence embeddings from a pretrained model.
// Output may be unnormalized; Dense normalizes it.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
	Close() error
}

// Dense adapts a pretrained Encoder to the Embedder contract. Vectors are
// always normalized here because the store ranks by cosine and some models
// emit raw pooled outputs.
type Dense struct {
	strategy  Strategy
	dimension int
	encoder   Encoder
}

// NewDense wraps encoder for a dense strategy.
func NewDense(strategy Strategy, dimension int, encoder Encoder) (*Dense, error) {
	if strategy.Lexical() {
		return nil, fmt.Errorf("%w: %s is not a dense strategy", ErrInvalidConfig, strategy)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	if encoder == nil {
		return nil, fmt.Errorf("%w: nil encoder", ErrInvalidConfig)
	}
	return &Dense{strategy: strategy, dimension: dimension, encoder: encoder}, nil
}

// Embed encodes text and returns a unit vector.
func (d *Dense) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	vec, err := d.encoder.Encode(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.strategy, err)
	}
	if len(vec) != d.dimension {
		return nil, fmt.Errorf("%w: %s returned %d values, want %d", ErrDimensionMismatch, d.strategy, len(vec), d.dimension)
	}
	return Normalize(vec), nil
}

func (d *Dense) Dimension() int         { return d.dimension }
func (d *Dense) CollectionName() string { return d.strategy.CollectionName() }
func (d *Dense) Strategy() Strategy     { return d.strategy }
func (d *Dense) Close() error           { return d.encoder.Close() }
