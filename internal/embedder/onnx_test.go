package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanPool(t *testing.T) {
	// [1, 3, 2] with the last token masked out
	data := []float32{1, 2, 3, 4, 100, 100}
	got := meanPool(data, 3, 2, []int64{1, 1, 0})
	assert.Equal(t, []float32{2, 3}, got)

	assert.Equal(t, []float32{0, 0}, meanPool(data, 3, 2, []int64{0, 0, 0}))
}

func TestClonePrefix(t *testing.T) {
	data := []float32{1, 2, 3, 4}
	got := clonePrefix(data, 2)
	assert.Equal(t, []float32{1, 2}, got)

	got[0] = 9
	assert.Equal(t, float32(1), data[0])
	assert.Len(t, clonePrefix(data, 10), 4)
}

func TestPooledOutputIndex(t *testing.T) {
	idx, err := pooledOutputIndex([]string{"last_hidden_state", "pooler_output"}, PoolingPooler)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	idx, err = pooledOutputIndex([]string{"last_hidden_state", "pooler_output"}, PoolingMean)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	idx, err = pooledOutputIndex([]string{"token_embeddings"}, PoolingCLS)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	_, err = pooledOutputIndex([]string{"last_hidden_state"}, PoolingPooler)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = pooledOutputIndex([]string{"last_hidden_state"}, "max")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewONNXEncoderValidation(t *testing.T) {
	_, err := NewONNXEncoder(ONNXConfig{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
