package embedder

import (
	"context"
	"fmt"
	"sync"

	"github.com/daulet/tokenizers"
	ort "github.com/yalue/onnxruntime_go"
)

// Pooling selects how token states are reduced to one sentence vector.
type Pooling string

const (
	PoolingMean   Pooling = "mean"   // attention-masked mean of last_hidden_state
	PoolingCLS    Pooling = "cls"    // first token of last_hidden_state
	PoolingPooler Pooling = "pooler" // the model's pooler_output (DPR)
)

const (
	outputLastHidden = "last_hidden_state"
	outputPooler     = "pooler_output"
)

// ONNXConfig locates an exported transformer model.
type ONNXConfig struct {
	ModelPath     string  // model.onnx
	TokenizerPath string  // tokenizer.json
	LibraryPath   string  // onnxruntime shared library; empty uses the default search path
	Pooling       Pooling // defaults to mean
	MaxSeqLen     int     // defaults to DefaultMaxSeqLen
}

var (
	ortOnce sync.Once
	ortErr  error
)

// initRuntime initializes the process-wide ONNX Runtime environment once.
func initRuntime(libraryPath string) error {
	ortOnce.Do(func() {
		if ort.IsInitialized() {
			return
		}
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		ortErr = ort.InitializeEnvironment()
	})
	return ortErr
}

// ONNXEncoder runs a BERT-family model locally through ONNX Runtime.
type ONNXEncoder struct {
	session     *ort.DynamicAdvancedSession
	tokenizer   *tokenizers.Tokenizer
	inputNames  []string
	outputNames []string
	pooling     Pooling
	maxSeqLen   int
}

// NewONNXEncoder loads the tokenizer and creates an inference session.
func NewONNXEncoder(cfg ONNXConfig) (*ONNXEncoder, error) {
	if cfg.ModelPath == "" || cfg.TokenizerPath == "" {
		return nil, fmt.Errorf("%w: model_path and tokenizer_path are required", ErrInvalidConfig)
	}
	if cfg.Pooling == "" {
		cfg.Pooling = PoolingMean
	}
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = DefaultMaxSeqLen
	}

	if err := initRuntime(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get model input/output info: %w", err)
	}
	inputNames := make([]string, len(inputs))
	for i, in := range inputs {
		inputNames[i] = in.Name
	}
	outputNames := make([]string, len(outputs))
	for i, out := range outputs {
		outputNames[i] = out.Name
	}
	if _, err := pooledOutputIndex(outputNames, cfg.Pooling); err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() {
		_ = options.Destroy()
	}()

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, inputNames, outputNames, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	tk, err := tokenizers.FromFile(cfg.TokenizerPath)
	if err != nil {
		_ = session.Destroy()
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	return &ONNXEncoder{
		session:     session,
		tokenizer:   tk,
		inputNames:  inputNames,
		outputNames: outputNames,
		pooling:     cfg.Pooling,
		maxSeqLen:   cfg.MaxSeqLen,
	}, nil
}

// Encode tokenizes text, runs the model and pools the output.
func (e *ONNXEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	encoding := e.tokenizer.EncodeWithOptions(text, true)
	ids := encoding.IDs
	if len(ids) > e.maxSeqLen {
		ids = ids[:e.maxSeqLen]
	}
	if len(ids) == 0 {
		return nil, ErrEmptyText
	}

	seqLen := len(ids)
	inputIDs := make([]int64, seqLen)
	mask := make([]int64, seqLen)
	typeIDs := make([]int64, seqLen)
	for i, id := range ids {
		inputIDs[i] = int64(id)
		mask[i] = 1
	}

	shape := ort.NewShape(1, int64(seqLen))
	inputValues := make([]ort.Value, len(e.inputNames))
	defer func() {
		for _, v := range inputValues {
			if v != nil {
				_ = v.Destroy()
			}
		}
	}()
	for i, name := range e.inputNames {
		var data []int64
		switch name {
		case "input_ids":
			data = inputIDs
		case "attention_mask":
			data = mask
		case "token_type_ids":
			data = typeIDs
		default:
			return nil, fmt.Errorf("unsupported model input %q", name)
		}
		tensor, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("failed to create tensor for %s: %w", name, err)
		}
		inputValues[i] = tensor
	}

	outputValues := make([]ort.Value, len(e.outputNames))
	defer func() {
		for _, v := range outputValues {
			if v != nil {
				_ = v.Destroy()
			}
		}
	}()
	if err := e.session.Run(inputValues, outputValues); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	idx, err := pooledOutputIndex(e.outputNames, e.pooling)
	if err != nil {
		return nil, err
	}
	tensor, ok := outputValues[idx].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unsupported output type for %s", e.outputNames[idx])
	}
	dims := tensor.GetShape()
	data := tensor.GetData()

	switch e.pooling {
	case PoolingPooler, PoolingCLS:
		return clonePrefix(data, int(dims[len(dims)-1])), nil
	default:
		return meanPool(data, seqLen, int(dims[len(dims)-1]), mask), nil
	}
}

// Close releases the session and tokenizer.
func (e *ONNXEncoder) Close() error {
	if e.tokenizer != nil {
		e.tokenizer.Close()
		e.tokenizer = nil
	}
	if e.session != nil {
		err := e.session.Destroy()
		e.session = nil
		return err
	}
	return nil
}

// pooledOutputIndex finds the model output the pooling mode reads from.
func pooledOutputIndex(names []string, pooling Pooling) (int, error) {
	want := outputLastHidden
	switch pooling {
	case PoolingPooler:
		want = outputPooler
	case PoolingMean, PoolingCLS:
	default:
		return 0, fmt.Errorf("%w: unknown pooling %q", ErrInvalidConfig, pooling)
	}
	for i, n := range names {
		if n == want {
			return i, nil
		}
	}
	if pooling != PoolingPooler && len(names) > 0 {
		// Exports from sentence-transformers name the token output differently
		return 0, nil
	}
	return 0, fmt.Errorf("%w: model has no %s output", ErrInvalidConfig, want)
}

// meanPool averages the hidden states of unmasked tokens.
// data is laid out as [1, seqLen, hidden].
func meanPool(data []float32, seqLen, hidden int, mask []int64) []float32 {
	out := make([]float32, hidden)
	var count float32
	for t := 0; t < seqLen; t++ {
		if mask[t] == 0 {
			continue
		}
		row := data[t*hidden : (t+1)*hidden]
		for i, v := range row {
			out[i] += v
		}
		count++
	}
	if count == 0 {
		return out
	}
	for i := range out {
		out[i] /= count
	}
	return out
}

// clonePrefix copies the first n values, which is the CLS token state for a
// [1, seq, hidden] tensor or the whole vector for [1, hidden].
func clonePrefix(data []float32, n int) []float32 {
	if n > len(data) {
		n = len(data)
	}
	out := make([]float32, n)
	copy(out, data[:n])
	return out
}
