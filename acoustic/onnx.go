package acoustic

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXConfig holds parameters for an ONNX-exported aligner network.
type ONNXConfig struct {
	ModelPath   string // path to the .onnx file
	LibraryPath string // onnxruntime shared library, "" = default lookup
	InputName   string // input tensor name, default "mel"
	OutputName  string // output tensor name, default "logits"
	Threads     int    // intra-op threads, 0 = all available
}

// DefaultONNXConfig returns a config with the conventional tensor names.
func DefaultONNXConfig(modelPath string) ONNXConfig {
	return ONNXConfig{
		ModelPath:  modelPath,
		InputName:  "mel",
		OutputName: "logits",
	}
}

// ONNXModel runs an ONNX-exported acoustic network that maps a mel
// spectrogram [1 × T × nMels] to per-frame symbol logits [1 × T × V].
// It implements Model. Not safe for concurrent use; create one per worker.
type ONNXModel struct {
	session *ort.DynamicAdvancedSession
	cfg     ONNXConfig
}

// NewONNXModel initializes the onnxruntime environment and loads a session.
func NewONNXModel(cfg ONNXConfig) (*ONNXModel, error) {
	if cfg.InputName == "" {
		cfg.InputName = "mel"
	}
	if cfg.OutputName == "" {
		cfg.OutputName = "logits"
	}
	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer opts.Destroy()

	if err := opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return nil, fmt.Errorf("set graph optimization: %w", err)
	}
	if err := opts.SetIntraOpNumThreads(cfg.Threads); err != nil {
		return nil, fmt.Errorf("set thread count: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &ONNXModel{session: session, cfg: cfg}, nil
}

// Scores runs the network on a [T × nMels] feature sequence and returns
// raw [T × V] logits.
func (m *ONNXModel) Scores(features [][]float64) ([][]float64, error) {
	T := len(features)
	if T == 0 {
		return nil, fmt.Errorf("%w: no feature frames", ErrShapeMismatch)
	}
	dim := len(features[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: empty feature vector", ErrShapeMismatch)
	}

	flat := make([]float32, T*dim)
	for t, row := range features {
		if len(row) != dim {
			return nil, fmt.Errorf("%w: frame %d has dim %d, want %d", ErrShapeMismatch, t, len(row), dim)
		}
		for d, x := range row {
			flat[t*dim+d] = float32(x)
		}
	}

	input, err := ort.NewTensor(ort.NewShape(1, int64(T), int64(dim)), flat)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer input.Destroy()

	outputs := make([]ort.Value, 1)
	if err := m.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	tensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("output tensor is not float32 type")
	}

	shape := tensor.GetShape()
	if len(shape) != 3 || shape[0] != 1 || shape[1] != int64(T) {
		return nil, fmt.Errorf("%w: output shape %v, want [1 %d V]", ErrShapeMismatch, shape, T)
	}
	width := int(shape[2])

	// Copy the data before the output tensor is destroyed.
	data := tensor.GetData()
	scores := make([][]float64, T)
	for t := 0; t < T; t++ {
		row := make([]float64, width)
		for v := 0; v < width; v++ {
			row[v] = float64(data[t*width+v])
		}
		scores[t] = row
	}
	return scores, nil
}

// Close releases the session. The shared onnxruntime environment is left
// initialized for other sessions in the process.
func (m *ONNXModel) Close() error {
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
	return nil
}
