// Command align force-aligns transcripts to acoustic model posteriors.
//
// Single-utterance mode reads one posterior or mel-spectrogram matrix and
// prints Audacity-style labels (start TAB end TAB symbol):
//
//	align -vocab symbols.txt -posterior utt.npy -text "k o n n i ch i w a"
//	align -config aligner.yaml -mel utt.npy -text "k o n n i ch i w a" -out utt.lab
//
// Batch mode aligns a manifest of saved posteriors in parallel, writing
// one label file per utterance:
//
//	align -vocab symbols.txt -list manifest.tsv -out labels/
//
// where each manifest line is: id TAB posterior.npy TAB symbols.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	aligner "github.com/ieee0824/aligner-go"
	"github.com/ieee0824/aligner-go/acoustic"
	"github.com/ieee0824/aligner-go/align"
	"github.com/ieee0824/aligner-go/batch"
	"github.com/ieee0824/aligner-go/internal/npy"
	"github.com/ieee0824/aligner-go/symbol"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	vocabPath := flag.String("vocab", "", "symbol list, one symbol per line")
	posteriorPath := flag.String("posterior", "", "saved posterior matrix (.npy, rows sum to 1)")
	melPath := flag.String("mel", "", "mel spectrogram (.npy), run through the ONNX model")
	modelPath := flag.String("model", "", "ONNX acoustic model (required with -mel)")
	onnxLib := flag.String("onnx-lib", "", "onnxruntime shared library path")
	text := flag.String("text", "", "transcript as whitespace-separated symbols")
	frameDuration := flag.Float64("frame-duration", 0, "seconds per frame for label times")
	blanks := flag.String("blanks", "", "blank policy: previous, next, or discard")
	out := flag.String("out", "", "output label file, or directory in batch mode (default stdout)")
	list := flag.String("list", "", "batch manifest: id TAB posterior.npy TAB symbols")
	workers := flag.Int("workers", 0, "batch workers, 0 = GOMAXPROCS")

	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: align [-config FILE] -vocab FILE (-posterior NPY | -mel NPY -model ONNX) -text SYMBOLS")
		fmt.Fprintln(os.Stderr, "       align [-config FILE] -vocab FILE -list MANIFEST -out DIR")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := aligner.DefaultConfig()
	if *configPath != "" {
		loaded, err := aligner.LoadConfig(*configPath)
		if err != nil {
			fatal(err)
		}
		cfg = *loaded
	}
	if *vocabPath != "" {
		cfg.Vocabulary = *vocabPath
	}
	if *modelPath != "" {
		cfg.Model.Path = *modelPath
	}
	if *onnxLib != "" {
		cfg.Model.Library = *onnxLib
	}
	if *blanks != "" {
		cfg.Decoder.BlankPolicy = *blanks
	}
	if *workers > 0 {
		cfg.Batch.Workers = *workers
	}
	if cfg.Vocabulary == "" {
		fmt.Fprintln(os.Stderr, "error: -vocab (or vocabulary in the config) is required")
		flag.Usage()
		os.Exit(1)
	}

	vocab, err := symbol.LoadFile(cfg.Vocabulary)
	if err != nil {
		fatal(err)
	}

	policy, err := cfg.Decoder.Policy()
	if err != nil {
		fatal(err)
	}
	perFrame := cfg.Audio.FrameDuration()
	if *frameDuration > 0 {
		perFrame = *frameDuration
	}
	opts := align.ExtractOptions{FrameDuration: perFrame, Blanks: policy}

	if *list != "" {
		if err := runBatch(cfg, vocab, opts, *list, *out); err != nil {
			fatal(err)
		}
		return
	}

	if *text == "" {
		fmt.Fprintln(os.Stderr, "error: -text is required")
		flag.Usage()
		os.Exit(1)
	}
	symbols := strings.Fields(*text)

	var result *align.Result
	switch {
	case *posteriorPath != "":
		result, err = alignPosteriorFile(vocab, opts, cfg.Decoder.Epsilon, *posteriorPath, symbols)
	case *melPath != "":
		result, err = alignMelFile(cfg, vocab, opts, *melPath, symbols)
	default:
		fmt.Fprintln(os.Stderr, "error: one of -posterior or -mel is required")
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		fatal(err)
	}

	if err := writeLabels(*out, result); err != nil {
		fatal(err)
	}
}

func alignPosteriorFile(vocab *symbol.Vocabulary, opts align.ExtractOptions, eps float64, path string, symbols []string) (*align.Result, error) {
	probs, err := npy.ReadFile(path)
	if err != nil {
		return nil, err
	}
	post, err := acoustic.PosteriorFromProbs(probs, vocab.Size(), acoustic.WithEpsilon(eps))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	targets, err := vocab.Indices(symbols)
	if err != nil {
		return nil, err
	}
	return align.Align(post, targets, vocab, opts)
}

func alignMelFile(cfg aligner.Config, vocab *symbol.Vocabulary, opts align.ExtractOptions, path string, symbols []string) (*align.Result, error) {
	if cfg.Model.Path == "" {
		return nil, fmt.Errorf("-model (or model.path in the config) is required with -mel")
	}
	a, err := aligner.NewFromConfig(&cfg)
	if err != nil {
		return nil, err
	}
	defer a.Close()
	a.FrameDuration = opts.FrameDuration
	a.Blanks = opts.Blanks

	mel, err := npy.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return a.Align(mel, symbols)
}

func runBatch(cfg aligner.Config, vocab *symbol.Vocabulary, opts align.ExtractOptions, listPath, outDir string) error {
	if outDir == "" {
		return fmt.Errorf("-out directory is required in batch mode")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	jobs, err := loadManifest(listPath, vocab, cfg.Decoder.Epsilon)
	if err != nil {
		return err
	}

	logger := newLogger()
	defer logger.Sync()

	runner := batch.NewRunner(vocab, logger.Sugar(), batch.Config{
		Workers:         cfg.Batch.Workers,
		ContinueOnError: cfg.Batch.ContinueOnError,
		Extract:         opts,
	})
	outcomes, err := runner.Run(context.Background(), jobs)
	if err != nil {
		return err
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			continue
		}
		path := filepath.Join(outDir, o.ID+".lab")
		if err := writeLabels(path, o.Result); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d utterances failed", failed, len(outcomes))
	}
	return nil
}

// loadManifest parses TSV lines of the form: id TAB posterior.npy TAB symbols.
func loadManifest(path string, vocab *symbol.Vocabulary, eps float64) ([]batch.Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var jobs []batch.Job
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("%s:%d: want 3 tab-separated fields, got %d", path, lineNo, len(fields))
		}
		id, npyPath, transcript := fields[0], fields[1], fields[2]

		probs, err := npy.ReadFile(npyPath)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		post, err := acoustic.PosteriorFromProbs(probs, vocab.Size(), acoustic.WithEpsilon(eps))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		targets, err := vocab.Indices(strings.Fields(transcript))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		jobs = append(jobs, batch.Job{ID: id, Posterior: post, Targets: targets})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

// writeLabels emits Audacity-style labels. Times are used when frame
// duration is known, frame indexes otherwise.
func writeLabels(path string, result *align.Result) error {
	out := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	w := bufio.NewWriter(out)
	for _, seg := range result.Segments {
		if seg.EndTime > seg.StartTime {
			fmt.Fprintf(w, "%.6f\t%.6f\t%s\n", seg.StartTime, seg.EndTime, seg.Symbol)
		} else {
			fmt.Fprintf(w, "%d\t%d\t%s\n", seg.StartFrame, seg.EndFrame, seg.Symbol)
		}
	}
	return w.Flush()
}

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(os.Getenv("ALIGN_LOG_LEVEL")) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn", "warning":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
