package align

import (
	"math/rand"
	"testing"

	"github.com/ieee0824/aligner-go/acoustic"
	"github.com/ieee0824/aligner-go/symbol"
)

func benchPosterior(b *testing.B, T, width int) *acoustic.Posterior {
	b.Helper()
	rng := rand.New(rand.NewSource(1))
	rows := make([][]float64, T)
	for i := range rows {
		row := make([]float64, width)
		for v := range row {
			row[v] = rng.NormFloat64()
		}
		rows[i] = row
	}
	post, err := acoustic.PosteriorFromLogits(rows, width)
	if err != nil {
		b.Fatalf("PosteriorFromLogits: %v", err)
	}
	return post
}

func benchTargets(width, L int) []int {
	rng := rand.New(rand.NewSource(2))
	targets := make([]int, L)
	for i := range targets {
		targets[i] = 1 + rng.Intn(width-1)
	}
	return targets
}

func BenchmarkViterbi_200frames_20symbols(b *testing.B) {
	post := benchPosterior(b, 200, 40)
	targets := benchTargets(40, 20)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := Viterbi(post, targets, 0); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkViterbi_1000frames_80symbols(b *testing.B) {
	post := benchPosterior(b, 1000, 40)
	targets := benchTargets(40, 80)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := Viterbi(post, targets, 0); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkExtractSegments(b *testing.B) {
	post := benchPosterior(b, 1000, 40)
	targets := benchTargets(40, 80)
	path, _, err := Viterbi(post, targets, 0)
	if err != nil {
		b.Fatal(err)
	}
	symbols := make([]string, 39)
	for i := range symbols {
		symbols[i] = string(rune('a'+i%26)) + string(rune('0'+i/26))
	}
	vocab, err := symbol.New(symbols)
	if err != nil {
		b.Fatalf("symbol.New: %v", err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ExtractSegments(path, targets, vocab, ExtractOptions{FrameDuration: 0.01}); err != nil {
			b.Fatal(err)
		}
	}
}
