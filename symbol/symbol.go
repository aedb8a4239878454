package symbol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// BlankSymbol is the reserved no-emission symbol. It always occupies
// index 0 so that model output column 0 is the blank class.
const BlankSymbol = "<blank>"

// BlankIndex is the reserved vocabulary index of BlankSymbol.
const BlankIndex = 0

var (
	// ErrUnknownSymbol is returned when a symbol is not in the vocabulary.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrIndexOutOfRange is returned for an invalid vocabulary index.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrDuplicateSymbol is returned when the symbol list contains repeats.
	ErrDuplicateSymbol = errors.New("duplicate symbol")
	// ErrReservedBlank is returned when a symbol collides with BlankSymbol.
	ErrReservedBlank = errors.New("blank symbol is reserved")
	// ErrEmptySymbol is returned for an empty symbol string.
	ErrEmptySymbol = errors.New("empty symbol")
)

// Vocabulary is an immutable bidirectional mapping between symbol strings
// and integer indices, with the blank class at index 0.
type Vocabulary struct {
	symbols []string
	index   map[string]int
}

// New builds a vocabulary from non-blank symbols. The blank class is
// prepended at index 0; the given symbols occupy indices 1..len(symbols).
func New(symbols []string) (*Vocabulary, error) {
	v := &Vocabulary{
		symbols: make([]string, 0, len(symbols)+1),
		index:   make(map[string]int, len(symbols)+1),
	}
	v.symbols = append(v.symbols, BlankSymbol)
	v.index[BlankSymbol] = BlankIndex

	for _, s := range symbols {
		if s == "" {
			return nil, ErrEmptySymbol
		}
		if s == BlankSymbol {
			return nil, ErrReservedBlank
		}
		if _, ok := v.index[s]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSymbol, s)
		}
		v.index[s] = len(v.symbols)
		v.symbols = append(v.symbols, s)
	}
	return v, nil
}

// Load reads a vocabulary from a symbol list, one symbol per line.
// Blank lines and lines starting with # are skipped; the blank class is
// implicit and must not appear in the file.
func Load(r io.Reader) (*Vocabulary, error) {
	var symbols []string
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		symbols = append(symbols, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	v, err := New(symbols)
	if err != nil {
		return nil, fmt.Errorf("symbol list: %w", err)
	}
	return v, nil
}

// LoadFile is a convenience wrapper that opens a file path.
func LoadFile(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// IndexOf returns the index of a symbol.
func (v *Vocabulary) IndexOf(symbol string) (int, error) {
	i, ok := v.index[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSymbol, symbol)
	}
	return i, nil
}

// SymbolAt returns the symbol at an index.
func (v *Vocabulary) SymbolAt(index int) (string, error) {
	if index < 0 || index >= len(v.symbols) {
		return "", fmt.Errorf("%w: %d (size %d)", ErrIndexOutOfRange, index, len(v.symbols))
	}
	return v.symbols[index], nil
}

// BlankIndex returns the reserved index of the blank class.
func (v *Vocabulary) BlankIndex() int {
	return BlankIndex
}

// Size returns the number of symbols including blank.
func (v *Vocabulary) Size() int {
	return len(v.symbols)
}

// Indices maps a symbol sequence to vocabulary indices. Blank is not a
// valid transcript symbol and is rejected.
func (v *Vocabulary) Indices(symbols []string) ([]int, error) {
	out := make([]int, len(symbols))
	for i, s := range symbols {
		if s == BlankSymbol {
			return nil, fmt.Errorf("%w: transcript may not contain blank", ErrReservedBlank)
		}
		idx, err := v.IndexOf(s)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}

// Symbols returns a copy of the full symbol list including blank.
func (v *Vocabulary) Symbols() []string {
	out := make([]string, len(v.symbols))
	copy(out, v.symbols)
	return out
}
