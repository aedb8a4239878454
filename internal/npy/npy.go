// Package npy reads 2-D NumPy .npy arrays, the interchange format the
// Python preprocessing pipeline uses for mel spectrograms and saved
// posteriors. Only the subset needed here is supported: C-order
// little-endian float32/float64 matrices, format versions 1.0-3.0.
package npy

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

var magic = []byte("\x93NUMPY")

// ErrUnsupported is returned for .npy files outside the supported subset.
var ErrUnsupported = errors.New("npy: unsupported array")

// Read parses a .npy stream into a [rows][cols] float64 matrix.
func Read(r io.Reader) ([][]float64, error) {
	head := make([]byte, 8)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("npy: read magic: %w", err)
	}
	if !bytes.Equal(head[:6], magic) {
		return nil, fmt.Errorf("npy: bad magic %q", head[:6])
	}
	major := head[6]

	var headerLen int
	switch major {
	case 1:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("npy: read header length: %w", err)
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("npy: read header length: %w", err)
		}
		headerLen = int(n)
	default:
		return nil, fmt.Errorf("%w: format version %d", ErrUnsupported, major)
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("npy: read header: %w", err)
	}

	descr, fortran, shape, err := parseHeader(string(header))
	if err != nil {
		return nil, err
	}
	if fortran {
		return nil, fmt.Errorf("%w: fortran order", ErrUnsupported)
	}
	if len(shape) != 2 {
		return nil, fmt.Errorf("%w: %d-dimensional array, want 2", ErrUnsupported, len(shape))
	}

	var itemSize int
	switch descr {
	case "<f4", "|f4":
		itemSize = 4
	case "<f8", "|f8":
		itemSize = 8
	default:
		return nil, fmt.Errorf("%w: dtype %q", ErrUnsupported, descr)
	}

	rows, cols := shape[0], shape[1]
	raw := make([]byte, rows*cols*itemSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("npy: read data: %w", err)
	}

	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		row := make([]float64, cols)
		for j := 0; j < cols; j++ {
			off := (i*cols + j) * itemSize
			if itemSize == 4 {
				row[j] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[off:])))
			} else {
				row[j] = math.Float64frombits(binary.LittleEndian.Uint64(raw[off:]))
			}
		}
		out[i] = row
	}
	return out, nil
}

// ReadFile is a convenience wrapper that opens a file path.
func ReadFile(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// parseHeader extracts descr, fortran_order, and shape from the Python
// dict literal in the header, e.g.
// {'descr': '<f4', 'fortran_order': False, 'shape': (120, 80), }
func parseHeader(h string) (descr string, fortran bool, shape []int, err error) {
	descr, err = headerString(h, "'descr':")
	if err != nil {
		return "", false, nil, err
	}

	switch {
	case strings.Contains(h, "'fortran_order': False"):
		fortran = false
	case strings.Contains(h, "'fortran_order': True"):
		fortran = true
	default:
		return "", false, nil, fmt.Errorf("npy: header missing fortran_order: %q", h)
	}

	open := strings.Index(h, "(")
	end := strings.Index(h, ")")
	if open < 0 || end < open {
		return "", false, nil, fmt.Errorf("npy: header missing shape: %q", h)
	}
	for _, part := range strings.Split(h[open+1:end], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, convErr := strconv.Atoi(part)
		if convErr != nil || n < 0 {
			return "", false, nil, fmt.Errorf("npy: bad shape element %q", part)
		}
		shape = append(shape, n)
	}
	return descr, fortran, shape, nil
}

func headerString(h, key string) (string, error) {
	i := strings.Index(h, key)
	if i < 0 {
		return "", fmt.Errorf("npy: header missing %s: %q", key, h)
	}
	rest := h[i+len(key):]
	start := strings.Index(rest, "'")
	if start < 0 {
		return "", fmt.Errorf("npy: malformed header: %q", h)
	}
	end := strings.Index(rest[start+1:], "'")
	if end < 0 {
		return "", fmt.Errorf("npy: malformed header: %q", h)
	}
	return rest[start+1 : start+1+end], nil
}
