// Package vectorindex provides an exact inner-product nearest-neighbor index.
package vectorindex

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
)

var flatMagic = [8]byte{'F', 'L', 'A', 'T', 'I', 'P', '0', '1'}

// ErrDimension is returned when a vector does not match the index dimensionality.
var ErrDimension = errors.New("vector dimension mismatch")

// Hit is one search result: the position of the vector at build time and its
// inner product with the query.
type Hit struct {
	ID    int
	Score float32
}

// Flat is an exact inner-product index over a row-major matrix.
// It is immutable after Build and safe for concurrent Search.
type Flat struct {
	dim  int
	n    int
	data []float32
}

// Build copies vectors into a new index. All vectors must share one dimension.
func Build(vectors [][]float32) (*Flat, error) {
	if len(vectors) == 0 {
		return nil, errors.New("build flat index: no vectors")
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, errors.New("build flat index: zero-dimension vectors")
	}
	data := make([]float32, 0, dim*len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("build flat index: vector %d has %d dims, want %d: %w", i, len(v), dim, ErrDimension)
		}
		data = append(data, v...)
	}
	return &Flat{dim: dim, n: len(vectors), data: data}, nil
}

// Dim returns the vector dimensionality.
func (f *Flat) Dim() int { return f.dim }

// Len returns the number of indexed vectors.
func (f *Flat) Len() int { return f.n }

// Search returns the k vectors with the largest inner product against q,
// best first. Equal scores keep build order. k is clamped to Len.
func (f *Flat) Search(q []float32, k int) ([]Hit, error) {
	if len(q) != f.dim {
		return nil, fmt.Errorf("search flat index: query has %d dims, want %d: %w", len(q), f.dim, ErrDimension)
	}
	k = min(max(k, 0), f.n)

	hits := make([]Hit, f.n)
	for i := 0; i < f.n; i++ {
		row := f.data[i*f.dim : (i+1)*f.dim]
		var dot float32
		for j, x := range row {
			dot += x * q[j]
		}
		hits[i] = Hit{ID: i, Score: dot}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Score > hits[b].Score
	})
	return hits[:k], nil
}

// MarshalBinary encodes the index as magic, uint32 dim, uint32 n and the
// little-endian float32 matrix.
func (f *Flat) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(16 + 4*len(f.data))
	buf.Write(flatMagic[:])
	if err := binary.Write(&buf, binary.LittleEndian, [2]uint32{uint32(f.dim), uint32(f.n)}); err != nil {
		return nil, fmt.Errorf("encode flat header: %w", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, f.data); err != nil {
		return nil, fmt.Errorf("encode flat matrix: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary restores an index written by MarshalBinary.
func (f *Flat) UnmarshalBinary(data []byte) error {
	if len(data) < 16 || !bytes.Equal(data[:8], flatMagic[:]) {
		return errors.New("decode flat index: bad header")
	}
	dim := uint64(binary.LittleEndian.Uint32(data[8:12]))
	n := uint64(binary.LittleEndian.Uint32(data[12:16]))
	body := data[16:]
	// compare by division: dim*n from a crafted header can overflow
	size := uint64(len(body))
	if dim == 0 || n == 0 || size%(4*dim) != 0 || size/(4*dim) != n {
		return fmt.Errorf("decode flat index: body is %d bytes for dim=%d n=%d", len(body), dim, n)
	}
	matrix := make([]float32, size/4)
	for i := range matrix {
		matrix[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[4*i:]))
	}
	f.dim, f.n, f.data = int(dim), int(n), matrix
	return nil
}

// Normalize returns v scaled to unit L2 length. A zero vector is returned
// unchanged so it never turns into NaN.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
