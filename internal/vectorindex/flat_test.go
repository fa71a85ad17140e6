package vectorindex

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestSearch_ExactOrder(t *testing.T) {
	f, err := Build([][]float32{
		{1, 0},
		{0, 1},
		{0.6, 0.8},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hits, err := f.Search([]float32{0, 1}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantIDs := []int{1, 2, 0}
	for i, h := range hits {
		if h.ID != wantIDs[i] {
			t.Errorf("position %d: expected id %d, got %d", i, wantIDs[i], h.ID)
		}
	}
	if hits[0].Score != 1 {
		t.Errorf("expected top score 1, got %f", hits[0].Score)
	}
}

func TestSearch_ClampsK(t *testing.T) {
	f, _ := Build([][]float32{{1}, {2}})

	hits, _ := f.Search([]float32{1}, 10)
	if len(hits) != 2 {
		t.Errorf("expected 2 hits, got %d", len(hits))
	}
	hits, _ = f.Search([]float32{1}, -1)
	if len(hits) != 0 {
		t.Errorf("expected 0 hits, got %d", len(hits))
	}
}

func TestSearch_TiesKeepBuildOrder(t *testing.T) {
	f, _ := Build([][]float32{{1, 0}, {1, 0}, {1, 0}})

	hits, _ := f.Search([]float32{1, 0}, 3)
	for i, h := range hits {
		if h.ID != i {
			t.Errorf("position %d: expected id %d, got %d", i, i, h.ID)
		}
	}
}

func TestSearch_DimensionMismatch(t *testing.T) {
	f, _ := Build([][]float32{{1, 0}})

	if _, err := f.Search([]float32{1, 0, 0}, 1); !errors.Is(err, ErrDimension) {
		t.Errorf("expected ErrDimension, got %v", err)
	}
}

func TestBuild_Invalid(t *testing.T) {
	if _, err := Build(nil); err == nil {
		t.Error("expected error for no vectors")
	}
	if _, err := Build([][]float32{{1, 2}, {1}}); !errors.Is(err, ErrDimension) {
		t.Errorf("expected ErrDimension, got %v", err)
	}
}

func TestMarshalBinary_RoundTrip(t *testing.T) {
	f, _ := Build([][]float32{{0.1, 0.2, 0.3}, {-1, 0.5, 2}})

	data, err := f.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var g Flat
	if err := g.UnmarshalBinary(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if g.Dim() != 3 || g.Len() != 2 {
		t.Fatalf("expected dim=3 n=2, got dim=%d n=%d", g.Dim(), g.Len())
	}

	q := []float32{1, 1, 1}
	want, _ := f.Search(q, 2)
	got, _ := g.Search(q, 2)
	for i := range want {
		if want[i] != got[i] {
			t.Errorf("hit %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestUnmarshalBinary_Corrupt(t *testing.T) {
	f, _ := Build([][]float32{{1, 2}})
	data, _ := f.MarshalBinary()

	tests := map[string][]byte{
		"empty":         nil,
		"bad magic":     append([]byte("NOTFLAT!"), data[8:]...),
		"truncated":     data[:len(data)-1],
		"huge header":   flatHeader(1<<31, 1<<31),
		"max header":    append(flatHeader(math.MaxUint32, math.MaxUint32), make([]byte, 16)...),
		"count too big": append(flatHeader(2, 3), make([]byte, 16)...),
	}
	for name, payload := range tests {
		var g Flat
		if err := g.UnmarshalBinary(payload); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("expected [0.6 0.8], got %v", v)
	}

	zero := Normalize([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("expected zero vector unchanged, got %v", zero)
	}
}

func flatHeader(dim, n uint32) []byte {
	b := append([]byte("FLATIP01"), make([]byte, 8)...)
	binary.LittleEndian.PutUint32(b[8:], dim)
	binary.LittleEndian.PutUint32(b[12:], n)
	return b
}
