package volume

import (
	"errors"
	"math"
	"testing"
)

// createRamp builds a single component volume with v(x,y,z) = x + nx*y + nx*ny*z
func createRamp(t *testing.T, kind ScalarKind, nx, ny, nz int) *Volume {
	t.Helper()
	v, err := New(kind, Extent{0, nx - 1, 0, ny - 1, 0, nz - 1}, 1)
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}
	v.Fill(func(x, y, z, c int) float64 {
		return float64(x + nx*y + nx*ny*z)
	})
	return v
}

// TestScalarKinds verifies byte widths, ranges and name round trips
func TestScalarKinds(t *testing.T) {
	sizes := map[ScalarKind]int{
		Int8: 1, Uint8: 1, Int16: 2, Uint16: 2,
		Int32: 4, Uint32: 4, Float32: 4, Float64: 8,
	}
	for _, k := range Kinds {
		if k.Size() != sizes[k] {
			t.Errorf("Expected %v to be %d bytes, got %d", k, sizes[k], k.Size())
		}
		parsed, err := ParseScalarKind(k.String())
		if err != nil || parsed != k {
			t.Errorf("Expected %q to parse back to %v, got %v (%v)", k.String(), k, parsed, err)
		}
	}

	if lo, hi := Uint8.Range(); lo != 0 || hi != 255 {
		t.Errorf("Expected uint8 range [0,255], got [%v,%v]", lo, hi)
	}
	if lo, hi := Int16.Range(); lo != -32768 || hi != 32767 {
		t.Errorf("Expected int16 range [-32768,32767], got [%v,%v]", lo, hi)
	}
	if _, err := ParseScalarKind("complex64"); err == nil {
		t.Error("Expected an error for an unknown kind")
	}
	if KindOf[uint16]() != Uint16 || KindOf[float32]() != Float32 {
		t.Error("KindOf returned the wrong kind")
	}
}

// TestNumericConvert checks round-half-up and clamping for integer kinds
func TestNumericConvert(t *testing.T) {
	u8 := NumericFor[uint8]()
	tests := []struct {
		in   float64
		want uint8
	}{
		{42.5, 43},
		{42.49, 42},
		{-3, 0},
		{300, 255},
		{254.5, 255},
	}
	for _, tt := range tests {
		if got := u8.Convert(tt.in); got != tt.want {
			t.Errorf("uint8 Convert(%v): expected %d, got %d", tt.in, tt.want, got)
		}
	}

	i16 := NumericFor[int16]()
	if got := i16.Convert(-2.5); got != -2 {
		t.Errorf("Expected -2.5 to round half up to -2, got %d", got)
	}
	if got := i16.Convert(-40000); got != math.MinInt16 {
		t.Errorf("Expected clamp to %d, got %d", math.MinInt16, got)
	}

	if got := i16.Convert(math.NaN()); got != 0 {
		t.Errorf("Expected NaN to convert to 0, got %d", got)
	}
	if px := u8.Pixel([]float64{math.NaN(), 7}, 2); px[0] != 0 || px[1] != 7 {
		t.Errorf("Expected pixel [0 7] from a NaN background, got %v", px)
	}

	f32 := NumericFor[float32]()
	if got := f32.Convert(1e10); got != 1e10 {
		t.Errorf("Expected float kinds to pass through unclamped, got %v", got)
	}

	px := u8.Pixel([]float64{10.4, 300, -1, 7, 9}, 6)
	want := []uint8{10, 255, 0, 7, 0, 0}
	for i := range want {
		if px[i] != want[i] {
			t.Errorf("Pixel[%d]: expected %d, got %d", i, want[i], px[i])
		}
	}
}

// TestExtentPieces verifies that pieces are disjoint and cover the extent
func TestExtentPieces(t *testing.T) {
	ext := Extent{0, 9, 0, 4, 2, 8}
	for _, n := range []int{1, 2, 3, 7, 50} {
		pieces := ext.Pieces(n)
		if len(pieces) > n {
			t.Errorf("Expected at most %d pieces, got %d", n, len(pieces))
		}
		total := 0
		for i, p := range pieces {
			if !ext.Contains(p) {
				t.Errorf("Piece %v escapes extent %v", p, ext)
			}
			if p[0] != 0 || p[1] != 9 {
				t.Errorf("Piece %v splits rows", p)
			}
			if i > 0 && p[4] != pieces[i-1][5]+1 {
				t.Errorf("Pieces %v and %v are not contiguous", pieces[i-1], p)
			}
			total += p.NumVoxels()
		}
		if total != ext.NumVoxels() {
			t.Errorf("Expected pieces to cover %d voxels, got %d", ext.NumVoxels(), total)
		}
	}

	// one slice: split falls back to rows
	flat := Extent{0, 3, 0, 5, 0, 0}
	pieces := flat.Pieces(3)
	if len(pieces) != 3 || pieces[1][2] != 2 || pieces[1][3] != 3 {
		t.Errorf("Expected y split into 3 pieces, got %v", pieces)
	}

	if (Extent{0, -1, 0, 0, 0, 0}).Pieces(4) != nil {
		t.Error("Expected no pieces for an empty extent")
	}
}

// TestIncrements verifies strides and continuous increments
func TestIncrements(t *testing.T) {
	v, err := New(Uint16, Extent{2, 5, 0, 2, -1, 1}, 3)
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}
	inc := v.Increments()
	if inc != [3]int{3, 12, 36} {
		t.Errorf("Expected increments [3 12 36], got %v", inc)
	}

	sub := Extent{3, 4, 1, 2, 0, 1}
	cont := v.ContinuousIncrements(sub)
	if cont != [3]int{0, 6, 12} {
		t.Errorf("Expected continuous increments [0 6 12], got %v", cont)
	}

	// walking sub with the continuous increments visits Offset order
	idx := v.Offset(sub[0], sub[2], sub[4])
	for z := sub[4]; z <= sub[5]; z++ {
		for y := sub[2]; y <= sub[3]; y++ {
			for x := sub[0]; x <= sub[1]; x++ {
				if idx != v.Offset(x, y, z) {
					t.Fatalf("Walk offset %d, expected %d at (%d,%d,%d)", idx, v.Offset(x, y, z), x, y, z)
				}
				idx += inc[0]
			}
			idx += cont[1]
		}
		idx += cont[2]
	}

	// changing the extent changes the increments
	v.Extent = Extent{0, 0, 0, 0, 0, 0}
	if v.Increments() != [3]int{3, 3, 3} {
		t.Errorf("Expected increments to follow the extent, got %v", v.Increments())
	}
}

// TestValidate checks buffer length and kind errors
func TestValidate(t *testing.T) {
	if _, err := FromSlice(make([]int16, 7), Extent{0, 1, 0, 1, 0, 1}, 1); !errors.Is(err, ErrBufferSize) {
		t.Errorf("Expected ErrBufferSize, got %v", err)
	}
	v, err := FromSlice(make([]int16, 16), Extent{0, 1, 0, 1, 0, 1}, 2)
	if err != nil {
		t.Fatalf("Expected valid volume, got %v", err)
	}
	if v.SizeInBytes() != 32 {
		t.Errorf("Expected 32 bytes, got %d", v.SizeInBytes())
	}
	if _, err := Scalars[uint8](v); !errors.Is(err, ErrKind) {
		t.Errorf("Expected ErrKind, got %v", err)
	}
	if _, err := New(UnknownKind, Extent{}, 1); err == nil {
		t.Error("Expected an error for an unknown kind")
	}
}

// TestValueAccess verifies that Fill, Value and View agree on layout
func TestValueAccess(t *testing.T) {
	v := createRamp(t, Float32, 4, 4, 4)
	if got := v.Value(2, 2, 2, 0); got != 42 {
		t.Errorf("Expected v(2,2,2)=42, got %v", got)
	}

	view, err := NewView[float32](v)
	if err != nil {
		t.Fatalf("Failed to create view: %v", err)
	}
	if got := view.Voxel(3, 2, 2)[0]; got != 43 {
		t.Errorf("Expected view voxel (3,2,2)=43, got %v", got)
	}

	data := v.Float64s()
	if len(data) != 64 || data[63] != 63 {
		t.Errorf("Expected 64 float values ending with 63, got %d values", len(data))
	}

	like, err := v.Like(Extent{0, 1, 0, 1, 0, 0})
	if err != nil || like.Kind() != Float32 || like.Len() != 4 {
		t.Errorf("Like returned an unexpected volume: %v", err)
	}
}
