package heifio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ugparu/goheif/utils/bits/pio"
)

func TestItemLocationVersionDerivation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ids     []uint32
		method  uint8
		version uint8
	}{
		{name: "small_ids", ids: []uint32{1, 65535}, version: 0},
		{name: "wide_id", ids: []uint32{1, 65535, 65536}, version: 2},
		{name: "idat_method", ids: []uint32{1}, method: 1, version: 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			iloc := &ItemLocation{}
			for _, id := range tt.ids {
				iloc.AppendExtent(id, tt.method, 100, 10)
			}
			iloc.DeriveVersion()
			assert.Equal(t, tt.version, iloc.Version)
		})
	}
}

func TestItemLocationMinVersionHonored(t *testing.T) {
	t.Parallel()

	iloc := &ItemLocation{MinVersion: 1}
	iloc.AppendExtent(1, 0, 100, 10)
	iloc.DeriveVersion()
	assert.Equal(t, uint8(1), iloc.Version)
}

func TestItemLocationWidthSelection(t *testing.T) {
	t.Parallel()

	iloc := &ItemLocation{}
	iloc.AppendExtent(1, 0, 0x1_0000_0000, 10)
	iloc.DeriveVersion()
	assert.Equal(t, uint8(8), iloc.OffsetSize)
	assert.Equal(t, uint8(4), iloc.LengthSize)
	assert.Equal(t, uint8(0), iloc.BaseOffsetSize)

	bound := &ItemLocation{}
	bound.AppendData(1, make([]byte, 10))
	bound.SetWriteUpperBound(0x2_0000_0000)
	bound.DeriveVersion()
	assert.Equal(t, uint8(8), bound.OffsetSize, "upper bound drives pending offset width")
}

func TestItemLocationRoundTrip(t *testing.T) {
	t.Parallel()

	iloc := &ItemLocation{}
	iloc.Items = []LocationItem{
		{
			ItemID:     1,
			BaseOffset: 4096,
			Extents:    []Extent{{Offset: 100, Length: 2000}, {Offset: 2100, Length: 300}},
		},
		{
			ItemID:             2,
			ConstructionMethod: 1,
			Extents:            []Extent{{Offset: 0, Length: 64}},
		},
	}
	iloc.DeriveVersion()
	require.Equal(t, uint8(1), iloc.Version)

	b := make([]byte, iloc.Len())
	n := iloc.Marshal(b)
	require.Equal(t, iloc.Len(), n)
	require.Equal(t, uint32(n), pio.U32BE(b), "declared size matches emitted size")

	var got ItemLocation
	_, err := got.Unmarshal(b, 0)
	require.NoError(t, err)
	assert.Equal(t, iloc.Items, got.Items)
	assert.Equal(t, iloc.OffsetSize, got.OffsetSize)
	assert.Equal(t, iloc.LengthSize, got.LengthSize)
	assert.Equal(t, iloc.BaseOffsetSize, got.BaseOffsetSize)

	out := make([]byte, got.Len())
	got.Marshal(out)
	assert.Equal(t, b, out, "reparse marshals byte-identically")
}

func TestItemLocationInvalidFieldSize(t *testing.T) {
	t.Parallel()

	iloc := &ItemLocation{}
	iloc.AppendExtent(1, 0, 1, 1)
	iloc.DeriveVersion()
	b := make([]byte, iloc.Len())
	iloc.Marshal(b)

	// Patch offset_size to the illegal value 3.
	b[HeaderSize+fullBoxSize] = 0x34

	var got ItemLocation
	_, err := got.Unmarshal(b, 0)
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestItemLocationPendingPatch(t *testing.T) {
	t.Parallel()

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	iloc := &ItemLocation{}
	iloc.AppendData(1, payload)
	iloc.SetWriteUpperBound(1 << 20)
	iloc.DeriveVersion()

	b := make([]byte, iloc.Len())
	iloc.Marshal(b)
	pending := iloc.PendingOffsets()
	require.Len(t, pending, 1)
	assert.Equal(t, uint8(4), pending[0].Width)

	require.NoError(t, iloc.PatchOffset(b, pending[0], 4242))
	assert.Equal(t, uint64(4242), iloc.Items[0].Extents[0].Offset)

	var got ItemLocation
	_, err := got.Unmarshal(b, 0)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, uint64(4242), got.Items[0].Extents[0].Offset)
	assert.Equal(t, uint64(len(payload)), got.Items[0].Extents[0].Length)
}

func TestItemLocationPatchOverflow(t *testing.T) {
	t.Parallel()

	iloc := &ItemLocation{}
	iloc.AppendData(1, []byte{1})
	iloc.DeriveVersion()
	b := make([]byte, iloc.Len())
	iloc.Marshal(b)
	pending := iloc.PendingOffsets()
	require.Len(t, pending, 1)

	err := iloc.PatchOffset(b, pending[0], 0x1_0000_0000)
	assert.ErrorIs(t, err, ErrWriterOverflow)
}

func TestItemLocationExtentIndex(t *testing.T) {
	t.Parallel()

	iloc := &ItemLocation{}
	iloc.Items = []LocationItem{
		{
			ItemID:             7,
			ConstructionMethod: 2,
			Extents:            []Extent{{Index: 1, Offset: 0, Length: 5}, {Index: 2, Offset: 5, Length: 5}},
		},
	}
	iloc.DeriveVersion()
	require.Equal(t, uint8(1), iloc.Version)
	require.Equal(t, uint8(4), iloc.IndexSize)

	b := make([]byte, iloc.Len())
	iloc.Marshal(b)

	var got ItemLocation
	_, err := got.Unmarshal(b, 0)
	require.NoError(t, err)
	assert.Equal(t, iloc.Items, got.Items)
}
