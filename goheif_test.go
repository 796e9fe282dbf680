package goheif

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ugparu/goheif/heifio"
	"github.com/ugparu/goheif/utils/bits/pio"
)

func testHVCConf() *heifio.HVCConf {
	conf := &heifio.HVCConf{
		ConfigurationVersion: 1,
		GeneralProfileIDC:    1,
		GeneralLevelIDC:      93,
		ChromaFormat:         1,
		NumTemporalLayers:    1,
		TemporalIDNested:     1,
		LengthSizeMinusOne:   3,
	}
	conf.AppendNALData([]byte{0x40, 0x01, 0x0c})
	conf.AppendNALData([]byte{0x42, 0x01, 0x01})
	conf.AppendNALData([]byte{0x44, 0x01, 0xc1})
	return conf
}

// muxMinimal writes the minimal HEIF scenario: one hvc1 item with hvcC and
// ispe properties and its payload in a trailing mdat.
func muxMinimal(t *testing.T, payload []byte) []byte {
	t.Helper()

	var out bytes.Buffer
	mux := NewMuxer(&out)
	id, err := mux.AddImage(payload, ImageOptions{
		Type:   heifio.HVC1,
		Width:  64,
		Height: 64,
		Config: testHVCConf(),
	})
	require.NoError(t, err)
	require.Equal(t, uint32(1), id)
	require.NoError(t, mux.WriteTrailer())
	return out.Bytes()
}

func TestMinimalFileRoundTrip(t *testing.T) {
	t.Parallel()

	payload := []byte{0, 0, 0, 4, 0x26, 1, 0xaf, 0xfe}
	file := muxMinimal(t, payload)

	demux := NewDemuxer(bytes.NewReader(file))
	require.NoError(t, demux.ReadHeader())

	assert.Equal(t, heifio.BrandHEIC, demux.FileType().MajorBrand)
	assert.True(t, demux.FileType().HasCompatibleBrand(heifio.BrandMIF1))
	require.NotNil(t, demux.Meta().Handler)
	assert.Equal(t, heifio.PICT, demux.Meta().Handler.HandlerType)

	it, err := demux.PrimaryItem()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), it.ID)
	assert.Equal(t, heifio.HVC1, it.Type())

	require.Len(t, it.Properties, 2)
	assert.Equal(t, heifio.HVCC, it.Properties[0].Tag())
	assert.Equal(t, heifio.ISPE, it.Properties[1].Tag())

	w, h, ok := it.SpatialExtents()
	require.True(t, ok)
	assert.Equal(t, uint32(64), w)
	assert.Equal(t, uint32(64), h)

	data, err := demux.ItemData(it)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	coded, err := demux.ItemCodedData(it)
	require.NoError(t, err)
	assert.Equal(t, append(it.HVCConf().Headers(), payload...), coded)
}

func TestMetaRoundTripsByteExact(t *testing.T) {
	t.Parallel()

	file := muxMinimal(t, []byte{1, 2, 3, 4, 5})

	atoms, err := heifio.ReadFileAtoms(bytes.NewReader(file))
	require.NoError(t, err)
	require.Len(t, atoms, 3) // ftyp, meta, mdat

	// Re-marshal ftyp and meta and compare against the original bytes.
	var out bytes.Buffer
	require.NoError(t, heifio.WriteFileAtoms(&out, atoms[:2]))
	assert.Equal(t, file[:out.Len()], out.Bytes())
}

func TestTruncatedFile(t *testing.T) {
	t.Parallel()

	file := muxMinimal(t, []byte{1, 2, 3, 4, 5})
	demux := NewDemuxer(bytes.NewReader(file[:len(file)-1]))
	err := demux.ReadHeader()
	assert.ErrorIs(t, err, heifio.ErrTruncatedBox)
}

func TestUnknownEssentialPropertyRefusesItem(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	mux := NewMuxer(&out)
	_, err := mux.AddImage([]byte{1, 2, 3}, ImageOptions{
		Width: 64, Height: 64, Config: testHVCConf(),
	})
	require.NoError(t, err)
	ok, err := mux.AddImage([]byte{4, 5, 6}, ImageOptions{
		Width: 64, Height: 64, Config: testHVCConf(),
	})
	require.NoError(t, err)
	require.NoError(t, mux.WriteTrailer())
	file := out.Bytes()

	// Re-parse, inject a zzzz box into ipco and associate it with item 1
	// as an essential property.
	atoms, err := heifio.ReadFileAtoms(bytes.NewReader(file))
	require.NoError(t, err)
	var meta *heifio.Meta
	for _, atom := range atoms {
		if m, isMeta := atom.(*heifio.Meta); isMeta {
			meta = m
		}
	}
	require.NotNil(t, meta)

	raw := make([]byte, 9)
	pio.PutU32BE(raw, 9)
	copy(raw[4:], "zzzz")
	unknown := &heifio.Dummy{Tag_: heifio.StringToTag("zzzz"), Data: raw}
	index := meta.ItemProperties.Container.AppendChild(unknown)
	meta.ItemProperties.Associations[0].AddProperty(1, heifio.Association{Essential: true, Index: index})

	demux := remux(t, atoms, file)

	it, err := demux.Item(1)
	require.NoError(t, err, "the item itself stays visible")
	_, err = demux.ItemData(it)
	assert.ErrorIs(t, err, ErrUnknownEssentialProperty, "presentation is refused")

	other, err := demux.Item(ok)
	require.NoError(t, err)
	_, err = demux.ItemData(other)
	assert.NoError(t, err, "sibling items are unaffected")
}

// remux rebuilds a readable stream after the meta tree was edited in
// place: re-marshals ftyp+meta and re-bases the mdat extents.
func remux(t *testing.T, atoms []heifio.Atom, original []byte) *Demuxer {
	t.Helper()

	var meta *heifio.Meta
	var ftyp *heifio.FileType
	var mdat *heifio.MediaData
	for _, atom := range atoms {
		switch a := atom.(type) {
		case *heifio.FileType:
			ftyp = a
		case *heifio.Meta:
			meta = a
		case *heifio.MediaData:
			mdat = a
		}
	}
	require.NotNil(t, ftyp)
	require.NotNil(t, meta)
	require.NotNil(t, mdat)

	mdatPos, mdatSize := mdat.Pos()
	mdatBytes := original[mdatPos : mdatPos+mdatSize]

	newLen := ftyp.Len() + meta.Len()
	shift := int64(newLen+heifio.HeaderSize) - mdat.DataOffset
	for i := range meta.ItemLocation.Items {
		item := &meta.ItemLocation.Items[i]
		if item.ConstructionMethod != 0 {
			continue
		}
		for e := range item.Extents {
			item.Extents[e].Offset = uint64(int64(item.Extents[e].Offset) + shift)
		}
	}
	heifio.DeriveVersionRecursive(meta)

	buf := make([]byte, ftyp.Len()+meta.Len())
	n := ftyp.Marshal(buf)
	meta.Marshal(buf[n:])
	buf = append(buf, mdatBytes...)

	demux := NewDemuxer(bytes.NewReader(buf))
	require.NoError(t, demux.ReadHeader())
	return demux
}

func TestIdatConstruction(t *testing.T) {
	t.Parallel()

	payload := []byte{9, 8, 7, 6}
	var out bytes.Buffer
	mux := NewMuxer(&out)
	id, err := mux.AddImage(payload, ImageOptions{
		Width: 8, Height: 8, Config: testHVCConf(), InIdat: true,
	})
	require.NoError(t, err)
	require.NoError(t, mux.WriteTrailer())

	demux := NewDemuxer(bytes.NewReader(out.Bytes()))
	require.NoError(t, demux.ReadHeader())

	it, err := demux.Item(id)
	require.NoError(t, err)
	require.NotNil(t, it.Location)
	assert.Equal(t, uint8(1), it.Location.ConstructionMethod)

	data, err := demux.ItemData(it)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestThumbnailReference(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	mux := NewMuxer(&out)
	master, err := mux.AddImage([]byte{1, 1, 1, 1}, ImageOptions{
		Width: 64, Height: 64, Config: testHVCConf(),
	})
	require.NoError(t, err)
	thumb, err := mux.AddThumbnail([]byte{2, 2}, master, ImageOptions{
		Width: 8, Height: 8, Config: testHVCConf(), Hidden: true,
	})
	require.NoError(t, err)
	require.NoError(t, mux.WriteTrailer())

	demux := NewDemuxer(bytes.NewReader(out.Bytes()))
	require.NoError(t, demux.ReadHeader())

	primary, err := demux.PrimaryItem()
	require.NoError(t, err)
	assert.Equal(t, master, primary.ID)

	thumbs, err := demux.Thumbnails(master)
	require.NoError(t, err)
	require.Len(t, thumbs, 1)
	assert.Equal(t, thumb, thumbs[0].ID)
	assert.True(t, thumbs[0].Hidden())

	data, err := demux.ItemData(thumbs[0])
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 2}, data)
}

func TestExifRoundTrip(t *testing.T) {
	t.Parallel()

	exif := []byte("MM\x00\x2a\x00\x00\x00\x08")
	var out bytes.Buffer
	mux := NewMuxer(&out)
	master, err := mux.AddImage([]byte{1}, ImageOptions{
		Width: 4, Height: 4, Config: testHVCConf(),
	})
	require.NoError(t, err)
	_, err = mux.AddExif(master, exif)
	require.NoError(t, err)
	require.NoError(t, mux.WriteTrailer())

	demux := NewDemuxer(bytes.NewReader(out.Bytes()))
	require.NoError(t, demux.ReadHeader())

	got, err := demux.Exif()
	require.NoError(t, err)
	assert.Equal(t, exif, got)
}

func TestMultipleImagesShareProperties(t *testing.T) {
	t.Parallel()

	conf := testHVCConf()
	var out bytes.Buffer
	mux := NewMuxer(&out)
	a, err := mux.AddImage([]byte{1, 2}, ImageOptions{Width: 16, Height: 16, Config: conf})
	require.NoError(t, err)
	b, err := mux.AddImage([]byte{3, 4}, ImageOptions{Width: 16, Height: 16, Config: conf})
	require.NoError(t, err)
	require.NoError(t, mux.WriteTrailer())

	demux := NewDemuxer(bytes.NewReader(out.Bytes()))
	require.NoError(t, demux.ReadHeader())

	// The shared hvcC lands once in ipco; both items resolve it.
	require.Len(t, demux.Meta().ItemProperties.Container.Children(), 3)

	for i, id := range []uint32{a, b} {
		it, err := demux.Item(id)
		require.NoError(t, err)
		require.NotNil(t, it.HVCConf())
		data, err := demux.ItemData(it)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(2*i + 1), byte(2*i + 2)}, data)
	}
}

func TestRotatedVisualDimensions(t *testing.T) {
	t.Parallel()

	irot := &heifio.ImageRotation{}
	require.NoError(t, irot.SetRotationCCW(90))

	var out bytes.Buffer
	mux := NewMuxer(&out)
	id, err := mux.AddImage([]byte{1}, ImageOptions{
		Width: 640, Height: 480, Config: testHVCConf(),
		Properties: []heifio.Atom{irot},
	})
	require.NoError(t, err)
	require.NoError(t, mux.WriteTrailer())

	demux := NewDemuxer(bytes.NewReader(out.Bytes()))
	require.NoError(t, demux.ReadHeader())

	it, err := demux.Item(id)
	require.NoError(t, err)
	assert.Equal(t, 90, it.RotationCCW())

	w, h, ok := it.VisualDimensions()
	require.True(t, ok)
	assert.Equal(t, uint32(480), w)
	assert.Equal(t, uint32(640), h)
}

func TestUnknownItemID(t *testing.T) {
	t.Parallel()

	file := muxMinimal(t, []byte{1})
	demux := NewDemuxer(bytes.NewReader(file))
	require.NoError(t, demux.ReadHeader())

	_, err := demux.Item(42)
	assert.ErrorIs(t, err, ErrUnknownItem)
}
