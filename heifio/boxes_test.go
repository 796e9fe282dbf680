package heifio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ugparu/goheif/utils/bits/pio"
)

func reparse[T any, PT interface {
	*T
	Atom
}](t *testing.T, atom Atom) PT {
	t.Helper()

	b := make([]byte, atom.Len())
	n := atom.Marshal(b)
	require.Equal(t, atom.Len(), n, "Marshal length must match Len")

	got := PT(new(T))
	_, err := got.Unmarshal(b, 0)
	require.NoError(t, err)

	out := make([]byte, got.Len())
	got.Marshal(out)
	require.Equal(t, b, out, "reparse must marshal byte-identically")
	return got
}

func TestFileTypeBrands(t *testing.T) {
	t.Parallel()

	ftyp := NewFileType(BrandHEIC, BrandHEIC, BrandMIF1)
	got := reparse[FileType](t, ftyp)
	assert.Equal(t, BrandHEIC, got.MajorBrand)
	assert.True(t, got.HasCompatibleBrand(BrandMIF1))
	assert.False(t, got.HasCompatibleBrand(BrandAVIF))
}

func TestHandlerReferName(t *testing.T) {
	t.Parallel()

	got := reparse[HandlerRefer](t, NewHandlerRefer(PICT, "GoHEIF"))
	assert.Equal(t, PICT, got.HandlerType)
	assert.Equal(t, "GoHEIF", got.Name)

	empty := reparse[HandlerRefer](t, NewHandlerRefer(PICT, ""))
	assert.Equal(t, "", empty.Name)
}

func TestItemInfoEntryStrings(t *testing.T) {
	t.Parallel()

	t.Run("mime", func(t *testing.T) {
		t.Parallel()
		entry := &ItemInfoEntry{
			Version:     2,
			ItemID:      3,
			ItemType:    MIME,
			ItemName:    "caption",
			ContentType: "text/plain",
		}
		got := reparse[ItemInfoEntry](t, entry)
		assert.Equal(t, "caption", got.ItemName)
		assert.Equal(t, "text/plain", got.ContentType)
	})

	t.Run("uri", func(t *testing.T) {
		t.Parallel()
		entry := &ItemInfoEntry{
			Version:     2,
			ItemID:      4,
			ItemType:    URI,
			ItemURIType: "urn:example:depth",
		}
		got := reparse[ItemInfoEntry](t, entry)
		assert.Equal(t, "urn:example:depth", got.ItemURIType)
	})

	t.Run("hidden_flag", func(t *testing.T) {
		t.Parallel()
		entry := &ItemInfoEntry{Version: 2, ItemID: 5, ItemType: HVC1}
		entry.SetHidden(true)
		got := reparse[ItemInfoEntry](t, entry)
		assert.True(t, got.Hidden())
		got.SetHidden(false)
		assert.False(t, got.Hidden())
	})

	t.Run("wide_id_derives_v3", func(t *testing.T) {
		t.Parallel()
		entry := &ItemInfoEntry{ItemID: 70000, ItemType: HVC1}
		entry.DeriveVersion()
		assert.Equal(t, uint8(3), entry.Version)
		got := reparse[ItemInfoEntry](t, entry)
		assert.Equal(t, uint32(70000), got.ItemID)
	})
}

func TestInfeTruncatedLastString(t *testing.T) {
	t.Parallel()

	entry := &ItemInfoEntry{Version: 2, ItemID: 1, ItemType: HVC1, ItemName: "img"}
	b := make([]byte, entry.Len())
	entry.Marshal(b)

	// Drop the trailing null of the final string; the reader tolerates
	// the missing terminator at end-of-box.
	b = b[:len(b)-1]
	pio.PutU32BE(b, uint32(len(b)))

	var got ItemInfoEntry
	_, err := got.Unmarshal(b, 0)
	require.NoError(t, err)
	assert.Equal(t, "img", got.ItemName)
}

func TestHVCConfRecord(t *testing.T) {
	t.Parallel()

	conf := &HVCConf{
		ConfigurationVersion:             1,
		GeneralProfileSpace:              0,
		GeneralTierFlag:                  false,
		GeneralProfileIDC:                1,
		GeneralProfileCompatibilityFlags: 0x60000000,
		GeneralConstraintIndicatorFlags:  0xb00000000000,
		GeneralLevelIDC:                  93,
		MinSpatialSegmentationIDC:        0,
		ParallelismType:                  0,
		ChromaFormat:                     1,
		BitDepthLumaMinus8:               0,
		BitDepthChromaMinus8:             0,
		ConstantFrameRate:                0,
		NumTemporalLayers:                1,
		TemporalIDNested:                 1,
		LengthSizeMinusOne:               3,
	}
	vps := []byte{0x40, 0x01, 0x0c}
	sps := []byte{0x42, 0x01, 0x01, 0x60}
	pps := []byte{0x44, 0x01, 0xc1}
	conf.AppendNALData(vps)
	conf.AppendNALData(sps)
	conf.AppendNALData(pps)
	require.Len(t, conf.NALArrays, 3)

	got := reparse[HVCConf](t, conf)
	assert.Equal(t, uint8(1), got.GeneralProfileIDC)
	assert.Equal(t, uint8(93), got.GeneralLevelIDC)
	assert.Equal(t, uint8(1), got.ChromaFormat)
	assert.Equal(t, 4, got.LengthSize())
	require.Len(t, got.NALArrays, 3)
	assert.Equal(t, vps, got.NALArrays[0].Units[0])

	headers := got.Headers()
	want := []byte{0, 0, 0, 3}
	want = append(want, vps...)
	want = append(want, 0, 0, 0, 4)
	want = append(want, sps...)
	want = append(want, 0, 0, 0, 3)
	want = append(want, pps...)
	assert.Equal(t, want, headers)
}

func TestHVCConfAppendNALStream(t *testing.T) {
	t.Parallel()

	vps := []byte{0x40, 0x01, 0x0c}
	sps := []byte{0x42, 0x01, 0x01}
	idr := []byte{0x26, 0x01, 0xaf} // coded slice, not a parameter set
	stream := []byte{0, 0, 0, 1}
	stream = append(stream, vps...)
	stream = append(stream, 0, 0, 1)
	stream = append(stream, sps...)
	stream = append(stream, 0, 0, 1)
	stream = append(stream, idr...)

	conf := &HVCConf{ConfigurationVersion: 1}
	conf.AppendNALStream(stream)
	require.Len(t, conf.NALArrays, 2, "only parameter sets are kept")
	assert.Equal(t, vps, conf.NALArrays[0].Units[0])
	assert.Equal(t, sps, conf.NALArrays[1].Units[0])
}

func TestAV1ConfRecord(t *testing.T) {
	t.Parallel()

	conf := NewAV1Conf()
	conf.SeqProfile = 0
	conf.SeqLevelIdx0 = 8
	conf.HighBitdepth = false
	conf.ChromaSubsamplingX = 1
	conf.ChromaSubsamplingY = 1
	conf.ConfigOBUs = []byte{0x0a, 0x0b, 0x00, 0x00}

	got := reparse[AV1Conf](t, conf)
	assert.Equal(t, uint8(1), got.Version)
	assert.Equal(t, uint8(8), got.SeqLevelIdx0)
	assert.Equal(t, uint8(1), got.ChromaSubsamplingX)
	assert.Equal(t, conf.ConfigOBUs, got.Headers())
}

func TestVVCConfRecord(t *testing.T) {
	t.Parallel()

	conf := NewVVCConf()
	conf.NumTemporalLayers = 1
	conf.LengthSizeMinusOne = 3
	conf.ChromaFormatPresent = true
	conf.ChromaFormatIDC = 1
	conf.BitDepthPresent = true
	conf.BitDepthMinus8 = 2
	conf.PTLPresent = true
	conf.PTLRecord = []byte{0x11, 0x22, 0x33}
	conf.AppendNALData([]byte{0x00, 0x79, 0xaa}) // sps

	got := reparse[VVCConf](t, conf)
	assert.Equal(t, uint8(1), got.ChromaFormatIDC)
	assert.Equal(t, uint8(2), got.BitDepthMinus8)
	assert.Equal(t, conf.PTLRecord, got.PTLRecord)
	assert.Equal(t, 4, got.LengthSize())
	require.Len(t, got.NALArrays, 1)
}

func TestColourInformation(t *testing.T) {
	t.Parallel()

	t.Run("nclx", func(t *testing.T) {
		t.Parallel()
		colr := &ColourInformation{Profile: &NCLXProfile{
			Primaries: 9,
			Transfer:  16,
			Matrix:    9,
			FullRange: true,
		}}
		got := reparse[ColourInformation](t, colr)
		nclx, ok := got.Profile.(*NCLXProfile)
		require.True(t, ok)
		assert.Equal(t, uint16(9), nclx.Primaries)
		assert.Equal(t, uint16(16), nclx.Transfer)
		assert.True(t, nclx.FullRange)
	})

	t.Run("icc", func(t *testing.T) {
		t.Parallel()
		colr := &ColourInformation{Profile: &RawProfile{
			Type: PROF,
			Data: []byte{0, 0, 0, 12, 'a', 'c', 's', 'p'},
		}}
		got := reparse[ColourInformation](t, colr)
		raw, ok := got.Profile.(*RawProfile)
		require.True(t, ok)
		assert.Equal(t, PROF, raw.Type)
		assert.Len(t, raw.Data, 8)
	})
}

func TestSmallProperties(t *testing.T) {
	t.Parallel()

	t.Run("irot", func(t *testing.T) {
		t.Parallel()
		irot := &ImageRotation{}
		require.NoError(t, irot.SetRotationCCW(270))
		assert.ErrorIs(t, irot.SetRotationCCW(45), ErrInvalidField)
		got := reparse[ImageRotation](t, irot)
		assert.Equal(t, 270, got.RotationCCW())
	})

	t.Run("imir", func(t *testing.T) {
		t.Parallel()
		got := reparse[ImageMirror](t, &ImageMirror{Axis: MirrorHorizontal})
		assert.Equal(t, MirrorHorizontal, got.Axis)
	})

	t.Run("pixi", func(t *testing.T) {
		t.Parallel()
		got := reparse[PixelInformation](t, &PixelInformation{BitsPerChannel: []uint8{8, 8, 8}})
		assert.Equal(t, []uint8{8, 8, 8}, got.BitsPerChannel)
	})

	t.Run("pasp", func(t *testing.T) {
		t.Parallel()
		got := reparse[PixelAspectRatio](t, &PixelAspectRatio{HSpacing: 4, VSpacing: 3})
		assert.Equal(t, uint32(4), got.HSpacing)
	})

	t.Run("auxc", func(t *testing.T) {
		t.Parallel()
		aux := &AuxiliaryType{AuxType: "urn:mpeg:hevc:2015:auxid:1", Subtypes: []byte{1, 2}}
		got := reparse[AuxiliaryType](t, aux)
		assert.Equal(t, aux.AuxType, got.AuxType)
		assert.Equal(t, aux.Subtypes, got.Subtypes)
	})

	t.Run("lsel", func(t *testing.T) {
		t.Parallel()
		got := reparse[LayerSelector](t, &LayerSelector{LayerID: 2})
		assert.Equal(t, uint16(2), got.LayerID)
	})

	t.Run("a1op", func(t *testing.T) {
		t.Parallel()
		got := reparse[AV1OperatingPoint](t, &AV1OperatingPoint{OpIndex: 3})
		assert.Equal(t, uint8(3), got.OpIndex)
	})

	t.Run("a1lx_large", func(t *testing.T) {
		t.Parallel()
		got := reparse[AV1LayeredImageIndexing](t, &AV1LayeredImageIndexing{LayerSize: [3]uint32{100, 70000, 0}})
		assert.Equal(t, uint32(70000), got.LayerSize[1])
		assert.True(t, got.Large)
	})

	t.Run("clli", func(t *testing.T) {
		t.Parallel()
		got := reparse[ContentLightLevel](t, &ContentLightLevel{MaxCLL: 1000, MaxFALL: 400})
		assert.Equal(t, uint16(1000), got.MaxCLL)
	})

	t.Run("mdcv", func(t *testing.T) {
		t.Parallel()
		mdcv := &MasteringDisplayColourVolume{
			PrimariesX:   [3]uint16{35400, 8500, 6550},
			PrimariesY:   [3]uint16{14600, 39850, 2300},
			WhitePointX:  15635,
			WhitePointY:  16450,
			MaxLuminance: 10000000,
			MinLuminance: 50,
		}
		got := reparse[MasteringDisplayColourVolume](t, mdcv)
		assert.Equal(t, mdcv.PrimariesX, got.PrimariesX)
		assert.Equal(t, uint32(10000000), got.MaxLuminance)
	})

	t.Run("udes", func(t *testing.T) {
		t.Parallel()
		udes := &UserDescription{Lang: "en-AU", Name: "Sunset", Description: "Over the bay", Tags: "sunset,bay"}
		got := reparse[UserDescription](t, udes)
		assert.Equal(t, "en-AU", got.Lang)
		assert.Equal(t, "sunset,bay", got.Tags)
	})
}

func TestGroupsList(t *testing.T) {
	t.Parallel()

	grpl := &GroupsList{}
	grpl.AppendChild(&EntityToGroup{GroupingType: ALTR, GroupID: 10, EntityIDs: []uint32{1, 2}})
	got := reparse[GroupsList](t, grpl)
	groups := got.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, ALTR, groups[0].GroupingType)
	assert.Equal(t, []uint32{1, 2}, groups[0].EntityIDs)
}

func TestItemDataWindow(t *testing.T) {
	t.Parallel()

	idat := &ItemData{}
	off := idat.AppendData([]byte{1, 2, 3})
	assert.Equal(t, uint64(0), off)
	off = idat.AppendData([]byte{4, 5})
	assert.Equal(t, uint64(3), off)

	got := reparse[ItemData](t, idat)
	data, err := got.ReadData(3, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 5}, data)

	_, err = got.ReadData(4, 2)
	assert.ErrorIs(t, err, ErrOffsetOutOfRange)
}

func TestDataInformationDefault(t *testing.T) {
	t.Parallel()

	got := reparse[DataInformation](t, NewDataInformation())
	require.NotNil(t, got.Reference)
	require.Len(t, got.Reference.Children(), 1)
	url, ok := got.Reference.Children()[0].(*DataEntryURL)
	require.True(t, ok)
	assert.True(t, url.SelfContained())
}
