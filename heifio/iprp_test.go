package heifio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildItemProperties(t *testing.T) (*ItemProperties, *HVCConf, *ImageSpatialExtents) {
	t.Helper()

	conf := &HVCConf{ConfigurationVersion: 1, GeneralProfileIDC: 1, GeneralLevelIDC: 93, LengthSizeMinusOne: 3}
	conf.AppendNALData([]byte{0x40, 0x01, 0xaa})
	ispe := &ImageSpatialExtents{Width: 64, Height: 64}

	iprp := &ItemProperties{}
	ipco := &PropertyContainer{}
	iprp.AppendChild(ipco)
	ipma := &PropertyAssociation{}
	iprp.AppendChild(ipma)

	ipma.AddProperty(1, Association{Essential: true, Index: ipco.AppendChild(conf)})
	ipma.AddProperty(1, Association{Essential: false, Index: ipco.AppendChild(ispe)})
	return iprp, conf, ispe
}

func TestPropertiesForItemOrder(t *testing.T) {
	t.Parallel()

	iprp, conf, ispe := buildItemProperties(t)
	props, err := iprp.PropertiesForItem(1)
	require.NoError(t, err)
	require.Len(t, props, 2)
	assert.Equal(t, Atom(conf), props[0])
	assert.Equal(t, Atom(ispe), props[1])

	props, err = iprp.PropertiesForItem(2)
	require.NoError(t, err)
	assert.Empty(t, props)
}

func TestIsPropertyEssential(t *testing.T) {
	t.Parallel()

	iprp, _, _ := buildItemProperties(t)
	assert.True(t, iprp.IsPropertyEssential(1, 1))
	assert.False(t, iprp.IsPropertyEssential(1, 2))
	assert.False(t, iprp.IsPropertyEssential(2, 1))
}

func TestPropertiesBadIndex(t *testing.T) {
	t.Parallel()

	iprp, _, _ := buildItemProperties(t)
	iprp.Associations[0].AddProperty(3, Association{Index: 9})
	_, err := iprp.PropertiesForItem(3)
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestItemPropertiesChildValidation(t *testing.T) {
	t.Parallel()

	t.Run("missing_ipco", func(t *testing.T) {
		t.Parallel()
		bare := &ItemProperties{}
		ipma := &PropertyAssociation{}
		bare.AppendChild(ipma)
		raw := make([]byte, bare.Len())
		bare.Marshal(raw)
		var got ItemProperties
		_, err := got.Unmarshal(raw, 0)
		assert.ErrorIs(t, err, ErrMissingRequiredChild)
	})

	t.Run("duplicate_ipco", func(t *testing.T) {
		t.Parallel()
		dup := &ItemProperties{}
		dup.atoms = []Atom{&PropertyContainer{}, &PropertyContainer{}}
		raw := make([]byte, dup.Len())
		dup.Marshal(raw)
		var got ItemProperties
		_, err := got.Unmarshal(raw, 0)
		assert.ErrorIs(t, err, ErrDuplicateChild)
	})
}

func TestPropertyAssociationDerive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		itemID    uint32
		index     uint16
		version   uint8
		wideIndex bool
	}{
		{name: "compact", itemID: 10, index: 5, version: 0, wideIndex: false},
		{name: "wide_item", itemID: 70000, index: 5, version: 1, wideIndex: false},
		{name: "wide_index", itemID: 10, index: 200, version: 0, wideIndex: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ipma := &PropertyAssociation{}
			ipma.AddProperty(tt.itemID, Association{Index: tt.index})
			ipma.DeriveVersion()
			assert.Equal(t, tt.version, ipma.Version)
			assert.Equal(t, tt.wideIndex, ipma.Flags&flagWideIndex != 0)
		})
	}
}

func TestPropertyAssociationRoundTrip(t *testing.T) {
	t.Parallel()

	ipma := &PropertyAssociation{}
	ipma.AddProperty(1, Association{Essential: true, Index: 1})
	ipma.AddProperty(1, Association{Essential: false, Index: 2})
	ipma.AddProperty(70000, Association{Essential: true, Index: 300})
	ipma.DeriveVersion()

	b := make([]byte, ipma.Len())
	n := ipma.Marshal(b)
	require.Equal(t, ipma.Len(), n)

	var got PropertyAssociation
	_, err := got.Unmarshal(b, 0)
	require.NoError(t, err)
	assert.Equal(t, ipma.Entries, got.Entries)

	out := make([]byte, got.Len())
	got.Marshal(out)
	assert.Equal(t, b, out)
}

func TestPropertyAssociationMerge(t *testing.T) {
	t.Parallel()

	a := &PropertyAssociation{}
	a.AddProperty(1, Association{Index: 1})
	b := &PropertyAssociation{}
	b.AddProperty(1, Association{Index: 2})
	b.AddProperty(2, Association{Index: 1})

	a.InsertEntriesFrom(b)
	require.Len(t, a.Entries, 3, "duplicate item ids are appended, not merged")
	assert.Equal(t, []Association{{Index: 1}, {Index: 2}}, a.AssociationsForItem(1))
}
