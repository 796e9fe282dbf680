package goheif

import "github.com/ugparu/goheif/heifio"

// Item is one logical entity of a HEIF file, with its info entry, payload
// location and resolved properties.
type Item struct {
	d *Demuxer

	ID         uint32
	Info       *heifio.ItemInfoEntry
	Location   *heifio.LocationItem
	Properties []heifio.Atom

	// unknownEssential holds the codes of essential properties this
	// reader cannot interpret; a non-empty list blocks presentation.
	unknownEssential []heifio.Tag
}

// Type is the item's coding type (hvc1, av01, Exif, mime, ...).
func (it *Item) Type() heifio.Tag {
	return it.Info.ItemType
}

// Hidden reports whether the item is excluded from presentation.
func (it *Item) Hidden() bool {
	return it.Info.Hidden()
}

// Property returns the first associated property with the given code.
func (it *Item) Property(tag heifio.Tag) heifio.Atom {
	for _, p := range it.Properties {
		if p.Tag() == tag {
			return p
		}
	}
	return nil
}

// SpatialExtents returns the ispe dimensions, not corrected for rotation.
func (it *Item) SpatialExtents() (width, height uint32, ok bool) {
	if ispe, k := it.Property(heifio.ISPE).(*heifio.ImageSpatialExtents); k {
		return ispe.Width, ispe.Height, true
	}
	return
}

// RotationCCW returns the irot rotation in degrees, 0 when absent.
func (it *Item) RotationCCW() int {
	if irot, ok := it.Property(heifio.IROT).(*heifio.ImageRotation); ok {
		return irot.RotationCCW()
	}
	return 0
}

// MirrorAxis returns the imir axis and whether the property is present.
func (it *Item) MirrorAxis() (axis uint8, ok bool) {
	if imir, k := it.Property(heifio.IMIR).(*heifio.ImageMirror); k {
		return imir.Axis, true
	}
	return
}

// CleanAperture returns the clap property, if any.
func (it *Item) CleanAperture() *heifio.CleanAperture {
	clap, _ := it.Property(heifio.CLAP).(*heifio.CleanAperture)
	return clap
}

// VisualDimensions returns the displayed size after rotation and crop.
func (it *Item) VisualDimensions() (width, height uint32, ok bool) {
	width, height, ok = it.SpatialExtents()
	if !ok {
		return
	}
	if clap := it.CleanAperture(); clap != nil {
		if left, top, right, bottom, err := clap.Window(width, height); err == nil {
			width = uint32(right - left + 1)
			height = uint32(bottom - top + 1)
		}
	}
	for i := 0; i < it.RotationCCW()/90; i++ {
		width, height = height, width
	}
	return
}

// HVCConf returns the hvcC decoder configuration, if any.
func (it *Item) HVCConf() *heifio.HVCConf {
	conf, _ := it.Property(heifio.HVCC).(*heifio.HVCConf)
	return conf
}

// AV1Conf returns the av1C decoder configuration, if any.
func (it *Item) AV1Conf() *heifio.AV1Conf {
	conf, _ := it.Property(heifio.AV1C).(*heifio.AV1Conf)
	return conf
}

// VVCConf returns the vvcC decoder configuration, if any.
func (it *Item) VVCConf() *heifio.VVCConf {
	conf, _ := it.Property(heifio.VVCC).(*heifio.VVCConf)
	return conf
}

// ColourProfile returns the colr payload, if any.
func (it *Item) ColourProfile() heifio.ColourProfile {
	if colr, ok := it.Property(heifio.COLR).(*heifio.ColourInformation); ok {
		return colr.Profile
	}
	return nil
}

// References returns the typed reference edges originating at this item.
func (it *Item) References() []heifio.Reference {
	if it.d.meta.ItemReference == nil {
		return nil
	}
	return it.d.meta.ItemReference.ReferencesFrom(it.ID)
}

// Reference returns the targets of the first reference of the given type.
func (it *Item) Reference(refType heifio.Tag) []uint32 {
	if it.d.meta.ItemReference == nil {
		return nil
	}
	return it.d.meta.ItemReference.GetReferences(it.ID, refType)
}
