package heifio

import (
	"fmt"

	"github.com/ugparu/goheif/utils/bits/pio"
)

// ImageSpatialExtents is the ispe property: pixel width and height.
type ImageSpatialExtents struct {
	Version uint8
	Flags   uint32
	Width   uint32
	Height  uint32
	AtomPos
}

func (*ImageSpatialExtents) Tag() Tag {
	return ISPE
}

func (*ImageSpatialExtents) Children() []Atom {
	return nil
}

func (e *ImageSpatialExtents) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}

func (e *ImageSpatialExtents) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(ISPE))
	n = putFullBox(b, HeaderSize, e.Version, e.Flags)
	pio.PutU32BE(b[n:], e.Width)
	n += 4
	pio.PutU32BE(b[n:], e.Height)
	n += 4
	pio.PutU32BE(b, uint32(n))
	return
}

func (e *ImageSpatialExtents) Len() int {
	return HeaderSize + fullBoxSize + 8
}

func (e *ImageSpatialExtents) Unmarshal(b []byte, offset int) (n int, err error) {
	e.AtomPos.setPos(offset, len(b))
	if e.Version, e.Flags, n, err = parseFullBox(b, HeaderSize, offset); err != nil {
		return
	}
	if len(b) < n+8 {
		err = parseErr("Extents", offset+n, nil)
		return
	}
	e.Width = pio.U32BE(b[n:])
	n += 4
	e.Height = pio.U32BE(b[n:])
	n += 4
	return
}

// PixelAspectRatio is the pasp property.
type PixelAspectRatio struct {
	HSpacing uint32
	VSpacing uint32
	AtomPos
}

func (*PixelAspectRatio) Tag() Tag {
	return PASP
}

func (*PixelAspectRatio) Children() []Atom {
	return nil
}

func (p *PixelAspectRatio) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(PASP))
	n = HeaderSize
	pio.PutU32BE(b[n:], p.HSpacing)
	n += 4
	pio.PutU32BE(b[n:], p.VSpacing)
	n += 4
	pio.PutU32BE(b, uint32(n))
	return
}

func (p *PixelAspectRatio) Len() int {
	return HeaderSize + 8
}

func (p *PixelAspectRatio) Unmarshal(b []byte, offset int) (n int, err error) {
	p.AtomPos.setPos(offset, len(b))
	n = HeaderSize
	if len(b) < n+8 {
		err = parseErr("Spacing", offset+n, nil)
		return
	}
	p.HSpacing = pio.U32BE(b[n:])
	n += 4
	p.VSpacing = pio.U32BE(b[n:])
	n += 4
	return
}

// PixelInformation is the pixi property: bits per channel.
type PixelInformation struct {
	Version        uint8
	Flags          uint32
	BitsPerChannel []uint8
	AtomPos
}

func (*PixelInformation) Tag() Tag {
	return PIXI
}

func (*PixelInformation) Children() []Atom {
	return nil
}

func (p *PixelInformation) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(PIXI))
	n = putFullBox(b, HeaderSize, p.Version, p.Flags)
	pio.PutU8(b[n:], uint8(len(p.BitsPerChannel)))
	n++
	for _, bits := range p.BitsPerChannel {
		pio.PutU8(b[n:], bits)
		n++
	}
	pio.PutU32BE(b, uint32(n))
	return
}

func (p *PixelInformation) Len() int {
	return HeaderSize + fullBoxSize + 1 + len(p.BitsPerChannel)
}

func (p *PixelInformation) Unmarshal(b []byte, offset int) (n int, err error) {
	p.AtomPos.setPos(offset, len(b))
	if p.Version, p.Flags, n, err = parseFullBox(b, HeaderSize, offset); err != nil {
		return
	}
	if len(b) < n+1 {
		err = parseErr("NumChannels", offset+n, nil)
		return
	}
	channels := int(pio.U8(b[n:]))
	n++
	if len(b) < n+channels {
		err = parseErr("BitsPerChannel", offset+n, nil)
		return
	}
	p.BitsPerChannel = append([]uint8(nil), b[n:n+channels]...)
	n += channels
	return
}

// ImageRotation is the irot property: counter-clockwise rotation in units
// of 90 degrees, stored in the low two bits of a single byte.
type ImageRotation struct {
	Angle uint8
	AtomPos
}

func (*ImageRotation) Tag() Tag {
	return IROT
}

func (*ImageRotation) Children() []Atom {
	return nil
}

// RotationCCW returns the rotation in degrees.
func (r *ImageRotation) RotationCCW() int {
	return int(r.Angle) * 90
}

// SetRotationCCW accepts only the four legal multiples of 90.
func (r *ImageRotation) SetRotationCCW(degrees int) error {
	switch degrees {
	case 0, 90, 180, 270:
		r.Angle = uint8(degrees/90) & 0x3
		return nil
	}
	return invalidFieldErr(IROT, "rotation", uint64(uint(degrees)))
}

func (r *ImageRotation) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(IROT))
	n = HeaderSize
	pio.PutU8(b[n:], r.Angle&0x3)
	n++
	pio.PutU32BE(b, uint32(n))
	return
}

func (r *ImageRotation) Len() int {
	return HeaderSize + 1
}

func (r *ImageRotation) Unmarshal(b []byte, offset int) (n int, err error) {
	r.AtomPos.setPos(offset, len(b))
	n = HeaderSize
	if len(b) < n+1 {
		err = parseErr("Angle", offset+n, nil)
		return
	}
	r.Angle = pio.U8(b[n:]) & 0x3
	n++
	return
}

// Mirror axes for imir.
const (
	MirrorVertical   = uint8(0)
	MirrorHorizontal = uint8(1)
)

// ImageMirror is the imir property.
type ImageMirror struct {
	Axis uint8
	AtomPos
}

func (*ImageMirror) Tag() Tag {
	return IMIR
}

func (*ImageMirror) Children() []Atom {
	return nil
}

func (m *ImageMirror) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(IMIR))
	n = HeaderSize
	pio.PutU8(b[n:], m.Axis&0x1)
	n++
	pio.PutU32BE(b, uint32(n))
	return
}

func (m *ImageMirror) Len() int {
	return HeaderSize + 1
}

func (m *ImageMirror) Unmarshal(b []byte, offset int) (n int, err error) {
	m.AtomPos.setPos(offset, len(b))
	n = HeaderSize
	if len(b) < n+1 {
		err = parseErr("Axis", offset+n, nil)
		return
	}
	m.Axis = pio.U8(b[n:]) & 0x1
	n++
	return
}

// AuxiliaryType is the auxC property: the auxiliary image kind (alpha,
// depth, ...) plus an opaque subtype tail.
type AuxiliaryType struct {
	Version  uint8
	Flags    uint32
	AuxType  string
	Subtypes []byte
	AtomPos
}

func (*AuxiliaryType) Tag() Tag {
	return AUXC
}

func (*AuxiliaryType) Children() []Atom {
	return nil
}

func (a *AuxiliaryType) String() string {
	return a.AuxType
}

func (a *AuxiliaryType) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(AUXC))
	n = putFullBox(b, HeaderSize, a.Version, a.Flags)
	n += putCString(b[n:], a.AuxType)
	copy(b[n:], a.Subtypes)
	n += len(a.Subtypes)
	pio.PutU32BE(b, uint32(n))
	return
}

func (a *AuxiliaryType) Len() int {
	return HeaderSize + fullBoxSize + len(a.AuxType) + 1 + len(a.Subtypes)
}

func (a *AuxiliaryType) Unmarshal(b []byte, offset int) (n int, err error) {
	a.AtomPos.setPos(offset, len(b))
	if a.Version, a.Flags, n, err = parseFullBox(b, HeaderSize, offset); err != nil {
		return
	}
	a.AuxType, n = getCString(b, n)
	a.Subtypes = append([]byte(nil), b[n:]...)
	n = len(b)
	return
}

// LayerSelector is the lsel property.
type LayerSelector struct {
	LayerID uint16
	AtomPos
}

func (*LayerSelector) Tag() Tag {
	return LSEL
}

func (*LayerSelector) Children() []Atom {
	return nil
}

func (l *LayerSelector) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(LSEL))
	n = HeaderSize
	pio.PutU16BE(b[n:], l.LayerID)
	n += 2
	pio.PutU32BE(b, uint32(n))
	return
}

func (l *LayerSelector) Len() int {
	return HeaderSize + 2
}

func (l *LayerSelector) Unmarshal(b []byte, offset int) (n int, err error) {
	l.AtomPos.setPos(offset, len(b))
	n = HeaderSize
	if len(b) < n+2 {
		err = parseErr("LayerID", offset+n, nil)
		return
	}
	l.LayerID = pio.U16BE(b[n:])
	n += 2
	return
}

// ContentLightLevel is the clli property.
type ContentLightLevel struct {
	MaxCLL  uint16
	MaxFALL uint16
	AtomPos
}

func (*ContentLightLevel) Tag() Tag {
	return CLLI
}

func (*ContentLightLevel) Children() []Atom {
	return nil
}

func (c *ContentLightLevel) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(CLLI))
	n = HeaderSize
	pio.PutU16BE(b[n:], c.MaxCLL)
	n += 2
	pio.PutU16BE(b[n:], c.MaxFALL)
	n += 2
	pio.PutU32BE(b, uint32(n))
	return
}

func (c *ContentLightLevel) Len() int {
	return HeaderSize + 4
}

func (c *ContentLightLevel) Unmarshal(b []byte, offset int) (n int, err error) {
	c.AtomPos.setPos(offset, len(b))
	n = HeaderSize
	if len(b) < n+4 {
		err = parseErr("LightLevel", offset+n, nil)
		return
	}
	c.MaxCLL = pio.U16BE(b[n:])
	n += 2
	c.MaxFALL = pio.U16BE(b[n:])
	n += 2
	return
}

// MasteringDisplayColourVolume is the mdcv property.
type MasteringDisplayColourVolume struct {
	PrimariesX   [3]uint16
	PrimariesY   [3]uint16
	WhitePointX  uint16
	WhitePointY  uint16
	MaxLuminance uint32
	MinLuminance uint32
	AtomPos
}

func (*MasteringDisplayColourVolume) Tag() Tag {
	return MDCV
}

func (*MasteringDisplayColourVolume) Children() []Atom {
	return nil
}

func (m *MasteringDisplayColourVolume) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(MDCV))
	n = HeaderSize
	for i := 0; i < 3; i++ {
		pio.PutU16BE(b[n:], m.PrimariesX[i])
		n += 2
		pio.PutU16BE(b[n:], m.PrimariesY[i])
		n += 2
	}
	pio.PutU16BE(b[n:], m.WhitePointX)
	n += 2
	pio.PutU16BE(b[n:], m.WhitePointY)
	n += 2
	pio.PutU32BE(b[n:], m.MaxLuminance)
	n += 4
	pio.PutU32BE(b[n:], m.MinLuminance)
	n += 4
	pio.PutU32BE(b, uint32(n))
	return
}

func (m *MasteringDisplayColourVolume) Len() int {
	return HeaderSize + 24
}

func (m *MasteringDisplayColourVolume) Unmarshal(b []byte, offset int) (n int, err error) {
	m.AtomPos.setPos(offset, len(b))
	n = HeaderSize
	if len(b) < n+24 {
		err = parseErr("ColourVolume", offset+n, nil)
		return
	}
	for i := 0; i < 3; i++ {
		m.PrimariesX[i] = pio.U16BE(b[n:])
		n += 2
		m.PrimariesY[i] = pio.U16BE(b[n:])
		n += 2
	}
	m.WhitePointX = pio.U16BE(b[n:])
	n += 2
	m.WhitePointY = pio.U16BE(b[n:])
	n += 2
	m.MaxLuminance = pio.U32BE(b[n:])
	n += 4
	m.MinLuminance = pio.U32BE(b[n:])
	n += 4
	return
}

// UserDescription is the udes property: a user-facing name, description
// and tags in one language.
type UserDescription struct {
	Version     uint8
	Flags       uint32
	Lang        string // RFC 5646 tag
	Name        string
	Description string
	Tags        string
	AtomPos
}

func (*UserDescription) Tag() Tag {
	return UDES
}

func (*UserDescription) Children() []Atom {
	return nil
}

func (u *UserDescription) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(UDES))
	n = putFullBox(b, HeaderSize, u.Version, u.Flags)
	n += putCString(b[n:], u.Lang)
	n += putCString(b[n:], u.Name)
	n += putCString(b[n:], u.Description)
	n += putCString(b[n:], u.Tags)
	pio.PutU32BE(b, uint32(n))
	return
}

func (u *UserDescription) Len() int {
	return HeaderSize + fullBoxSize + len(u.Lang) + len(u.Name) + len(u.Description) + len(u.Tags) + 4
}

func (u *UserDescription) Unmarshal(b []byte, offset int) (n int, err error) {
	u.AtomPos.setPos(offset, len(b))
	if u.Version, u.Flags, n, err = parseFullBox(b, HeaderSize, offset); err != nil {
		return
	}
	u.Lang, n = getCString(b, n)
	u.Name, n = getCString(b, n)
	u.Description, n = getCString(b, n)
	u.Tags, n = getCString(b, n)
	return
}
