package heifio

import (
	"fmt"

	"github.com/ugparu/goheif/utils/bits/pio"
)

// CleanAperture is the clap property: the crop window expressed as four
// rationals around the image center.
type CleanAperture struct {
	Width   Fraction
	Height  Fraction
	HOffset Fraction
	VOffset Fraction
	AtomPos
}

func NewCleanAperture(width, height, hOffset, vOffset Fraction) *CleanAperture {
	return &CleanAperture{Width: width, Height: height, HOffset: hOffset, VOffset: vOffset}
}

func (*CleanAperture) Tag() Tag {
	return CLAP
}

func (*CleanAperture) Children() []Atom {
	return nil
}

func (c *CleanAperture) String() string {
	return fmt.Sprintf("w=%v h=%v", c.Width, c.Height)
}

func (c *CleanAperture) valid() bool {
	return c.Width.Valid() && c.Height.Valid() && c.HOffset.Valid() && c.VOffset.Valid()
}

// centerX is (imageWidth-1)/2 + hOffset, the horizontal crop center.
func (c *CleanAperture) centerX(imageWidth uint32) Fraction {
	return NewFraction(int32(imageWidth)-1, 2).Add(c.HOffset)
}

func (c *CleanAperture) centerY(imageHeight uint32) Fraction {
	return NewFraction(int32(imageHeight)-1, 2).Add(c.VOffset)
}

// LeftRounded is the first column of the crop window.
func (c *CleanAperture) LeftRounded(imageWidth uint32) int32 {
	return c.centerX(imageWidth).Sub(c.Width.SubInt(1).DivInt(2)).RoundDown()
}

// RightRounded is the last column included in the crop window.
func (c *CleanAperture) RightRounded(imageWidth uint32) int32 {
	return c.centerX(imageWidth).Add(c.Width.SubInt(1).DivInt(2)).RoundUp()
}

// TopRounded is the first row of the crop window.
func (c *CleanAperture) TopRounded(imageHeight uint32) int32 {
	return c.centerY(imageHeight).Sub(c.Height.SubInt(1).DivInt(2)).RoundDown()
}

// BottomRounded is the last row included in the crop window.
func (c *CleanAperture) BottomRounded(imageHeight uint32) int32 {
	return c.centerY(imageHeight).Add(c.Height.SubInt(1).DivInt(2)).RoundUp()
}

func (c *CleanAperture) WidthRounded() int32 {
	return c.Width.Round()
}

func (c *CleanAperture) HeightRounded() int32 {
	return c.Height.Round()
}

// Window computes the rounded crop rectangle and rejects it unless it lies
// completely inside the image.
func (c *CleanAperture) Window(imageWidth, imageHeight uint32) (left, top, right, bottom int32, err error) {
	if !c.valid() {
		err = fmt.Errorf("%w: clap", ErrFractionInvalid)
		return
	}
	left = c.LeftRounded(imageWidth)
	right = c.RightRounded(imageWidth)
	top = c.TopRounded(imageHeight)
	bottom = c.BottomRounded(imageHeight)
	if left < 0 || top < 0 || left > right || top > bottom ||
		right >= int32(imageWidth) || bottom >= int32(imageHeight) {
		err = invalidFieldErr(CLAP, "crop window", uint64(uint32(right)))
	}
	return
}

func putFraction(b []byte, f Fraction) int {
	pio.PutI32BE(b, f.Num)
	pio.PutI32BE(b[4:], f.Den)
	return 8
}

func getFraction(b []byte) Fraction {
	return NewFraction(pio.I32BE(b), pio.I32BE(b[4:]))
}

func (c *CleanAperture) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(CLAP))
	n = HeaderSize
	n += putFraction(b[n:], c.Width)
	n += putFraction(b[n:], c.Height)
	n += putFraction(b[n:], c.HOffset)
	n += putFraction(b[n:], c.VOffset)
	pio.PutU32BE(b, uint32(n))
	return
}

func (c *CleanAperture) Len() int {
	return HeaderSize + 32
}

func (c *CleanAperture) Unmarshal(b []byte, offset int) (n int, err error) {
	c.AtomPos.setPos(offset, len(b))
	n = HeaderSize
	if len(b) < n+32 {
		err = parseErr("Aperture", offset+n, nil)
		return
	}
	c.Width = getFraction(b[n:])
	n += 8
	c.Height = getFraction(b[n:])
	n += 8
	c.HOffset = getFraction(b[n:])
	n += 8
	c.VOffset = getFraction(b[n:])
	n += 8
	return
}
