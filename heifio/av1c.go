package heifio

import (
	"fmt"

	"github.com/ugparu/goheif/utils/bits/pio"
)

// AV1Conf is the av1C box: the AV1CodecConfigurationRecord, a packed
// 4-byte prefix followed by the configuration OBUs.
type AV1Conf struct {
	Version                          uint8 // 7 bits, marker bit above it
	SeqProfile                       uint8 // 3 bits
	SeqLevelIdx0                     uint8 // 5 bits
	SeqTier0                         uint8 // 1 bit
	HighBitdepth                     bool
	TwelveBit                        bool
	Monochrome                       bool
	ChromaSubsamplingX               uint8 // 1 bit
	ChromaSubsamplingY               uint8 // 1 bit
	ChromaSamplePosition             uint8 // 2 bits
	InitialPresentationDelayPresent  bool
	InitialPresentationDelayMinusOne uint8 // 4 bits

	ConfigOBUs []byte
	AtomPos
}

const av1cFixedSize = 4

func NewAV1Conf() *AV1Conf {
	return &AV1Conf{Version: 1}
}

func (*AV1Conf) Tag() Tag {
	return AV1C
}

func (*AV1Conf) Children() []Atom {
	return nil
}

func (c *AV1Conf) String() string {
	return fmt.Sprintf("profile=%d level=%d", c.SeqProfile, c.SeqLevelIdx0)
}

// Headers returns the configuration OBUs to prepend to each sample.
func (c *AV1Conf) Headers() []byte {
	return c.ConfigOBUs
}

func b2u8(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}

func (c *AV1Conf) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(AV1C))
	n = HeaderSize
	pio.PutU8(b[n:], 0x80|c.Version&0x7f)
	n++
	pio.PutU8(b[n:], c.SeqProfile<<5|c.SeqLevelIdx0&0x1f)
	n++
	pio.PutU8(b[n:], c.SeqTier0<<7|
		b2u8(c.HighBitdepth)<<6|
		b2u8(c.TwelveBit)<<5|
		b2u8(c.Monochrome)<<4|
		(c.ChromaSubsamplingX&0x1)<<3|
		(c.ChromaSubsamplingY&0x1)<<2|
		c.ChromaSamplePosition&0x3)
	n++
	pio.PutU8(b[n:], b2u8(c.InitialPresentationDelayPresent)<<4|c.InitialPresentationDelayMinusOne&0xf)
	n++
	copy(b[n:], c.ConfigOBUs)
	n += len(c.ConfigOBUs)
	pio.PutU32BE(b, uint32(n))
	return
}

func (c *AV1Conf) Len() int {
	return HeaderSize + av1cFixedSize + len(c.ConfigOBUs)
}

func (c *AV1Conf) Unmarshal(b []byte, offset int) (n int, err error) {
	c.AtomPos.setPos(offset, len(b))
	n = HeaderSize
	if len(b) < n+av1cFixedSize {
		err = parseErr("Configuration", offset+n, nil)
		return
	}
	v := pio.U8(b[n:])
	n++
	if v&0x80 == 0 {
		err = invalidFieldErr(AV1C, "marker", uint64(v))
		return
	}
	c.Version = v & 0x7f
	v = pio.U8(b[n:])
	n++
	c.SeqProfile = v >> 5
	c.SeqLevelIdx0 = v & 0x1f
	v = pio.U8(b[n:])
	n++
	c.SeqTier0 = v >> 7
	c.HighBitdepth = v&0x40 != 0
	c.TwelveBit = v&0x20 != 0
	c.Monochrome = v&0x10 != 0
	c.ChromaSubsamplingX = v >> 3 & 0x1
	c.ChromaSubsamplingY = v >> 2 & 0x1
	c.ChromaSamplePosition = v & 0x3
	v = pio.U8(b[n:])
	n++
	c.InitialPresentationDelayPresent = v&0x10 != 0
	c.InitialPresentationDelayMinusOne = v & 0xf
	c.ConfigOBUs = append([]byte(nil), b[n:]...)
	n = len(b)
	return
}

// AV1OperatingPoint is the a1op property.
type AV1OperatingPoint struct {
	OpIndex uint8
	AtomPos
}

func (*AV1OperatingPoint) Tag() Tag {
	return A1OP
}

func (*AV1OperatingPoint) Children() []Atom {
	return nil
}

func (a *AV1OperatingPoint) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(A1OP))
	n = HeaderSize
	pio.PutU8(b[n:], a.OpIndex)
	n++
	pio.PutU32BE(b, uint32(n))
	return
}

func (a *AV1OperatingPoint) Len() int {
	return HeaderSize + 1
}

func (a *AV1OperatingPoint) Unmarshal(b []byte, offset int) (n int, err error) {
	a.AtomPos.setPos(offset, len(b))
	n = HeaderSize
	if len(b) < n+1 {
		err = parseErr("OpIndex", offset+n, nil)
		return
	}
	a.OpIndex = pio.U8(b[n:])
	n++
	return
}

// AV1LayeredImageIndexing is the a1lx property: the byte sizes of up to
// three spatial layers. The low bit of the lead byte selects 16- or
// 32-bit size fields.
type AV1LayeredImageIndexing struct {
	LayerSize [3]uint32
	Large     bool
	AtomPos
}

func (*AV1LayeredImageIndexing) Tag() Tag {
	return A1LX
}

func (*AV1LayeredImageIndexing) Children() []Atom {
	return nil
}

func (a *AV1LayeredImageIndexing) largeSize() bool {
	if a.Large {
		return true
	}
	for _, s := range a.LayerSize {
		if s > 0xffff {
			return true
		}
	}
	return false
}

func (a *AV1LayeredImageIndexing) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(A1LX))
	n = HeaderSize
	large := a.largeSize()
	pio.PutU8(b[n:], b2u8(large))
	n++
	for _, s := range a.LayerSize {
		if large {
			pio.PutU32BE(b[n:], s)
			n += 4
		} else {
			pio.PutU16BE(b[n:], uint16(s))
			n += 2
		}
	}
	pio.PutU32BE(b, uint32(n))
	return
}

func (a *AV1LayeredImageIndexing) Len() int {
	if a.largeSize() {
		return HeaderSize + 1 + 12
	}
	return HeaderSize + 1 + 6
}

func (a *AV1LayeredImageIndexing) Unmarshal(b []byte, offset int) (n int, err error) {
	a.AtomPos.setPos(offset, len(b))
	n = HeaderSize
	if len(b) < n+1 {
		err = parseErr("LayerSizeFlag", offset+n, nil)
		return
	}
	large := pio.U8(b[n:])&0x1 != 0
	a.Large = large
	n++
	fieldSize := 2
	if large {
		fieldSize = 4
	}
	if len(b) < n+3*fieldSize {
		err = parseErr("LayerSize", offset+n, nil)
		return
	}
	for i := range a.LayerSize {
		if large {
			a.LayerSize[i] = pio.U32BE(b[n:])
		} else {
			a.LayerSize[i] = uint32(pio.U16BE(b[n:]))
		}
		n += fieldSize
	}
	return
}
