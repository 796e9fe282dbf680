package heifio

import (
	"fmt"

	"github.com/ugparu/goheif/utils/bits/pio"
)

// VVCConf is the vvcC box. Present flags gate the chroma format, the bit
// depth and the profile-tier-level record; the PTL record itself is kept
// opaque, length-delimited.
type VVCConf struct {
	ConfigurationVersion uint8
	AvgFrameRateTimes256 uint16
	ConstantFrameRate    uint8 // 2 bits
	NumTemporalLayers    uint8 // 3 bits
	LengthSizeMinusOne   uint8 // 2 bits

	ChromaFormatPresent bool
	ChromaFormatIDC     uint8 // 2 bits
	BitDepthPresent     bool
	BitDepthMinus8      uint8 // 3 bits

	PTLPresent bool
	PTLRecord  []byte

	NALArrays []NALArray
	AtomPos
}

func NewVVCConf() *VVCConf {
	return &VVCConf{ConfigurationVersion: 1}
}

func (*VVCConf) Tag() Tag {
	return VVCC
}

func (*VVCConf) Children() []Atom {
	return nil
}

func (c *VVCConf) String() string {
	return fmt.Sprintf("arrays=%d", len(c.NALArrays))
}

func (c *VVCConf) LengthSize() int {
	return int(c.LengthSizeMinusOne&0x3) + 1
}

// AppendNALData adds an in-band parameter set to the array for its NAL
// unit type (bits 7..3 of the second NAL header byte).
func (c *VVCConf) AppendNALData(nal []byte) {
	if len(nal) < 2 {
		return
	}
	nalType := nal[1] >> 3
	for i := range c.NALArrays {
		if c.NALArrays[i].NALUnitType == nalType {
			c.NALArrays[i].Units = append(c.NALArrays[i].Units, nal)
			return
		}
	}
	c.NALArrays = append(c.NALArrays, NALArray{
		Completeness: true,
		NALUnitType:  nalType,
		Units:        [][]byte{nal},
	})
}

// Headers concatenates every stored parameter set with 4-byte length
// prefixes.
func (c *VVCConf) Headers() []byte {
	var dest []byte
	for i := range c.NALArrays {
		for _, unit := range c.NALArrays[i].Units {
			var l [4]byte
			pio.PutU32BE(l[:], uint32(len(unit)))
			dest = append(dest, l[:]...)
			dest = append(dest, unit...)
		}
	}
	return dest
}

func (c *VVCConf) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(VVCC))
	n = HeaderSize
	pio.PutU8(b[n:], c.ConfigurationVersion)
	n++
	pio.PutU16BE(b[n:], c.AvgFrameRateTimes256)
	n += 2
	pio.PutU8(b[n:], c.ConstantFrameRate<<6|(c.NumTemporalLayers&0x7)<<3|(c.LengthSizeMinusOne&0x3)<<1|b2u8(c.PTLPresent))
	n++
	var present uint8
	if c.ChromaFormatPresent {
		present |= 0x80 | (c.ChromaFormatIDC&0x3)<<5
	}
	if c.BitDepthPresent {
		present |= 0x10 | (c.BitDepthMinus8&0x7)<<1
	}
	pio.PutU8(b[n:], present)
	n++
	if c.PTLPresent {
		pio.PutU16BE(b[n:], uint16(len(c.PTLRecord)))
		n += 2
		copy(b[n:], c.PTLRecord)
		n += len(c.PTLRecord)
	}
	pio.PutU8(b[n:], uint8(len(c.NALArrays)))
	n++
	for i := range c.NALArrays {
		arr := &c.NALArrays[i]
		first := arr.NALUnitType & 0x1f
		if arr.Completeness {
			first |= 0x80
		}
		pio.PutU8(b[n:], first)
		n++
		pio.PutU16BE(b[n:], uint16(len(arr.Units)))
		n += 2
		for _, unit := range arr.Units {
			pio.PutU16BE(b[n:], uint16(len(unit)))
			n += 2
			copy(b[n:], unit)
			n += len(unit)
		}
	}
	pio.PutU32BE(b, uint32(n))
	return
}

func (c *VVCConf) Len() (n int) {
	n = HeaderSize + 5
	if c.PTLPresent {
		n += 2 + len(c.PTLRecord)
	}
	n++
	for i := range c.NALArrays {
		n += 3
		for _, unit := range c.NALArrays[i].Units {
			n += 2 + len(unit)
		}
	}
	return
}

func (c *VVCConf) Unmarshal(b []byte, offset int) (n int, err error) {
	c.AtomPos.setPos(offset, len(b))
	n = HeaderSize
	if len(b) < n+5 {
		err = parseErr("Configuration", offset+n, nil)
		return
	}
	c.ConfigurationVersion = pio.U8(b[n:])
	n++
	c.AvgFrameRateTimes256 = pio.U16BE(b[n:])
	n += 2
	v := pio.U8(b[n:])
	n++
	c.ConstantFrameRate = v >> 6
	c.NumTemporalLayers = v >> 3 & 0x7
	c.LengthSizeMinusOne = v >> 1 & 0x3
	c.PTLPresent = v&0x1 != 0
	v = pio.U8(b[n:])
	n++
	c.ChromaFormatPresent = v&0x80 != 0
	if c.ChromaFormatPresent {
		c.ChromaFormatIDC = v >> 5 & 0x3
	}
	c.BitDepthPresent = v&0x10 != 0
	if c.BitDepthPresent {
		c.BitDepthMinus8 = v >> 1 & 0x7
	}
	if c.PTLPresent {
		if len(b) < n+2 {
			err = parseErr("PTLRecord", offset+n, nil)
			return
		}
		ptlLen := int(pio.U16BE(b[n:]))
		n += 2
		if len(b) < n+ptlLen {
			err = parseErr("PTLRecord", offset+n, nil)
			return
		}
		c.PTLRecord = append([]byte(nil), b[n:n+ptlLen]...)
		n += ptlLen
	}
	if len(b) < n+1 {
		err = parseErr("NumArrays", offset+n, nil)
		return
	}
	numArrays := int(pio.U8(b[n:]))
	n++
	for i := 0; i < numArrays; i++ {
		if len(b) < n+3 {
			err = parseErr("NALArray", offset+n, nil)
			return
		}
		var arr NALArray
		first := pio.U8(b[n:])
		n++
		arr.Completeness = first&0x80 != 0
		arr.NALUnitType = first & 0x1f
		numNALUs := int(pio.U16BE(b[n:]))
		n += 2
		arr.Units = make([][]byte, 0, numNALUs)
		for u := 0; u < numNALUs; u++ {
			if len(b) < n+2 {
				err = parseErr("NALUnitLength", offset+n, nil)
				return
			}
			unitLen := int(pio.U16BE(b[n:]))
			n += 2
			if len(b) < n+unitLen {
				err = parseErr("NALUnit", offset+n, nil)
				return
			}
			arr.Units = append(arr.Units, append([]byte(nil), b[n:n+unitLen]...))
			n += unitLen
		}
		c.NALArrays = append(c.NALArrays, arr)
	}
	return
}
