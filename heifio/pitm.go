package heifio

import "github.com/ugparu/goheif/utils/bits/pio"

// PrimaryItem declares which item a reader should present by default.
type PrimaryItem struct {
	Version uint8
	Flags   uint32
	ItemID  uint32
	AtomPos
}

func (*PrimaryItem) Tag() Tag {
	return PITM
}

func (p *PrimaryItem) DeriveVersion() {
	if p.ItemID <= 0xffff {
		p.Version = 0
	} else {
		p.Version = 1
	}
}

func (p *PrimaryItem) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(PITM))
	n = putFullBox(b, HeaderSize, p.Version, p.Flags)
	if p.Version == 0 {
		pio.PutU16BE(b[n:], uint16(p.ItemID))
		n += 2
	} else {
		pio.PutU32BE(b[n:], p.ItemID)
		n += 4
	}
	pio.PutU32BE(b, uint32(n))
	return
}

func (p *PrimaryItem) Len() int {
	if p.Version == 0 {
		return HeaderSize + fullBoxSize + 2
	}
	return HeaderSize + fullBoxSize + 4
}

func (p *PrimaryItem) Unmarshal(b []byte, offset int) (n int, err error) {
	p.AtomPos.setPos(offset, len(b))
	if p.Version, p.Flags, n, err = parseFullBox(b, HeaderSize, offset); err != nil {
		return
	}
	switch p.Version {
	case 0:
		if len(b) < n+2 {
			err = parseErr("ItemID", offset+n, nil)
			return
		}
		p.ItemID = uint32(pio.U16BE(b[n:]))
		n += 2
	case 1:
		if len(b) < n+4 {
			err = parseErr("ItemID", offset+n, nil)
			return
		}
		p.ItemID = pio.U32BE(b[n:])
		n += 4
	default:
		err = unsupportedVersionErr(PITM, p.Version)
		return
	}
	return
}

func (*PrimaryItem) Children() []Atom {
	return nil
}

func (p *PrimaryItem) String() string {
	return "item=" + itoa(p.ItemID)
}
