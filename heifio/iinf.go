package heifio

import "github.com/ugparu/goheif/utils/bits/pio"

// ItemInfo is the iinf full-box: an entry count followed by infe children.
// Entries are reached through the generic child list.
type ItemInfo struct {
	Version uint8
	Flags   uint32

	atoms []Atom
	AtomPos
}

func (*ItemInfo) Tag() Tag {
	return IINF
}

func (ii *ItemInfo) Children() []Atom {
	return ii.atoms
}

func (ii *ItemInfo) AppendChild(atom Atom) {
	ii.atoms = append(ii.atoms, atom)
}

// Entries returns the typed infe children in wire order.
func (ii *ItemInfo) Entries() (entries []*ItemInfoEntry) {
	for _, atom := range ii.atoms {
		if e, ok := atom.(*ItemInfoEntry); ok {
			entries = append(entries, e)
		}
	}
	return
}

// EntryByID returns the infe child declaring the given item.
func (ii *ItemInfo) EntryByID(itemID uint32) *ItemInfoEntry {
	for _, atom := range ii.atoms {
		if e, ok := atom.(*ItemInfoEntry); ok && e.ItemID == itemID {
			return e
		}
	}
	return nil
}

func (ii *ItemInfo) DeriveVersion() {
	if len(ii.atoms) <= 0xffff {
		ii.Version = 0
	} else {
		ii.Version = 1
	}
}

func (ii *ItemInfo) countSize() int {
	if ii.Version == 0 {
		return 2
	}
	return 4
}

func (ii *ItemInfo) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(IINF))
	n = putFullBox(b, HeaderSize, ii.Version, ii.Flags)
	if ii.Version == 0 {
		pio.PutU16BE(b[n:], uint16(len(ii.atoms)))
	} else {
		pio.PutU32BE(b[n:], uint32(len(ii.atoms)))
	}
	n += ii.countSize()
	n += marshalAtoms(b[n:], ii.atoms)
	pio.PutU32BE(b, uint32(n))
	return
}

func (ii *ItemInfo) Len() int {
	return HeaderSize + fullBoxSize + ii.countSize() + lenAtoms(ii.atoms)
}

func (ii *ItemInfo) Unmarshal(b []byte, offset int) (n int, err error) {
	ii.AtomPos.setPos(offset, len(b))
	if ii.Version, ii.Flags, n, err = parseFullBox(b, HeaderSize, offset); err != nil {
		return
	}
	if ii.Version > 1 {
		err = unsupportedVersionErr(IINF, ii.Version)
		return
	}
	if len(b) < n+ii.countSize() {
		err = parseErr("EntryCount", offset+n, nil)
		return
	}
	n += ii.countSize()
	if ii.atoms, err = UnmarshalAtoms(b[n:], offset+n); err != nil {
		return
	}
	n = len(b)
	return
}

func (ii *ItemInfo) String() string {
	return "entries=" + itoa(uint32(len(ii.atoms)))
}
