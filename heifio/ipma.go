package heifio

import "github.com/ugparu/goheif/utils/bits/pio"

// flagWideIndex selects 15-bit property indices instead of 7-bit ones.
const flagWideIndex = 0x1

// Association binds one 1-based ipco property index to an item, with the
// essential bit a reader must honor.
type Association struct {
	Essential bool
	Index     uint16
}

// AssociationEntry is the per-item association list of the ipma box.
type AssociationEntry struct {
	ItemID       uint32
	Associations []Association
}

// PropertyAssociation is the ipma full-box. Version selects 16- or 32-bit
// item ids; flags bit 0 selects the property index width.
type PropertyAssociation struct {
	Version uint8
	Flags   uint32

	Entries []AssociationEntry
	AtomPos
}

func (*PropertyAssociation) Tag() Tag {
	return IPMA
}

func (*PropertyAssociation) Children() []Atom {
	return nil
}

func (pa *PropertyAssociation) String() string {
	return "entries=" + itoa(uint32(len(pa.Entries)))
}

// AssociationsForItem returns the ordered association list of an item.
// Entries with a duplicated item id (which merging can produce) are
// concatenated in entry order.
func (pa *PropertyAssociation) AssociationsForItem(itemID uint32) (assocs []Association) {
	for i := range pa.Entries {
		if pa.Entries[i].ItemID == itemID {
			assocs = append(assocs, pa.Entries[i].Associations...)
		}
	}
	return
}

// AddProperty appends an association for the item, creating its entry if
// needed.
func (pa *PropertyAssociation) AddProperty(itemID uint32, assoc Association) {
	for i := range pa.Entries {
		if pa.Entries[i].ItemID == itemID {
			pa.Entries[i].Associations = append(pa.Entries[i].Associations, assoc)
			return
		}
	}
	pa.Entries = append(pa.Entries, AssociationEntry{
		ItemID:       itemID,
		Associations: []Association{assoc},
	})
}

// InsertEntriesFrom concatenates another ipma's entries, for combining
// partially read boxes. Duplicate item ids are kept as-is.
func (pa *PropertyAssociation) InsertEntriesFrom(other *PropertyAssociation) {
	pa.Entries = append(pa.Entries, other.Entries...)
}

func (pa *PropertyAssociation) DeriveVersion() {
	pa.Version = 0
	pa.Flags &^= flagWideIndex
	for i := range pa.Entries {
		if pa.Entries[i].ItemID > 0xffff {
			pa.Version = 1
		}
		for _, assoc := range pa.Entries[i].Associations {
			if assoc.Index > 0x7f {
				pa.Flags |= flagWideIndex
			}
		}
	}
}

func (pa *PropertyAssociation) idSize() int {
	if pa.Version == 0 {
		return 2
	}
	return 4
}

func (pa *PropertyAssociation) assocSize() int {
	if pa.Flags&flagWideIndex != 0 {
		return 2
	}
	return 1
}

func (pa *PropertyAssociation) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(IPMA))
	n = putFullBox(b, HeaderSize, pa.Version, pa.Flags)
	pio.PutU32BE(b[n:], uint32(len(pa.Entries)))
	n += 4
	for i := range pa.Entries {
		entry := &pa.Entries[i]
		if pa.Version == 0 {
			pio.PutU16BE(b[n:], uint16(entry.ItemID))
		} else {
			pio.PutU32BE(b[n:], entry.ItemID)
		}
		n += pa.idSize()
		pio.PutU8(b[n:], uint8(len(entry.Associations)))
		n++
		for _, assoc := range entry.Associations {
			if pa.Flags&flagWideIndex != 0 {
				v := assoc.Index & 0x7fff
				if assoc.Essential {
					v |= 0x8000
				}
				pio.PutU16BE(b[n:], v)
				n += 2
			} else {
				v := uint8(assoc.Index) & 0x7f
				if assoc.Essential {
					v |= 0x80
				}
				pio.PutU8(b[n:], v)
				n++
			}
		}
	}
	pio.PutU32BE(b, uint32(n))
	return
}

func (pa *PropertyAssociation) Len() (n int) {
	n = HeaderSize + fullBoxSize + 4
	for i := range pa.Entries {
		n += pa.idSize() + 1 + len(pa.Entries[i].Associations)*pa.assocSize()
	}
	return
}

func (pa *PropertyAssociation) Unmarshal(b []byte, offset int) (n int, err error) {
	pa.AtomPos.setPos(offset, len(b))
	if pa.Version, pa.Flags, n, err = parseFullBox(b, HeaderSize, offset); err != nil {
		return
	}
	if pa.Version > 1 {
		err = unsupportedVersionErr(IPMA, pa.Version)
		return
	}
	if len(b) < n+4 {
		err = parseErr("EntryCount", offset+n, nil)
		return
	}
	entryCount := pio.U32BE(b[n:])
	n += 4
	for i := uint32(0); i < entryCount; i++ {
		var entry AssociationEntry
		if len(b) < n+pa.idSize()+1 {
			err = parseErr("ItemID", offset+n, nil)
			return
		}
		if pa.Version == 0 {
			entry.ItemID = uint32(pio.U16BE(b[n:]))
		} else {
			entry.ItemID = pio.U32BE(b[n:])
		}
		n += pa.idSize()
		assocCount := int(pio.U8(b[n:]))
		n++
		if len(b) < n+assocCount*pa.assocSize() {
			err = parseErr("Associations", offset+n, nil)
			return
		}
		entry.Associations = make([]Association, 0, assocCount)
		for a := 0; a < assocCount; a++ {
			var assoc Association
			if pa.Flags&flagWideIndex != 0 {
				v := pio.U16BE(b[n:])
				assoc.Essential = v&0x8000 != 0
				assoc.Index = v & 0x7fff
				n += 2
			} else {
				v := pio.U8(b[n:])
				assoc.Essential = v&0x80 != 0
				assoc.Index = uint16(v & 0x7f)
				n++
			}
			entry.Associations = append(entry.Associations, assoc)
		}
		pa.Entries = append(pa.Entries, entry)
	}
	return
}
