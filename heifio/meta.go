package heifio

import "github.com/ugparu/goheif/utils/bits/pio"

// Meta is the full-box container holding the still-image metadata tree.
// Children are kept in wire order; the typed fields point at the first
// child of each kind.
type Meta struct {
	Version uint8
	Flags   uint32

	Handler         *HandlerRefer
	Primary         *PrimaryItem
	ItemInfo        *ItemInfo
	ItemLocation    *ItemLocation
	ItemProperties  *ItemProperties
	ItemReference   *ItemReference
	ItemData        *ItemData
	DataInformation *DataInformation
	Groups          *GroupsList

	atoms []Atom
	AtomPos
}

func (*Meta) Tag() Tag {
	return META
}

func (m *Meta) Children() []Atom {
	return m.atoms
}

// AppendChild adds an atom in tree-insertion order and wires up the typed
// shortcut for it.
func (m *Meta) AppendChild(atom Atom) {
	m.atoms = append(m.atoms, atom)
	m.noteChild(atom)
}

func (m *Meta) noteChild(atom Atom) {
	switch a := atom.(type) {
	case *HandlerRefer:
		if m.Handler == nil {
			m.Handler = a
		}
	case *PrimaryItem:
		if m.Primary == nil {
			m.Primary = a
		}
	case *ItemInfo:
		if m.ItemInfo == nil {
			m.ItemInfo = a
		}
	case *ItemLocation:
		if m.ItemLocation == nil {
			m.ItemLocation = a
		}
	case *ItemProperties:
		if m.ItemProperties == nil {
			m.ItemProperties = a
		}
	case *ItemReference:
		if m.ItemReference == nil {
			m.ItemReference = a
		}
	case *ItemData:
		if m.ItemData == nil {
			m.ItemData = a
		}
	case *DataInformation:
		if m.DataInformation == nil {
			m.DataInformation = a
		}
	case *GroupsList:
		if m.Groups == nil {
			m.Groups = a
		}
	}
}

func (m *Meta) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(META))
	n = putFullBox(b, HeaderSize, m.Version, m.Flags)
	n += marshalAtoms(b[n:], m.atoms)
	pio.PutU32BE(b, uint32(n))
	return
}

func (m *Meta) Len() int {
	return HeaderSize + fullBoxSize + lenAtoms(m.atoms)
}

func (m *Meta) Unmarshal(b []byte, offset int) (n int, err error) {
	m.AtomPos.setPos(offset, len(b))
	if m.Version, m.Flags, n, err = parseFullBox(b, HeaderSize, offset); err != nil {
		return
	}
	if m.atoms, err = UnmarshalAtoms(b[n:], offset+n); err != nil {
		return
	}
	for _, atom := range m.atoms {
		m.noteChild(atom)
	}
	n = len(b)
	return
}
