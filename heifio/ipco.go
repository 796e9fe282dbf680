package heifio

import "github.com/ugparu/goheif/utils/bits/pio"

// PropertyContainer is the ipco box: the ordered property table that ipma
// indexes into, 1-based.
type PropertyContainer struct {
	atoms []Atom
	AtomPos
}

func (*PropertyContainer) Tag() Tag {
	return IPCO
}

func (pc *PropertyContainer) Children() []Atom {
	return pc.atoms
}

// AppendChild adds a property and returns its 1-based index for use in
// ipma associations.
func (pc *PropertyContainer) AppendChild(atom Atom) uint16 {
	pc.atoms = append(pc.atoms, atom)
	return uint16(len(pc.atoms))
}

// Property returns the child at the 1-based index, or nil.
func (pc *PropertyContainer) Property(index uint16) Atom {
	if index == 0 || int(index) > len(pc.atoms) {
		return nil
	}
	return pc.atoms[index-1]
}

// IndexOf returns the 1-based index of a property, or 0 if it is not in
// the table.
func (pc *PropertyContainer) IndexOf(atom Atom) uint16 {
	for i, a := range pc.atoms {
		if a == atom {
			return uint16(i + 1)
		}
	}
	return 0
}

func (pc *PropertyContainer) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(IPCO))
	n = HeaderSize
	n += marshalAtoms(b[n:], pc.atoms)
	pio.PutU32BE(b, uint32(n))
	return
}

func (pc *PropertyContainer) Len() int {
	return HeaderSize + lenAtoms(pc.atoms)
}

func (pc *PropertyContainer) Unmarshal(b []byte, offset int) (n int, err error) {
	pc.AtomPos.setPos(offset, len(b))
	n = HeaderSize
	if pc.atoms, err = UnmarshalAtoms(b[n:], offset+n); err != nil {
		return
	}
	n = len(b)
	return
}
