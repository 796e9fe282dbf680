package heifio

import "github.com/ugparu/goheif/utils/bits/pio"

// ItemProperties is the iprp container: exactly one ipco property table
// followed by one or more ipma association boxes.
type ItemProperties struct {
	Container    *PropertyContainer
	Associations []*PropertyAssociation

	atoms []Atom
	AtomPos
}

func (*ItemProperties) Tag() Tag {
	return IPRP
}

func (ip *ItemProperties) Children() []Atom {
	return ip.atoms
}

func (ip *ItemProperties) AppendChild(atom Atom) {
	ip.atoms = append(ip.atoms, atom)
	switch a := atom.(type) {
	case *PropertyContainer:
		if ip.Container == nil {
			ip.Container = a
		}
	case *PropertyAssociation:
		ip.Associations = append(ip.Associations, a)
	}
}

func (ip *ItemProperties) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(IPRP))
	n = HeaderSize
	n += marshalAtoms(b[n:], ip.atoms)
	pio.PutU32BE(b, uint32(n))
	return
}

func (ip *ItemProperties) Len() int {
	return HeaderSize + lenAtoms(ip.atoms)
}

func (ip *ItemProperties) Unmarshal(b []byte, offset int) (n int, err error) {
	ip.AtomPos.setPos(offset, len(b))
	n = HeaderSize
	var atoms []Atom
	if atoms, err = UnmarshalAtoms(b[n:], offset+n); err != nil {
		return
	}
	for _, atom := range atoms {
		if _, ok := atom.(*PropertyContainer); ok && ip.Container != nil {
			err = invalidChildErr(ErrDuplicateChild, IPRP, IPCO)
			return
		}
		ip.AppendChild(atom)
	}
	if ip.Container == nil {
		err = invalidChildErr(ErrMissingRequiredChild, IPRP, IPCO)
		return
	}
	n = len(b)
	return
}

// PropertiesForItem resolves the item's associations, in association
// order, into the ipco children they index.
func (ip *ItemProperties) PropertiesForItem(itemID uint32) ([]Atom, error) {
	if ip.Container == nil {
		return nil, invalidChildErr(ErrMissingRequiredChild, IPRP, IPCO)
	}
	var props []Atom
	for _, ipma := range ip.Associations {
		for _, assoc := range ipma.AssociationsForItem(itemID) {
			if assoc.Index == 0 {
				continue
			}
			prop := ip.Container.Property(assoc.Index)
			if prop == nil {
				return nil, invalidFieldErr(IPMA, "property index", uint64(assoc.Index))
			}
			props = append(props, prop)
		}
	}
	return props, nil
}

// IsPropertyEssential reports whether the 1-based ipco index is marked
// essential for the item in any association box.
func (ip *ItemProperties) IsPropertyEssential(itemID uint32, propertyIndex uint16) bool {
	for _, ipma := range ip.Associations {
		for _, assoc := range ipma.AssociationsForItem(itemID) {
			if assoc.Index == propertyIndex && assoc.Essential {
				return true
			}
		}
	}
	return false
}
