package goheif

import (
	"bufio"
	"fmt"
	"io"

	"github.com/ugparu/goheif/heifio"
	"github.com/ugparu/goheif/utils/bits/pio"
	"github.com/ugparu/goheif/utils/logger"
)

// ImageOptions describes one image item handed to the muxer.
type ImageOptions struct {
	// Type is the item coding type; defaults to hvc1.
	Type heifio.Tag
	// Width and Height fill the ispe property.
	Width  uint32
	Height uint32
	// Config is the decoder configuration property (hvcC, av1C, vvcC).
	Config heifio.Atom
	// Properties are additional properties to associate, in order.
	Properties []heifio.Atom
	// Hidden excludes the item from presentation.
	Hidden bool
	// InIdat stores the payload inside the meta box (construction
	// method 1) instead of a trailing mdat.
	InIdat bool
	// Name is the optional item name.
	Name string
}

// essentialProperty reports whether a property type must be flagged
// essential: decoder configurations and transformative properties.
func essentialProperty(tag heifio.Tag) bool {
	switch tag {
	case heifio.HVCC, heifio.AV1C, heifio.VVCC, heifio.IROT, heifio.IMIR, heifio.CLAP, heifio.LSEL, heifio.A1OP:
		return true
	}
	return false
}

// Muxer assembles a HEIF file: ftyp and meta first, payload in a trailing
// mdat. Extent offsets that point into the mdat are reserved during the
// meta marshal and patched once the payload position is known.
type Muxer struct {
	w  io.Writer
	bw *bufio.Writer

	ftyp *heifio.FileType
	meta *heifio.Meta
	pitm *heifio.PrimaryItem
	iinf *heifio.ItemInfo
	iloc *heifio.ItemLocation
	ipco *heifio.PropertyContainer
	ipma *heifio.PropertyAssociation
	iref *heifio.ItemReference
	idat *heifio.ItemData

	nextID uint32
	wrote  bool
}

// NewMuxer builds the skeleton tree: heic major brand, pict handler, and
// the item machinery boxes in their usual order.
func NewMuxer(w io.Writer) *Muxer {
	mux := &Muxer{
		w:      w,
		bw:     bufio.NewWriterSize(w, pio.RecommendBufioSize),
		ftyp:   heifio.NewFileType(heifio.BrandHEIC, heifio.BrandMIF1, heifio.BrandHEIC),
		meta:   &heifio.Meta{},
		pitm:   &heifio.PrimaryItem{},
		iinf:   &heifio.ItemInfo{},
		iloc:   &heifio.ItemLocation{},
		ipco:   &heifio.PropertyContainer{},
		ipma:   &heifio.PropertyAssociation{},
		nextID: 1,
	}
	mux.meta.AppendChild(heifio.NewHandlerRefer(heifio.PICT, ""))
	mux.meta.AppendChild(mux.pitm)
	mux.meta.AppendChild(heifio.NewDataInformation())
	mux.meta.AppendChild(mux.iinf)
	mux.meta.AppendChild(mux.iloc)
	iprp := &heifio.ItemProperties{}
	iprp.AppendChild(mux.ipco)
	iprp.AppendChild(mux.ipma)
	mux.meta.AppendChild(iprp)
	return mux
}

// SetMinILocVersion pins a floor on the iloc version for byte-stable
// rewrites of existing files.
func (mux *Muxer) SetMinILocVersion(version uint8) {
	mux.iloc.MinVersion = version
}

// SetBrands replaces the ftyp contents.
func (mux *Muxer) SetBrands(major heifio.Tag, compatible ...heifio.Tag) {
	mux.ftyp.MajorBrand = major
	mux.ftyp.CompatibleBrands = compatible
}

func (mux *Muxer) itemReference() *heifio.ItemReference {
	if mux.iref == nil {
		mux.iref = &heifio.ItemReference{}
		mux.meta.AppendChild(mux.iref)
	}
	return mux.iref
}

func (mux *Muxer) itemData() *heifio.ItemData {
	if mux.idat == nil {
		mux.idat = &heifio.ItemData{}
		mux.meta.AppendChild(mux.idat)
	}
	return mux.idat
}

// addItem creates the infe entry and location for a new item and returns
// its id.
func (mux *Muxer) addItem(itemType heifio.Tag, name string, hidden bool, data []byte, inIdat bool) uint32 {
	id := mux.nextID
	mux.nextID++

	entry := &heifio.ItemInfoEntry{
		Version:  2,
		ItemID:   id,
		ItemType: itemType,
		ItemName: name,
	}
	entry.SetHidden(hidden)
	mux.iinf.AppendChild(entry)

	if inIdat {
		offset := mux.itemData().AppendData(data)
		mux.iloc.AppendExtent(id, 1, offset, uint64(len(data)))
	} else {
		mux.iloc.AppendData(id, data)
	}
	return id
}

// associate adds a property to ipco, reusing the entry when the same atom
// is already there (equal but distinct atoms are appended again), and
// binds it to the item.
func (mux *Muxer) associate(itemID uint32, prop heifio.Atom, essential bool) {
	index := mux.ipco.IndexOf(prop)
	if index == 0 {
		index = mux.ipco.AppendChild(prop)
	}
	mux.ipma.AddProperty(itemID, heifio.Association{Essential: essential, Index: index})
}

// AddImage adds an image item with its properties and queues the payload.
// The first non-hidden image becomes the primary item.
func (mux *Muxer) AddImage(data []byte, opt ImageOptions) (uint32, error) {
	if mux.wrote {
		return 0, fmt.Errorf("goheif: muxer already finalized")
	}
	itemType := opt.Type
	if itemType == 0 {
		itemType = heifio.HVC1
	}
	id := mux.addItem(itemType, opt.Name, opt.Hidden, data, opt.InIdat)

	if opt.Config != nil {
		mux.associate(id, opt.Config, essentialProperty(opt.Config.Tag()))
	}
	if opt.Width != 0 || opt.Height != 0 {
		mux.associate(id, &heifio.ImageSpatialExtents{Width: opt.Width, Height: opt.Height}, false)
	}
	for _, prop := range opt.Properties {
		mux.associate(id, prop, essentialProperty(prop.Tag()))
	}

	if mux.pitm.ItemID == 0 && !opt.Hidden {
		mux.pitm.ItemID = id
	}
	logger.Debugf(itemType, "added image item %d, %d bytes", id, len(data))
	return id, nil
}

// AddThumbnail adds a thumbnail image for masterID, linked with a thmb
// reference.
func (mux *Muxer) AddThumbnail(data []byte, masterID uint32, opt ImageOptions) (uint32, error) {
	id, err := mux.AddImage(data, opt)
	if err != nil {
		return 0, err
	}
	mux.itemReference().AddReference(id, heifio.THMB, masterID)
	return id, nil
}

// AddExif attaches an EXIF blob to an image item via a cdsc reference.
// The payload is prefixed with a zero TIFF header offset.
func (mux *Muxer) AddExif(masterID uint32, exif []byte) (uint32, error) {
	if mux.wrote {
		return 0, fmt.Errorf("goheif: muxer already finalized")
	}
	payload := make([]byte, 4+len(exif))
	copy(payload[4:], exif)
	id := mux.addItem(heifio.EXIF, "", false, payload, false)
	mux.itemReference().AddReference(id, heifio.CDSC, masterID)
	return id, nil
}

// AddReference adds an arbitrary typed reference edge.
func (mux *Muxer) AddReference(fromID uint32, refType heifio.Tag, toIDs ...uint32) {
	mux.itemReference().AddReference(fromID, refType, toIDs...)
}

// SetPrimary overrides the primary item choice.
func (mux *Muxer) SetPrimary(id uint32) {
	mux.pitm.ItemID = id
}

// pendingPayloads collects queued extent data in the exact order the iloc
// marshal reserves offset fields for it.
func (mux *Muxer) pendingPayloads() (payloads [][]byte) {
	for i := range mux.iloc.Items {
		for e := range mux.iloc.Items[i].Extents {
			if data := mux.iloc.Items[i].Extents[e].Data; data != nil {
				payloads = append(payloads, data)
			}
		}
	}
	return
}

// atomOffsetIn returns the byte offset of child within the marshaled
// parent, derived from the deterministic Len of the preceding siblings.
func atomOffsetIn(parent *heifio.Meta, child heifio.Atom) int {
	n := heifio.HeaderSize + 4 // meta is a full box
	for _, atom := range parent.Children() {
		if atom == child {
			return n
		}
		n += atom.Len()
	}
	return -1
}

// WriteTrailer derives versions and field widths, marshals ftyp and meta,
// emits the mdat payload, and patches the reserved iloc offset fields
// with the final absolute positions.
func (mux *Muxer) WriteTrailer() error {
	if mux.wrote {
		return fmt.Errorf("goheif: muxer already finalized")
	}
	mux.wrote = true

	payloads := mux.pendingPayloads()
	var payloadTotal uint64
	for _, p := range payloads {
		payloadTotal += uint64(len(p))
	}

	// Two derivation passes: the first sizes the tree, the second fixes
	// the offset width against the worst-case mdat end position.
	heifio.DeriveVersionRecursive(mux.meta)
	bound := uint64(mux.ftyp.Len()+mux.meta.Len()) + heifio.HeaderSize + largeSizeSlack + payloadTotal
	mux.iloc.SetWriteUpperBound(bound)
	heifio.DeriveVersionRecursive(mux.meta)

	buf := make([]byte, mux.ftyp.Len()+mux.meta.Len())
	n := mux.ftyp.Marshal(buf)
	mux.meta.Marshal(buf[n:])
	ilocPos := n + atomOffsetIn(mux.meta, mux.iloc)

	mdatHdr := heifio.HeaderSize
	if uint64(len(buf))+payloadTotal+heifio.HeaderSize > 0xffffffff {
		mdatHdr += largeSizeSlack
	}
	dataPos := uint64(len(buf) + mdatHdr)

	pending := mux.iloc.PendingOffsets()
	if len(pending) != len(payloads) {
		return fmt.Errorf("%w: %d reserved fields for %d payloads",
			heifio.ErrWriterOverflow, len(pending), len(payloads))
	}
	offset := dataPos
	for i, p := range pending {
		if err := mux.iloc.PatchOffset(buf[ilocPos:], p, offset); err != nil {
			return err
		}
		offset += uint64(len(payloads[i]))
	}

	if _, err := mux.bw.Write(buf); err != nil {
		return err
	}
	if len(payloads) > 0 {
		var hdr [16]byte
		if mdatHdr == heifio.HeaderSize {
			pio.PutU32BE(hdr[:], uint32(payloadTotal)+uint32(mdatHdr))
			pio.PutU32BE(hdr[4:], uint32(heifio.MDAT))
		} else {
			pio.PutU32BE(hdr[:], 1)
			pio.PutU32BE(hdr[4:], uint32(heifio.MDAT))
			pio.PutU64BE(hdr[8:], payloadTotal+uint64(mdatHdr))
		}
		if _, err := mux.bw.Write(hdr[:mdatHdr]); err != nil {
			return err
		}
		for _, p := range payloads {
			if _, err := mux.bw.Write(p); err != nil {
				return err
			}
		}
	}
	logger.Debugf(heifio.MDAT, "wrote %d metadata bytes, %d payload bytes", len(buf), payloadTotal)
	return mux.bw.Flush()
}

const largeSizeSlack = 8
