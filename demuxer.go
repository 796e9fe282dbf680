package goheif

import (
	"fmt"
	"io"

	"github.com/ugparu/goheif/heifio"
	"github.com/ugparu/goheif/utils/logger"
)

// maxItemSize caps a single item's declared payload, as a sanity bound
// against corrupted extent lengths.
const maxItemSize = 200 << 20

// recognizedProperties is the set of property codes this reader can
// interpret. An essential association to anything outside this set makes
// the item unpresentable.
var recognizedProperties = map[heifio.Tag]bool{
	heifio.ISPE: true,
	heifio.PASP: true,
	heifio.PIXI: true,
	heifio.IROT: true,
	heifio.IMIR: true,
	heifio.AUXC: true,
	heifio.CLAP: true,
	heifio.LSEL: true,
	heifio.A1OP: true,
	heifio.A1LX: true,
	heifio.CLLI: true,
	heifio.MDCV: true,
	heifio.HVCC: true,
	heifio.AV1C: true,
	heifio.VVCC: true,
	heifio.COLR: true,
	heifio.UDES: true,
}

// Demuxer reads the metadata tree of a HEIF stream and resolves item
// payloads on demand. Not safe for concurrent use: item reads seek the
// underlying stream.
type Demuxer struct {
	r     io.ReadSeeker
	atoms []heifio.Atom
	ftyp  *heifio.FileType
	meta  *heifio.Meta
}

func NewDemuxer(r io.ReadSeeker) *Demuxer {
	return &Demuxer{r: r}
}

// ReadHeader scans the top-level boxes and locates ftyp and meta. The
// mdat payload stays in the stream.
func (d *Demuxer) ReadHeader() error {
	if _, err := d.r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	atoms, err := heifio.ReadFileAtoms(d.r)
	if err != nil {
		return err
	}
	d.atoms = atoms
	for _, atom := range atoms {
		switch a := atom.(type) {
		case *heifio.FileType:
			if d.ftyp == nil {
				d.ftyp = a
			}
		case *heifio.Meta:
			if d.meta == nil {
				d.meta = a
			}
		}
	}
	if d.ftyp == nil {
		return ErrNoFileType
	}
	if d.meta == nil {
		return ErrNoMeta
	}
	logger.Debugf(heifio.META, "header read, %d top-level boxes", len(atoms))
	return nil
}

func (d *Demuxer) FileType() *heifio.FileType {
	return d.ftyp
}

func (d *Demuxer) Meta() *heifio.Meta {
	return d.meta
}

// Atoms returns the parsed top-level boxes.
func (d *Demuxer) Atoms() []heifio.Atom {
	return d.atoms
}

// Item assembles the view of one item: info entry, location, properties
// in association order, and the essential-but-unknown property set.
func (d *Demuxer) Item(id uint32) (*Item, error) {
	if d.meta == nil || d.meta.ItemInfo == nil {
		return nil, ErrNoMeta
	}
	info := d.meta.ItemInfo.EntryByID(id)
	if info == nil {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownItem, id)
	}
	it := &Item{d: d, ID: id, Info: info}
	if d.meta.ItemLocation != nil {
		it.Location = d.meta.ItemLocation.Item(id)
	}
	if iprp := d.meta.ItemProperties; iprp != nil {
		props, err := iprp.PropertiesForItem(id)
		if err != nil {
			return nil, err
		}
		it.Properties = props
		for _, ipma := range iprp.Associations {
			for _, assoc := range ipma.AssociationsForItem(id) {
				if !assoc.Essential {
					continue
				}
				prop := iprp.Container.Property(assoc.Index)
				if prop == nil {
					continue
				}
				if _, unknown := prop.(*heifio.Dummy); unknown || !recognizedProperties[prop.Tag()] {
					it.unknownEssential = append(it.unknownEssential, prop.Tag())
				}
			}
		}
	}
	return it, nil
}

// Items returns every declared item.
func (d *Demuxer) Items() ([]*Item, error) {
	if d.meta == nil || d.meta.ItemInfo == nil {
		return nil, ErrNoMeta
	}
	entries := d.meta.ItemInfo.Entries()
	items := make([]*Item, 0, len(entries))
	for _, entry := range entries {
		it, err := d.Item(entry.ItemID)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

// PrimaryItem returns the item declared by pitm.
func (d *Demuxer) PrimaryItem() (*Item, error) {
	if d.meta == nil || d.meta.Primary == nil {
		return nil, ErrNoPrimaryItem
	}
	return d.Item(d.meta.Primary.ItemID)
}

// Thumbnails returns the items carrying a thmb reference to masterID.
func (d *Demuxer) Thumbnails(masterID uint32) ([]*Item, error) {
	items, err := d.Items()
	if err != nil {
		return nil, err
	}
	var thumbs []*Item
	for _, it := range items {
		for _, to := range it.Reference(heifio.THMB) {
			if to == masterID {
				thumbs = append(thumbs, it)
				break
			}
		}
	}
	return thumbs, nil
}

// ItemData resolves and concatenates the item's extents. An item with an
// essential property this reader does not recognize is refused.
func (d *Demuxer) ItemData(it *Item) ([]byte, error) {
	if len(it.unknownEssential) > 0 {
		return nil, fmt.Errorf("%w: item %d, property %v",
			ErrUnknownEssentialProperty, it.ID, it.unknownEssential[0])
	}
	return d.readItemData(it, map[uint32]bool{it.ID: true})
}

func (d *Demuxer) readItemData(it *Item, visited map[uint32]bool) ([]byte, error) {
	loc := it.Location
	if loc == nil {
		return nil, fmt.Errorf("%w: item %d", ErrNoLocation, it.ID)
	}
	var total uint64
	for _, ext := range loc.Extents {
		total += ext.Length
		if total > maxItemSize {
			return nil, fmt.Errorf("%w: item %d declares %d bytes", ErrExtentTooLarge, it.ID, total)
		}
	}
	dest := make([]byte, 0, total)
	for i := range loc.Extents {
		ext := &loc.Extents[i]
		var part []byte
		var err error
		switch loc.ConstructionMethod {
		case 0:
			part, err = d.readFileExtent(loc.BaseOffset+ext.Offset, ext.Length)
		case 1:
			part, err = d.readIdatExtent(ext.Offset, ext.Length)
		case 2:
			part, err = d.readItemExtent(it, ext, visited)
		default:
			err = fmt.Errorf("%w: construction method %d", heifio.ErrInvalidField, loc.ConstructionMethod)
		}
		if err != nil {
			return nil, err
		}
		dest = append(dest, part...)
	}
	return dest, nil
}

func (d *Demuxer) readFileExtent(offset, length uint64) ([]byte, error) {
	end, err := d.r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if offset+length < offset || offset+length > uint64(end) {
		return nil, fmt.Errorf("%w: [%d,%d) beyond stream end %d",
			heifio.ErrOffsetOutOfRange, offset, offset+length, end)
	}
	if _, err = d.r.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	if _, err = io.ReadFull(d.r, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", heifio.ErrOffsetOutOfRange, err)
	}
	return buf, nil
}

func (d *Demuxer) readIdatExtent(offset, length uint64) ([]byte, error) {
	if d.meta.ItemData == nil {
		return nil, heifio.ErrIdatMissing
	}
	return d.meta.ItemData.ReadData(offset, length)
}

// readItemExtent resolves construction method 2: the extent index selects
// an iloc-typed reference of this item, and offset/length slice the
// referenced item's reconstructed payload.
func (d *Demuxer) readItemExtent(it *Item, ext *heifio.Extent, visited map[uint32]bool) ([]byte, error) {
	if d.meta.ItemReference == nil {
		return nil, fmt.Errorf("%w: item %d has no iloc references", ErrNoLocation, it.ID)
	}
	refs := d.meta.ItemReference.GetReferences(it.ID, heifio.ILOC)
	index := ext.Index
	if index == 0 {
		index = 1
	}
	if index > uint64(len(refs)) {
		return nil, fmt.Errorf("%w: extent index %d of %d references",
			heifio.ErrOffsetOutOfRange, index, len(refs))
	}
	targetID := refs[index-1]
	if visited[targetID] {
		return nil, fmt.Errorf("%w: item %d", heifio.ErrCyclicReference, targetID)
	}
	visited[targetID] = true
	target, err := d.Item(targetID)
	if err != nil {
		return nil, err
	}
	data, err := d.readItemData(target, visited)
	if err != nil {
		return nil, err
	}
	if ext.Offset+ext.Length < ext.Offset || ext.Offset+ext.Length > uint64(len(data)) {
		return nil, fmt.Errorf("%w: [%d,%d) of %d referenced bytes",
			heifio.ErrOffsetOutOfRange, ext.Offset, ext.Offset+ext.Length, len(data))
	}
	return data[ext.Offset : ext.Offset+ext.Length], nil
}

// ItemCodedData returns the item payload with the codec parameter sets
// from its decoder configuration property prepended.
func (d *Demuxer) ItemCodedData(it *Item) ([]byte, error) {
	data, err := d.ItemData(it)
	if err != nil {
		return nil, err
	}
	var headers []byte
	if conf := it.HVCConf(); conf != nil {
		headers = conf.Headers()
	} else if conf := it.AV1Conf(); conf != nil {
		headers = conf.Headers()
	} else if conf := it.VVCConf(); conf != nil {
		headers = conf.Headers()
	}
	if len(headers) == 0 {
		return data, nil
	}
	return append(headers, data...), nil
}

// Exif returns the raw EXIF blob, past the TIFF header offset prefix of
// the Exif item payload.
func (d *Demuxer) Exif() ([]byte, error) {
	if d.meta == nil || d.meta.ItemInfo == nil {
		return nil, ErrNoMeta
	}
	for _, entry := range d.meta.ItemInfo.Entries() {
		if entry.ItemType != heifio.EXIF {
			continue
		}
		it, err := d.Item(entry.ItemID)
		if err != nil {
			return nil, err
		}
		data, err := d.ItemData(it)
		if err != nil {
			return nil, err
		}
		if len(data) < 4 {
			return nil, fmt.Errorf("%w: exif item too short", heifio.ErrOffsetOutOfRange)
		}
		skip := 4 + uint64(uint32(data[0])<<24|uint32(data[1])<<16|uint32(data[2])<<8|uint32(data[3]))
		if skip > uint64(len(data)) {
			return nil, fmt.Errorf("%w: exif header offset %d", heifio.ErrOffsetOutOfRange, skip)
		}
		return data[skip:], nil
	}
	return nil, ErrNoEXIF
}
