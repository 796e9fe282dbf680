package heifio

import (
	"fmt"

	"github.com/ugparu/goheif/utils/bits/pio"
)

// ItemData is the idat box: payload stored inside the metadata tree,
// addressed by iloc construction method 1.
type ItemData struct {
	Data []byte
	AtomPos
}

func (*ItemData) Tag() Tag {
	return IDAT
}

func (*ItemData) Children() []Atom {
	return nil
}

func (d *ItemData) String() string {
	return fmt.Sprintf("bytes=%d", len(d.Data))
}

// ReadData returns the slice [start, start+length) of the idat payload.
func (d *ItemData) ReadData(start, length uint64) ([]byte, error) {
	if start+length < start || start+length > uint64(len(d.Data)) {
		return nil, fmt.Errorf("%w: idat [%d,%d) of %d", ErrOffsetOutOfRange, start, start+length, len(d.Data))
	}
	return d.Data[start : start+length], nil
}

// AppendData appends payload and returns its starting offset within the
// idat, for recording in an iloc extent.
func (d *ItemData) AppendData(data []byte) uint64 {
	pos := uint64(len(d.Data))
	d.Data = append(d.Data, data...)
	return pos
}

func (d *ItemData) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(IDAT))
	n = HeaderSize
	copy(b[n:], d.Data)
	n += len(d.Data)
	pio.PutU32BE(b, uint32(n))
	return
}

func (d *ItemData) Len() int {
	return HeaderSize + len(d.Data)
}

func (d *ItemData) Unmarshal(b []byte, offset int) (n int, err error) {
	d.AtomPos.setPos(offset, len(b))
	n = HeaderSize
	d.Data = append([]byte(nil), b[n:]...)
	n = len(b)
	return
}
