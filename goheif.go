// Package goheif reads and writes HEIF still-image containers. It resolves
// items, their properties and payload locations on top of the box layer in
// heifio; image bitstream decoding is out of scope.
package goheif

import "errors"

var (
	// ErrNoMeta is returned when the stream has no meta box.
	ErrNoMeta = errors.New("goheif: no meta box")
	// ErrNoFileType is returned when the stream has no top-level ftyp box.
	ErrNoFileType = errors.New("goheif: no ftyp box")
	// ErrUnknownItem is returned for item ids not declared in iinf.
	ErrUnknownItem = errors.New("goheif: unknown item")
	// ErrNoPrimaryItem is returned when the file lacks a pitm box.
	ErrNoPrimaryItem = errors.New("goheif: no primary item")
	// ErrUnknownEssentialProperty refuses presentation of an item that has
	// an essential property this reader does not understand.
	ErrUnknownEssentialProperty = errors.New("goheif: unknown essential property")
	// ErrNoLocation is returned for items without an iloc entry.
	ErrNoLocation = errors.New("goheif: item has no location")
	// ErrExtentTooLarge guards against absurd declared extent lengths.
	ErrExtentTooLarge = errors.New("goheif: extent length exceeds limit")
	// ErrNoEXIF is returned when the file carries no Exif item.
	ErrNoEXIF = errors.New("goheif: no EXIF found")
)
