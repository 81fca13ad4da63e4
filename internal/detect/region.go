// Package detect runs Haar cascade face and eye detection over grayscale frames.
package detect

import (
	"image"
)

// Kind tags what a region outlines.
type Kind int

const (
	KindFace Kind = iota
	KindEye
)

func (k Kind) String() string {
	switch k {
	case KindFace:
		return "face"
	case KindEye:
		return "eye"
	default:
		return "unknown"
	}
}

// Region is a detection rectangle in full-frame coordinates.
type Region struct {
	Kind Kind
	Rect image.Rectangle
}

func tag(kind Kind, rects []image.Rectangle, offset image.Point) []Region {
	out := make([]Region, 0, len(rects))
	for _, r := range rects {
		out = append(out, Region{Kind: kind, Rect: r.Add(offset)})
	}
	return out
}
