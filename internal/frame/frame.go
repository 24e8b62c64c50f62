// Package frame defines the unit of video data passed between decoders,
// streams and the compositor.
package frame

import (
	"image"
	"image/color"
	"image/draw"
)

// Kind tags a Frame as real decoded video or a synthetic placeholder.
type Kind uint8

// Frame kinds.
const (
	KindInvalid Kind = iota
	KindDecoded
	KindPlaceholder
)

func (k Kind) String() string {
	switch k {
	case KindDecoded:
		return "decoded"
	case KindPlaceholder:
		return "placeholder"
	default:
		return "invalid"
	}
}

// Frame is one raster image. Frames are immutable once handed to a queue:
// the producer must not touch Image after publishing it and consumers only read.
type Frame struct {
	Kind  Kind
	Image *image.RGBA
	// Seq is the 1-based position of the frame within the current pass over the
	// source. It restarts at 1 after a loop-reset. Zero for placeholders.
	Seq uint64
}

// Decoded wraps a decoded image.
func Decoded(img *image.RGBA, seq uint64) Frame {
	return Frame{Kind: KindDecoded, Image: img, Seq: seq}
}

// Placeholder returns a solid frame of the given size.
func Placeholder(width, height int, c color.RGBA) Frame {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return Frame{Kind: KindPlaceholder, Image: img}
}

// FromPixels builds a decoded frame over a tightly packed RGBA buffer without copying.
func FromPixels(pix []byte, width, height int, seq uint64) Frame {
	return Decoded(&image.RGBA{
		Pix:    pix,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}, seq)
}

// Width returns the frame width in pixels.
func (f Frame) Width() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dx()
}

// Height returns the frame height in pixels.
func (f Frame) Height() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dy()
}

// Valid reports whether the frame carries pixels.
func (f Frame) Valid() bool {
	return f.Kind != KindInvalid && f.Image != nil
}

// IsPlaceholder reports whether the frame is synthetic.
func (f Frame) IsPlaceholder() bool {
	return f.Kind == KindPlaceholder
}
