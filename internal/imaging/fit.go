// Package imaging fits frames into grid cells: center crop to the cell's
// aspect ratio, then scale, so cells are filled without letterboxing.
package imaging

import (
	"fmt"
	"image"
	"sort"

	"golang.org/x/image/draw"

	"github.com/smazurov/videowall/internal/frame"
)

// Scaler names accepted by ParseScaler.
const (
	ScalerNearest        = "nearest"
	ScalerBilinear       = "bilinear"
	ScalerApproxBilinear = "approx-bilinear"
	ScalerCatmullRom     = "catmullrom"
)

var scalers = map[string]draw.Scaler{
	ScalerNearest:        draw.NearestNeighbor,
	ScalerBilinear:       draw.BiLinear,
	ScalerApproxBilinear: draw.ApproxBiLinear,
	ScalerCatmullRom:     draw.CatmullRom,
}

// ScalerNames returns the accepted scaler names, sorted.
func ScalerNames() []string {
	names := make([]string, 0, len(scalers))
	for name := range scalers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseScaler returns the scaler for a name. The empty name selects
// approx-bilinear.
func ParseScaler(name string) (draw.Scaler, error) {
	if name == "" {
		name = ScalerApproxBilinear
	}
	s, ok := scalers[name]
	if !ok {
		return nil, fmt.Errorf("unknown scaler %q (valid: %v)", name, ScalerNames())
	}
	return s, nil
}

// Fitter crops and scales frames to a target size.
type Fitter struct {
	scaler draw.Scaler
}

// NewFitter creates a Fitter using the named scaler.
func NewFitter(scaler string) (*Fitter, error) {
	s, err := ParseScaler(scaler)
	if err != nil {
		return nil, err
	}
	return &Fitter{scaler: s}, nil
}

// Fit returns src center-cropped to the aspect ratio of w×h and scaled to
// exactly w×h. The result keeps src's kind and sequence number. A frame that
// already has the target size is returned as is.
func (f *Fitter) Fit(src frame.Frame, w, h int) frame.Frame {
	if !src.Valid() || w <= 0 || h <= 0 {
		return src
	}
	if src.Width() == w && src.Height() == h {
		return src
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	f.scaler.Scale(dst, dst.Bounds(), src.Image, CropRect(src.Image.Bounds(), w, h), draw.Src, nil)
	return frame.Frame{Kind: src.Kind, Image: dst, Seq: src.Seq}
}

// CropRect returns the largest centered sub-rectangle of b with the aspect
// ratio w:h.
func CropRect(b image.Rectangle, w, h int) image.Rectangle {
	sw, sh := b.Dx(), b.Dy()
	if sw <= 0 || sh <= 0 || w <= 0 || h <= 0 {
		return b
	}

	// Compare sw/sh with w/h without floating point.
	switch {
	case sw*h > sh*w: // source is wider: trim the sides
		cw := max(sh*w/h, 1)
		x0 := b.Min.X + (sw-cw)/2
		return image.Rect(x0, b.Min.Y, x0+cw, b.Max.Y)
	case sw*h < sh*w: // source is taller: trim top and bottom
		ch := max(sw*h/w, 1)
		y0 := b.Min.Y + (sh-ch)/2
		return image.Rect(b.Min.X, y0, b.Max.X, y0+ch)
	default:
		return b
	}
}
