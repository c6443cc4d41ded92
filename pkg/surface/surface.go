// Package surface provides the engine's output surface: a gg drawing context
// sized to the incoming video, plus helpers for copying and mirroring frames.
package surface

import (
	"image"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"github.com/teslashibe/go-lens/internal/log"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/f64"
)

// Surface is a resizable drawing target. It is not safe for concurrent use;
// other goroutines read pixels through Snapshot copies.
type Surface struct {
	dc   *gg.Context
	font *text.FontSource
}

// New creates a transparent surface of the given size
func New(width, height int) *Surface {
	s := &Surface{dc: gg.NewContext(max(width, 1), max(height, 1))}

	font, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		log.Warn("badge font unavailable", "error", err)
	} else {
		s.font = font
	}
	return s
}

// Context returns the underlying drawing context.
func (s *Surface) Context() *gg.Context {
	return s.dc
}

// Size returns the surface dimensions in pixels
func (s *Surface) Size() (width, height int) {
	return s.dc.Width(), s.dc.Height()
}

// Resize changes the surface dimensions. Contents are discarded when the size
// changes; an unchanged size is a no-op.
func (s *Surface) Resize(width, height int) error {
	if width == s.dc.Width() && height == s.dc.Height() {
		return nil
	}
	return s.dc.Resize(width, height)
}

// Clear makes every pixel transparent.
func (s *Surface) Clear() {
	s.dc.Identity()
	s.dc.Clear()
}

// DrawVideo draws a video frame scaled to cover the whole surface.
func (s *Surface) DrawVideo(frame image.Image) {
	w, h := s.Size()
	s.dc.DrawImageEx(gg.ImageBufFromImage(frame), gg.DrawImageOptions{
		DstWidth:  float64(w),
		DstHeight: float64(h),
		Opacity:   1,
		BlendMode: gg.BlendNormal,
	})
}

// DrawImage draws img at the origin at its natural size.
func (s *Surface) DrawImage(img image.Image) {
	s.dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		Opacity:   1,
		BlendMode: gg.BlendNormal,
	})
}

// DrawScene runs paint on the surface. Anything other than a fully opaque
// normal blend is painted into a layer and composited with the given mode.
func (s *Surface) DrawScene(paint func(dc *gg.Context), opacity float64, blend gg.BlendMode) {
	if opacity >= 1 && blend == gg.BlendNormal {
		paint(s.dc)
		return
	}
	s.dc.PushLayer(blend, opacity)
	paint(s.dc)
	s.dc.PopLayer()
}

// DrawBadge draws a small pill with label in the top-left corner.
func (s *Surface) DrawBadge(label string) {
	w, _ := s.Size()
	size := max(float64(w)/48, 10)
	pad := size * 0.6

	bw := size*0.62*float64(len(label)) + pad*2
	bh := size + pad*2
	x, y := pad*1.5, pad*1.5

	s.dc.Identity()
	s.dc.SetFillBrush(gg.Solid(gg.RGBA{R: 0, G: 0, B: 0, A: 0.55}))
	s.dc.DrawRoundedRectangle(x, y, bw, bh, bh/2)
	_ = s.dc.Fill()

	if s.font == nil {
		return
	}
	s.dc.SetFont(s.font.Face(size))
	s.dc.SetFillBrush(gg.Solid(gg.RGBA{R: 1, G: 1, B: 1, A: 0.9}))
	s.dc.DrawStringAnchored(label, x+bw/2, y+bh/2, 0.5, 0.35)
}

// Snapshot returns a copy of the current pixels.
func (s *Surface) Snapshot() *image.RGBA {
	_ = s.dc.FlushGPU()
	return ToRGBA(s.dc.Image())
}

// ToRGBA returns img as an *image.RGBA anchored at the origin, copying only
// when the concrete type or bounds differ.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Rect, img, b.Min, draw.Src)
	return out
}

// Scale resamples img to width x height.
func Scale(img image.Image, width, height int) *image.RGBA {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return ToRGBA(img)
	}
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(out, out.Rect, img, b, draw.Src, nil)
	return out
}

// Mirror returns a horizontally flipped copy of img.
func Mirror(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	m := f64.Aff3{
		-1, 0, float64(b.Max.X),
		0, 1, float64(-b.Min.Y),
	}
	draw.NearestNeighbor.Transform(out, m, img, b, draw.Src, nil)
	return out
}
