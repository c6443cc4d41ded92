// Package composite places the live subject over synthetic background scenes.
//
// With a segmentation mask the scene fills the frame and a masked cutout of
// the video is drawn on top. Without one the raw video is drawn first and the
// scene is blended over it at reduced opacity, so the subject stays visible
// while the model loads or after it has failed.
package composite

import (
	"image"

	"github.com/gogpu/gg"
	"github.com/teslashibe/go-lens/pkg/surface"
	"golang.org/x/image/draw"
)

// Canvas is the drawing target the compositor writes to.
type Canvas interface {
	Size() (width, height int)
	DrawVideo(frame image.Image)
	DrawImage(img image.Image)
	DrawScene(paint func(dc *gg.Context), opacity float64, blend gg.BlendMode)
	DrawBadge(label string)
}

// Config holds compositing parameters
type Config struct {
	FallbackOpacity float64      // Scene opacity over raw video when no mask is available
	FallbackBlend   gg.BlendMode // Lightening blend used on the fallback path
	BadgeLabel      string       // Empty disables the loading badge
}

// DefaultConfig returns the standard compositing configuration
func DefaultConfig() Config {
	return Config{
		FallbackOpacity: 0.45,
		FallbackBlend:   gg.BlendScreen,
		BadgeLabel:      "loading background",
	}
}

// Compositor draws background effects. It keeps offscreen buffers between
// frames and must be used from one goroutine.
type Compositor struct {
	config Config

	video  *image.RGBA
	alpha  *image.Alpha
	cutout *image.RGBA
}

// New creates a compositor
func New(config Config) *Compositor {
	return &Compositor{config: config}
}

// Config returns the active configuration.
func (c *Compositor) Config() Config {
	return c.config
}

// Compose draws one background-effect frame onto canvas. mask may be nil.
func (c *Compositor) Compose(canvas Canvas, frame image.Image, mask *gg.Mask, paint func(dc *gg.Context)) {
	if mask == nil || mask.Width() == 0 || mask.Height() == 0 {
		canvas.DrawVideo(frame)
		canvas.DrawScene(paint, c.config.FallbackOpacity, c.config.FallbackBlend)
		if c.config.BadgeLabel != "" {
			canvas.DrawBadge(c.config.BadgeLabel)
		}
		return
	}

	canvas.DrawScene(paint, 1, gg.BlendNormal)

	w, h := canvas.Size()
	canvas.DrawImage(c.Cutout(frame, mask, w, h))
}

// Cutout returns frame scaled to width x height with every pixel's alpha
// taken from mask, also scaled to the same size. The returned image is
// reused by the next call.
func (c *Compositor) Cutout(frame image.Image, mask *gg.Mask, width, height int) *image.RGBA {
	c.ensure(width, height)
	rect := image.Rect(0, 0, width, height)

	draw.ApproxBiLinear.Scale(c.video, rect, frame, frame.Bounds(), draw.Src, nil)
	draw.ApproxBiLinear.Scale(c.alpha, rect, MaskImage(mask), mask.Bounds(), draw.Src, nil)

	clear(c.cutout.Pix)
	draw.DrawMask(c.cutout, rect, c.video, image.Point{}, c.alpha, image.Point{}, draw.Over)
	return c.cutout
}

// Reset drops the offscreen buffers.
func (c *Compositor) Reset() {
	c.video, c.alpha, c.cutout = nil, nil, nil
}

func (c *Compositor) ensure(width, height int) {
	if c.cutout != nil && c.cutout.Rect.Dx() == width && c.cutout.Rect.Dy() == height {
		return
	}
	rect := image.Rect(0, 0, width, height)
	c.video = image.NewRGBA(rect)
	c.alpha = image.NewAlpha(rect)
	c.cutout = image.NewRGBA(rect)
}

// MaskImage views a mask as an *image.Alpha without copying.
func MaskImage(mask *gg.Mask) *image.Alpha {
	return &image.Alpha{
		Pix:    mask.Data(),
		Stride: mask.Width(),
		Rect:   image.Rect(0, 0, mask.Width(), mask.Height()),
	}
}

var _ Canvas = (*surface.Surface)(nil)
