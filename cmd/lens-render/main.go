// lens-render draws one effect against a synthetic face (or paints a
// background scene) for a number of frames and writes each frame as a PNG.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gogpu/gg"
	"github.com/teslashibe/go-lens/internal/log"
	"github.com/teslashibe/go-lens/pkg/composite"
	"github.com/teslashibe/go-lens/pkg/landmark"
	"github.com/teslashibe/go-lens/pkg/lens"
	"github.com/teslashibe/go-lens/pkg/surface"
	"github.com/teslashibe/go-lens/pkg/tracking"
)

func main() {
	effect := flag.String("effect", string(lens.Dog), "Effect id (see -list)")
	frames := flag.Int("frames", 1, "Number of frames to render")
	width := flag.Int("width", 640, "Output width")
	height := flag.Int("height", 480, "Output height")
	out := flag.String("out", "render", "Output directory")
	mouthOpen := flag.Bool("mouth-open", false, "Open the synthetic mouth")
	fallback := flag.Bool("fallback", false, "Render backgrounds through the no-mask fallback path")
	list := flag.Bool("list", false, "List effects and exit")
	flag.Parse()

	log.Init("info")
	gg.SetLogger(log.L())

	lib := lens.NewLibrary(lens.DefaultConfig())
	if *list {
		for _, info := range lib.Effects() {
			fmt.Printf("%-12s %-10s %s\n", info.ID, info.Kind, info.Name)
		}
		return
	}

	id, err := lens.Parse(*effect)
	if err != nil {
		log.Error("bad effect", "error", err)
		os.Exit(1)
	}
	if *frames < 1 || *width < 1 || *height < 1 {
		log.Error("frames, width and height must be positive")
		os.Exit(1)
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Error("create output dir", "error", err)
		os.Exit(1)
	}

	r := renderer{
		lib:      lib,
		surf:     surface.New(*width, *height),
		comp:     composite.New(composite.DefaultConfig()),
		face:     syntheticFace(*width, *height, *mouthOpen),
		backdrop: backdrop(*width, *height),
		fallback: *fallback,
	}

	for i := 0; i < *frames; i++ {
		if err := r.frame(id); err != nil {
			log.Error("render failed", "frame", i, "error", err)
			os.Exit(1)
		}
		path := filepath.Join(*out, fmt.Sprintf("%s_%04d.png", id, i))
		if err := r.surf.Context().SavePNG(path); err != nil {
			log.Error("write png", "path", path, "error", err)
			os.Exit(1)
		}
	}
	log.Info("rendered", "effect", id, "frames", *frames, "dir", *out)
}

type renderer struct {
	lib      *lens.Library
	surf     *surface.Surface
	comp     *composite.Compositor
	face     tracking.Face
	backdrop *gg.Context
	fallback bool
}

// frame draws one frame of id onto the surface
func (r *renderer) frame(id lens.ID) error {
	w, h := r.surf.Size()
	video := r.backdrop.Image()

	r.surf.Clear()
	switch {
	case id == lens.None:
		r.lib.BeginFrame(nil)
		r.surf.DrawVideo(video)
		return nil

	case id.IsBackground():
		r.lib.BeginFrame(nil)
		var mask *gg.Mask
		if !r.fallback {
			mask = personMask(w, h)
		}
		var paintErr error
		r.comp.Compose(r.surf, video, mask, func(dc *gg.Context) {
			paintErr = r.lib.PaintBackground(dc, id, w, h)
		})
		return paintErr

	default:
		r.surf.DrawVideo(video)
		dc := r.surf.Context()
		r.lib.BeginFrame(dc)
		return r.lib.RenderFace(dc, id, r.face, w, h)
	}
}

// backdrop is a neutral stand-in for a camera frame: a soft vertical
// gradient with a skin-toned ellipse where the synthetic face sits.
func backdrop(w, h int) *gg.Context {
	dc := gg.NewContext(w, h)
	grad := gg.NewLinearGradientBrush(0, 0, 0, float64(h))
	grad.AddColorStop(0, gg.RGBA{R: 0.32, G: 0.36, B: 0.42, A: 1})
	grad.AddColorStop(1, gg.RGBA{R: 0.16, G: 0.18, B: 0.22, A: 1})
	dc.SetFillBrush(grad)
	dc.DrawRectangle(0, 0, float64(w), float64(h))
	dc.Fill()

	fw, fh := float64(w), float64(h)
	dc.SetRGB(0.86, 0.69, 0.58)
	dc.DrawEllipse(fw*0.5, fh*0.52, fw*0.2, fh*0.3)
	dc.Fill()
	return dc
}

// personMask is an elliptical head-and-shoulders silhouette
func personMask(w, h int) *gg.Mask {
	m := gg.NewMask(w, h)
	cx, cy := float64(w)*0.5, float64(h)*0.52
	rx, ry := float64(w)*0.22, float64(h)*0.32
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := (float64(x)-cx)/rx, (float64(y)-cy)/ry
			if dx*dx+dy*dy <= 1 || float64(y) > float64(h)*0.8 {
				m.Set(x, y, 255)
			}
		}
	}
	return m
}

// syntheticFace places the named landmarks of a front-facing face centred in
// a w x h frame and runs the normal feature extraction over them.
func syntheticFace(w, h int, mouthOpen bool) tracking.Face {
	s := float64(w) / 640
	cx, cy := float64(w)/2, float64(h)/2
	at := func(dx, dy float64) landmark.Point {
		return landmark.Pt(cx+dx*s, cy+dy*s)
	}

	pts := make(landmark.Set, landmark.RefinedMeshSize)
	for i := range pts {
		pts[i] = at(0, 0)
	}
	pts[landmark.LeftEyeOuter] = at(-70, -20)
	pts[landmark.RightEyeOuter] = at(70, -20)
	pts[landmark.LeftEyeInner] = at(-25, -20)
	pts[landmark.RightEyeInner] = at(25, -20)
	pts[landmark.LeftIris] = at(-47, -20)
	pts[landmark.RightIris] = at(47, -20)
	pts[landmark.LeftEyeTop] = at(-48, -30)
	pts[landmark.LeftEyeBottom] = at(-48, -10)
	pts[landmark.RightEyeTop] = at(48, -30)
	pts[landmark.RightEyeBottom] = at(48, -10)
	pts[landmark.LeftTemple] = at(-120, -10)
	pts[landmark.RightTemple] = at(120, -10)
	pts[landmark.Forehead] = at(0, -90)
	pts[landmark.Chin] = at(0, 120)
	pts[landmark.NoseTip] = at(0, 30)
	pts[landmark.BetweenEyes] = at(0, -20)
	pts[landmark.MouthLeft] = at(-50, 70)
	pts[landmark.MouthRight] = at(50, 70)
	pts[landmark.UpperLip] = at(0, 65)
	pts[landmark.LowerLip] = at(0, 75)
	if mouthOpen {
		pts[landmark.LowerLip] = at(0, 105)
	}
	return tracking.Extract(pts, tracking.DefaultConfig())
}
