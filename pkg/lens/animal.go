package lens

import (
	"math"

	"github.com/gogpu/gg"
	"github.com/teslashibe/go-lens/pkg/landmark"
	"github.com/teslashibe/go-lens/pkg/tracking"
)

type dogLens struct{}

func (dogLens) ID() ID       { return Dog }
func (dogLens) Name() string { return "Puppy" }

func (dogLens) Render(f Frame, face tracking.Face) {
	dc, s, t := f.DC, face.FaceScale, f.T

	// Ears hang from the temples
	for _, ear := range []struct {
		temple landmark.Point
		sign   float64
	}{{face.LeftTemple, -1}, {face.RightTemple, 1}} {
		ew, eh := 80*s, 100*s
		dc.Push()
		dc.Translate(ear.temple.X+ear.sign*ew*0.05, ear.temple.Y-eh*0.45)
		dc.Rotate(face.Roll + ear.sign*0.18)
		dc.DrawEllipse(0, 0, ew/2, eh/2)
		fill(dc, rgba(139, 69, 19, 1))
		dc.DrawEllipse(0, 4*s, ew/3.5, eh/3.5)
		fill(dc, rgba(210, 105, 30, 1))
		dc.Pop()
	}

	// Nose
	nw, nh := 32*s, 20*s
	dc.Push()
	dc.Translate(face.NoseTip.X, face.NoseTip.Y+5*s)
	dc.Rotate(face.Roll)
	dc.DrawEllipse(0, 0, nw/2, nh/2)
	fill(dc, rgba(17, 17, 17, 1))
	dc.DrawEllipse(-nw*0.15, -nh*0.2, nw*0.12, nh*0.15)
	fill(dc, rgba(255, 255, 255, 0.45))
	dc.Pop()

	// Cheek blush
	blush := rgba(255, 130, 130, 0.45)
	radialGlow(dc, face.LeftEye.X-22*s, face.LeftEye.Y+28*s, 22*s, blush, fade(blush, 0))
	radialGlow(dc, face.RightEye.X+22*s, face.RightEye.Y+28*s, 22*s, blush, fade(blush, 0))

	// Tongue wags while the mouth is open
	if face.MouthOpen {
		wag := math.Sin(t*9) * 7 * s
		tw, th := 36*s, 50*s
		dc.Push()
		dc.Translate(face.MouthCenter.X, face.MouthCenter.Y+8*s)
		dc.Rotate(face.Roll)
		dc.Translate(wag, 0)
		dc.MoveTo(-tw/2, 0)
		dc.QuadraticTo(-tw/2, th, 0, th)
		dc.QuadraticTo(tw/2, th, tw/2, 0)
		dc.ClosePath()
		fill(dc, rgba(224, 85, 112, 1))
		dc.MoveTo(0, 0)
		dc.LineTo(0, th*0.9)
		stroke(dc, rgba(0, 0, 0, 0.12), 2.5*s)
		dc.Pop()
	}
}

type catLens struct{}

func (catLens) ID() ID       { return Cat }
func (catLens) Name() string { return "Kitty" }

func (catLens) Render(f Frame, face tracking.Face) {
	dc, s, t := f.DC, face.FaceScale, f.T

	// Pointed ears
	for _, ear := range []struct {
		temple landmark.Point
		sign   float64
	}{{face.LeftTemple, -1}, {face.RightTemple, 1}} {
		es := 48 * s
		dc.Push()
		dc.Translate(ear.temple.X+ear.sign*8*s, ear.temple.Y-55*s)
		dc.Rotate(face.Roll + ear.sign*0.14)
		dc.MoveTo(0, -es)
		dc.LineTo(es*0.55, es*0.3)
		dc.LineTo(-es*0.55, es*0.3)
		dc.ClosePath()
		fill(dc, rgba(45, 45, 45, 1))
		dc.MoveTo(0, -es*0.65)
		dc.LineTo(es*0.28, es*0.1)
		dc.LineTo(-es*0.28, es*0.1)
		dc.ClosePath()
		fill(dc, rgba(255, 158, 181, 1))
		dc.Pop()
	}

	DrawGlyph(dc, GlyphPaw, face.NoseTip.X, face.NoseTip.Y+4*s, 26*s, face.Roll, 1)

	// Whiskers twitch slowly
	wag := math.Sin(t*2) * 3 * s
	dc.Push()
	dc.Translate(face.NoseTip.X, face.NoseTip.Y)
	dc.Rotate(face.Roll)
	dc.SetLineCap(gg.LineCapRound)
	for i := -1; i <= 1; i++ {
		oy := float64(i) * 10 * s
		tip := oy - float64(i)*6*s + wag
		for _, sign := range []float64{-1, 1} {
			dc.MoveTo(sign*12*s, oy+wag)
			dc.LineTo(sign*(12*s+75*s), tip)
			stroke(dc, rgba(255, 255, 255, 0.9), 1.5)
		}
	}
	dc.Pop()

	// Slit pupil glow
	for _, eye := range []landmark.Point{face.LeftEye, face.RightEye} {
		rotatedEllipse(dc, eye.X, eye.Y, 3.5*s, 11*s, face.Roll)
		fill(dc, rgba(50, 255, 100, 0.4))
	}
}
