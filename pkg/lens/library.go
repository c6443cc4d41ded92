package lens

import (
	"fmt"
	"math/rand/v2"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"github.com/teslashibe/go-lens/internal/log"
	"github.com/teslashibe/go-lens/pkg/tracking"
	"golang.org/x/image/font/gofont/gomono"
)

// Frame is everything a face lens may read or draw with for one call.
type Frame struct {
	DC        *gg.Context
	Width     int
	Height    int
	T         float64 // Clock time (s)
	Particles *ParticleSystem
	Rand      *rand.Rand
	Font      *text.FontSource // HUD font, nil when unavailable
}

// FaceLens draws an overlay anchored to one tracked face. Render must not
// modify face and must place all geometry relative to its features.
type FaceLens interface {
	ID() ID
	Name() string
	Render(f Frame, face tracking.Face)
}

// Background paints a full-frame synthetic scene. Paint depends only on its
// arguments.
type Background interface {
	ID() ID
	Name() string
	Paint(dc *gg.Context, t float64, width, height int)
}

// Info describes a registered effect for listings.
type Info struct {
	ID   ID     `json:"id"`
	Kind string `json:"kind"`
	Name string `json:"name"`
}

var faceLenses = []FaceLens{
	dogLens{},
	catLens{},
	sunglassesLens{},
	crownLens{},
	sparklesLens{},
	beautyLens{},
	rainbowLens{},
	cyborgLens{},
	fireLens{},
	astronautLens{},
}

var backgrounds = []Background{
	beachScene{},
	cityScene{},
	spaceScene{},
	forestScene{},
	neonScene{},
}

// Config holds lens library parameters
type Config struct {
	ClockStep        float64 // Clock advance per frame (s)
	ParticleCapacity int     // Particle pool bound
	Seed             uint64  // Seed for emission randomness
}

// DefaultConfig returns the standard library configuration
func DefaultConfig() Config {
	return Config{
		ClockStep:        DefaultClockStep,
		ParticleCapacity: DefaultParticleCapacity,
		Seed:             0x5eed,
	}
}

// Library owns the effect registry together with the clock and particle
// pool shared by every lens.
type Library struct {
	faces     map[ID]FaceLens
	scenes    map[ID]Background
	clock     *Clock
	particles *ParticleSystem
	rng       *rand.Rand
	font      *text.FontSource
}

// NewLibrary creates a library with every effect registered
func NewLibrary(cfg Config) *Library {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	l := &Library{
		faces:     make(map[ID]FaceLens, len(faceLenses)),
		scenes:    make(map[ID]Background, len(backgrounds)),
		clock:     NewClock(cfg.ClockStep),
		particles: NewParticleSystem(cfg.ParticleCapacity, rng),
		rng:       rng,
	}
	for _, fl := range faceLenses {
		l.faces[fl.ID()] = fl
	}
	for _, bg := range backgrounds {
		l.scenes[bg.ID()] = bg
	}

	font, err := text.NewFontSource(gomono.TTF)
	if err != nil {
		log.Warn("HUD font unavailable", "error", err)
	} else {
		l.font = font
	}

	return l
}

// Has reports whether id is None or a registered effect
func (l *Library) Has(id ID) bool {
	if id == None {
		return true
	}
	if _, ok := l.faces[id]; ok {
		return true
	}
	_, ok := l.scenes[id]
	return ok
}

// Effects lists every registered effect, face lenses first
func (l *Library) Effects() []Info {
	out := make([]Info, 0, len(faceLenses)+len(backgrounds))
	for _, fl := range faceLenses {
		out = append(out, Info{ID: fl.ID(), Kind: fl.ID().Kind(), Name: fl.Name()})
	}
	for _, bg := range backgrounds {
		out = append(out, Info{ID: bg.ID(), Kind: bg.ID().Kind(), Name: bg.Name()})
	}
	return out
}

// BeginFrame advances the clock one step and ticks the particle pool,
// drawing live particles onto dc when it is non-nil. It returns the new
// clock time.
func (l *Library) BeginFrame(dc *gg.Context) float64 {
	t := l.clock.Tick()
	l.particles.Tick(dc)
	return t
}

// RenderFace draws face lens id for one face.
func (l *Library) RenderFace(dc *gg.Context, id ID, face tracking.Face, width, height int) error {
	fl, ok := l.faces[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEffect, id)
	}
	fl.Render(Frame{
		DC:        dc,
		Width:     width,
		Height:    height,
		T:         l.clock.Now(),
		Particles: l.particles,
		Rand:      l.rng,
		Font:      l.font,
	}, face)
	return nil
}

// PaintBackground paints background id at the current clock time.
func (l *Library) PaintBackground(dc *gg.Context, id ID, width, height int) error {
	bg, ok := l.scenes[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEffect, id)
	}
	bg.Paint(dc, l.clock.Now(), width, height)
	return nil
}

// Scene returns the background registered under id.
func (l *Library) Scene(id ID) (Background, bool) {
	bg, ok := l.scenes[id]
	return bg, ok
}

// Reset zeroes the clock and drops every particle.
func (l *Library) Reset() {
	l.clock.Reset()
	l.particles.Clear()
}

// Clock returns the shared clock.
func (l *Library) Clock() *Clock {
	return l.clock
}

// Particles returns the shared particle pool.
func (l *Library) Particles() *ParticleSystem {
	return l.particles
}
