package lens

import (
	"math"
	"math/rand/v2"

	"github.com/gogpu/gg"
)

// DefaultParticleCapacity bounds the shared particle pool.
const DefaultParticleCapacity = 120

// Emitter configures newly emitted particles. Zero fields take defaults.
type Emitter struct {
	Glyph Glyph
	Size  float64 // Nominal sprite size (px), default 18
	Speed float64 // Initial velocity spread, default 3
	Rise  float64 // Initial upward drift, default 1.5
}

// Particle is one short-lived sprite. Life runs from 1 down to 0 and doubles
// as the draw opacity.
type Particle struct {
	X, Y   float64
	VX, VY float64
	Life   float64
	Decay  float64
	Size   float64
	Angle  float64
	Spin   float64
	Glyph  Glyph
}

// Dead reports whether the particle has faded out.
func (p *Particle) Dead() bool {
	return p.Life <= 0
}

func (p *Particle) update() {
	p.X += p.VX
	p.Y += p.VY
	p.VY -= 0.04
	p.Life -= p.Decay
	p.Angle += p.Spin
}

// ParticleSystem is a bounded pool of particles. Emission past the capacity
// is dropped silently.
type ParticleSystem struct {
	pool []Particle
	max  int
	rng  *rand.Rand
}

// NewParticleSystem creates an empty pool. A non-positive max uses
// DefaultParticleCapacity.
func NewParticleSystem(max int, rng *rand.Rand) *ParticleSystem {
	if max <= 0 {
		max = DefaultParticleCapacity
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}
	return &ParticleSystem{
		pool: make([]Particle, 0, max),
		max:  max,
		rng:  rng,
	}
}

// Emit adds up to n particles at (x, y) and returns how many were accepted.
func (ps *ParticleSystem) Emit(x, y float64, n int, e Emitter) int {
	speed := orDefault(e.Speed, 3)
	rise := orDefault(e.Rise, 1.5)
	size := orDefault(e.Size, 18)

	accepted := 0
	for i := 0; i < n && len(ps.pool) < ps.max; i++ {
		r := ps.rng
		ps.pool = append(ps.pool, Particle{
			X:     x,
			Y:     y,
			VX:    (r.Float64() - 0.5) * speed,
			VY:    (r.Float64()-0.5)*speed - rise,
			Life:  1,
			Decay: 0.012 + r.Float64()*0.018,
			Size:  size * (0.6 + r.Float64()*0.6),
			Angle: r.Float64() * 2 * math.Pi,
			Spin:  (r.Float64() - 0.5) * 0.12,
			Glyph: e.Glyph,
		})
		accepted++
	}
	return accepted
}

// Tick advances every particle one step, draws the survivors onto dc and
// drops the dead ones. A nil dc only advances.
func (ps *ParticleSystem) Tick(dc *gg.Context) {
	live := ps.pool[:0]
	for _, p := range ps.pool {
		p.update()
		if p.Dead() {
			continue
		}
		if dc != nil {
			DrawGlyph(dc, p.Glyph, p.X, p.Y, p.Size, p.Angle, p.Life)
		}
		live = append(live, p)
	}
	ps.pool = live
}

// Particles returns a copy of the live pool.
func (ps *ParticleSystem) Particles() []Particle {
	out := make([]Particle, len(ps.pool))
	copy(out, ps.pool)
	return out
}

// Len returns the number of live particles.
func (ps *ParticleSystem) Len() int {
	return len(ps.pool)
}

// Cap returns the pool capacity.
func (ps *ParticleSystem) Cap() int {
	return ps.max
}

// Clear drops every particle.
func (ps *ParticleSystem) Clear() {
	ps.pool = ps.pool[:0]
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
