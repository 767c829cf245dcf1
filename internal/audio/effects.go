package audio

import (
	"math"
	"math/rand/v2"
)

// Effect transforms a segment into a new one.
type Effect interface {
	Apply(s *Segment) *Segment
}

// Chain applies its effects in order.
type Chain []Effect

// Apply runs every effect of the chain.
func (c Chain) Apply(s *Segment) *Segment {
	out := s
	for _, effect := range c {
		out = effect.Apply(out)
	}

	return out
}

// GainEffect changes the level by DB decibels.
type GainEffect struct {
	DB float64
}

func (g GainEffect) Apply(s *Segment) *Segment {
	if g.DB == 0 {
		return s
	}

	return s.Gain(g.DB)
}

// FadeInEffect fades in over MS milliseconds.
type FadeInEffect struct {
	MS int
}

func (f FadeInEffect) Apply(s *Segment) *Segment {
	if f.MS <= 0 {
		return s
	}

	return s.FadeIn(f.MS)
}

// FadeOutEffect fades out over MS milliseconds.
type FadeOutEffect struct {
	MS int
}

func (f FadeOutEffect) Apply(s *Segment) *Segment {
	if f.MS <= 0 {
		return s
	}

	return s.FadeOut(f.MS)
}

// LowPass is a one-pole low-pass filter.
type LowPass struct {
	CutoffHz float64
}

func (l LowPass) Apply(s *Segment) *Segment {
	out := s.Clone()
	if l.CutoffHz <= 0 || len(out.samples) == 0 {
		return out
	}

	rc := 1 / (2 * math.Pi * l.CutoffHz)
	dt := 1 / float64(s.rate)
	alpha := dt / (rc + dt)

	prev := alpha * out.samples[0]
	out.samples[0] = prev

	for i := 1; i < len(out.samples); i++ {
		prev += alpha * (out.samples[i] - prev)
		out.samples[i] = prev
	}

	return out
}

// CombReverb overlays Taps delayed copies of the source onto itself. Tap i
// (from 1) is delayed by DelayMS*i and attenuated by StepDB*i. The output
// has the length of the input.
type CombReverb struct {
	DelayMS int
	Taps    int
	StepDB  float64
}

func (r CombReverb) Apply(s *Segment) *Segment {
	if r.DelayMS <= 0 || r.Taps <= 0 {
		return s
	}

	out := s
	for i := 1; i <= r.Taps; i++ {
		echo := s.Gain(-r.StepDB * float64(i))
		out = out.Overlay(echo, r.DelayMS*i)
	}

	return out
}

// WhiteNoise returns ms milliseconds of full-scale uniform noise drawn
// from rng.
func WhiteNoise(ms, rate int, rng *rand.Rand) *Segment {
	samples := make([]float64, msToSamples(ms, rate))
	for i := range samples {
		samples[i] = rng.Float64()*2 - 1
	}

	return NewSegment(samples, rate)
}

// NoiseSource draws the noise used by the generated effects. A fixed seed
// gives the same noise on every run.
type NoiseSource struct {
	rate int
	rng  *rand.Rand
}

// NewNoiseSource creates a noise source at rate seeded with seed.
func NewNoiseSource(rate int, seed uint64) *NoiseSource {
	return &NoiseSource{rate: rate, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// StaticBurst returns noise of durationMS at volumeDB with fadeMS fades at
// both ends and an extra fade-out of extraFadeOutMS when positive.
func (n *NoiseSource) StaticBurst(durationMS int, volumeDB float64, fadeMS, extraFadeOutMS int) *Segment {
	chain := Chain{
		GainEffect{DB: volumeDB},
		FadeInEffect{MS: fadeMS},
		FadeOutEffect{MS: fadeMS},
		FadeOutEffect{MS: extraFadeOutMS},
	}

	return chain.Apply(WhiteNoise(durationMS, n.rate, n.rng))
}

// Hum returns low-passed noise of durationMS at volumeDB.
func (n *NoiseSource) Hum(durationMS int, volumeDB, cutoffHz float64) *Segment {
	chain := Chain{
		LowPass{CutoffHz: cutoffHz},
		GainEffect{DB: volumeDB},
	}

	return chain.Apply(WhiteNoise(durationMS, n.rate, n.rng))
}
