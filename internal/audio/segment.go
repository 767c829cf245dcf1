// Package audio provides a mono PCM segment type with the editing
// operations the mixer needs: overlay, slicing, gain, fades, filtering,
// normalization, decoding and export.
//
// Samples are float64 in [-1, 1]. Every operation returns a new segment and
// leaves its receiver untouched.
package audio

import (
	"math"
)

// DefaultSampleRate is the working rate clips are resampled to.
const DefaultSampleRate = 44100

const millisPerSecond = 1000

// Segment is a mono buffer of samples at a fixed rate.
type Segment struct {
	samples []float64
	rate    int
}

// NewSegment wraps samples recorded at rate. The slice is owned by the
// returned segment.
func NewSegment(samples []float64, rate int) *Segment {
	return &Segment{samples: samples, rate: rate}
}

// Silent returns a segment of ms milliseconds of silence.
func Silent(ms, rate int) *Segment {
	return &Segment{samples: make([]float64, msToSamples(ms, rate)), rate: rate}
}

// msToSamples converts a duration to a sample count, truncating.
func msToSamples(ms, rate int) int {
	if ms <= 0 {
		return 0
	}

	return int(int64(ms) * int64(rate) / millisPerSecond)
}

// SampleRate returns the segment's rate in Hz.
func (s *Segment) SampleRate() int {
	return s.rate
}

// Len returns the number of samples.
func (s *Segment) Len() int {
	return len(s.samples)
}

// Samples returns a copy of the sample data.
func (s *Segment) Samples() []float64 {
	out := make([]float64, len(s.samples))
	copy(out, s.samples)

	return out
}

// DurationMS returns the length in milliseconds, rounded to the nearest.
func (s *Segment) DurationMS() int {
	if s.rate <= 0 {
		return 0
	}

	return int(math.Round(float64(len(s.samples)) * millisPerSecond / float64(s.rate)))
}

// Clone returns a deep copy.
func (s *Segment) Clone() *Segment {
	return &Segment{samples: s.Samples(), rate: s.rate}
}

// Overlay mixes other into a copy of s starting at positionMS. The result
// keeps the length of s; the part of other past its end is dropped. Sums
// are clipped to [-1, 1].
func (s *Segment) Overlay(other *Segment, positionMS int) *Segment {
	out := s.Clone()

	offset := msToSamples(positionMS, s.rate)
	if offset >= len(out.samples) {
		return out
	}

	src := other
	if other.rate != s.rate {
		src = other.Resample(s.rate)
	}

	for i, v := range src.samples {
		j := offset + i
		if j >= len(out.samples) {
			break
		}

		out.samples[j] = clip(out.samples[j] + v)
	}

	return out
}

// Slice returns the part of s between startMS and endMS. Bounds are clamped.
func (s *Segment) Slice(startMS, endMS int) *Segment {
	start := min(msToSamples(startMS, s.rate), len(s.samples))
	end := min(msToSamples(endMS, s.rate), len(s.samples))

	if end < start {
		end = start
	}

	out := make([]float64, end-start)
	copy(out, s.samples[start:end])

	return &Segment{samples: out, rate: s.rate}
}

// Append returns s followed by other.
func (s *Segment) Append(other *Segment) *Segment {
	src := other
	if other.rate != s.rate {
		src = other.Resample(s.rate)
	}

	out := make([]float64, 0, len(s.samples)+len(src.samples))
	out = append(out, s.samples...)
	out = append(out, src.samples...)

	return &Segment{samples: out, rate: s.rate}
}

// Gain scales s by db decibels.
func (s *Segment) Gain(db float64) *Segment {
	factor := dbToAmplitude(db)
	out := s.Clone()

	for i := range out.samples {
		out.samples[i] = clip(out.samples[i] * factor)
	}

	return out
}

// FadeIn ramps the first ms milliseconds linearly up from silence.
func (s *Segment) FadeIn(ms int) *Segment {
	out := s.Clone()

	n := min(msToSamples(ms, s.rate), len(out.samples))
	for i := range n {
		out.samples[i] *= float64(i) / float64(n)
	}

	return out
}

// FadeOut ramps the last ms milliseconds linearly down to silence.
func (s *Segment) FadeOut(ms int) *Segment {
	out := s.Clone()

	n := min(msToSamples(ms, s.rate), len(out.samples))
	start := len(out.samples) - n

	for i := range n {
		out.samples[start+i] *= float64(n-1-i) / float64(n)
	}

	return out
}

// Peak returns the largest absolute sample value.
func (s *Segment) Peak() float64 {
	peak := 0.0
	for _, v := range s.samples {
		peak = math.Max(peak, math.Abs(v))
	}

	return peak
}

// Normalize scales s so its peak sits headroomDB below full scale.
// Silence is returned unchanged.
func (s *Segment) Normalize(headroomDB float64) *Segment {
	peak := s.Peak()
	if peak == 0 {
		return s.Clone()
	}

	factor := dbToAmplitude(-headroomDB) / peak
	out := s.Clone()

	for i := range out.samples {
		out.samples[i] = clip(out.samples[i] * factor)
	}

	return out
}

// Resample converts s to rate with linear interpolation.
func (s *Segment) Resample(rate int) *Segment {
	if rate == s.rate || len(s.samples) == 0 {
		return &Segment{samples: s.Samples(), rate: rate}
	}

	n := int(int64(len(s.samples)) * int64(rate) / int64(s.rate))
	out := make([]float64, n)
	ratio := float64(s.rate) / float64(rate)
	last := len(s.samples) - 1

	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)

		if idx >= last {
			out[i] = s.samples[last]

			continue
		}

		frac := pos - float64(idx)
		out[i] = s.samples[idx]*(1-frac) + s.samples[idx+1]*frac
	}

	return &Segment{samples: out, rate: rate}
}

func dbToAmplitude(db float64) float64 {
	return math.Pow(10, db/20)
}

func clip(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
