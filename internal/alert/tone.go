// Package alert synthesizes and plays the run-failure tone sequence.
package alert

import (
	"encoding/binary"
	"math"
	"time"
)

// Tone is one sine burst in a sequence.
type Tone struct {
	Frequency float64
	Offset    time.Duration
	Duration  time.Duration
}

func (t Tone) End() time.Duration {
	return t.Offset + t.Duration
}

// Sequence is the failure alert: two short 800 Hz beeps and a longer 600 Hz one.
var Sequence = []Tone{
	{Frequency: 800, Offset: 0, Duration: 150 * time.Millisecond},
	{Frequency: 800, Offset: 200 * time.Millisecond, Duration: 150 * time.Millisecond},
	{Frequency: 600, Offset: 400 * time.Millisecond, Duration: 300 * time.Millisecond},
}

const (
	SampleRate = 44100
	Attack     = 10 * time.Millisecond
	PeakGain   = 0.3
	FloorGain  = 0.01
)

// Envelope returns the amplitude at elapsed within a tone of the given length:
// a linear ramp to PeakGain over Attack, then an exponential decay reaching
// FloorGain at the end.
func Envelope(elapsed, duration time.Duration) float64 {
	if elapsed < 0 || elapsed > duration {
		return 0
	}
	if elapsed < Attack {
		return PeakGain * float64(elapsed) / float64(Attack)
	}
	decay := duration - Attack
	if decay <= 0 {
		return PeakGain
	}
	progress := float64(elapsed-Attack) / float64(decay)
	return PeakGain * math.Pow(FloorGain/PeakGain, progress)
}

// Length is the span from the start of the sequence to the end of its last tone.
func Length(tones []Tone) time.Duration {
	var end time.Duration
	for _, tone := range tones {
		if tone.End() > end {
			end = tone.End()
		}
	}
	return end
}

// Synthesize renders tones as mono float samples in [-1, 1].
func Synthesize(tones []Tone, sampleRate int) []float32 {
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}
	total := samplesFor(Length(tones), sampleRate)
	samples := make([]float32, total)
	for _, tone := range tones {
		start := samplesFor(tone.Offset, sampleRate)
		count := samplesFor(tone.Duration, sampleRate)
		for i := 0; i < count && start+i < total; i++ {
			elapsed := time.Duration(float64(i) / float64(sampleRate) * float64(time.Second))
			value := Envelope(elapsed, tone.Duration) * math.Sin(2*math.Pi*tone.Frequency*float64(i)/float64(sampleRate))
			samples[start+i] = clamp(samples[start+i] + float32(value))
		}
	}
	return samples
}

// PCM16 encodes samples as signed 16-bit little-endian mono.
func PCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(clamp(sample)*math.MaxInt16)))
	}
	return out
}

func samplesFor(d time.Duration, sampleRate int) int {
	return int(math.Round(d.Seconds() * float64(sampleRate)))
}

func clamp(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
