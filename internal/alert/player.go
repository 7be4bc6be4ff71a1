package alert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/jonboulle/clockwork"
)

// Player plays a tone sequence and returns once it has finished or failed.
type Player interface {
	Play(ctx context.Context, tones []Tone) error
}

type NoopPlayer struct{}

func (NoopPlayer) Play(context.Context, []Tone) error { return nil }

// audioDevice holds the process-wide oto context: oto allows one per process.
// Opening starts once; every caller waits for readiness under its own ctx.
type audioDevice struct {
	open  func(sampleRate int) (*oto.Context, <-chan struct{}, error)
	once  sync.Once
	ready chan struct{}
	audio *oto.Context
	err   error
}

var sharedAudio = &audioDevice{open: openOto}

func openOto(sampleRate int) (*oto.Context, <-chan struct{}, error) {
	return oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})
}

func (d *audioDevice) context(ctx context.Context, sampleRate int) (*oto.Context, error) {
	d.once.Do(func() {
		d.ready = make(chan struct{})
		audio, ready, err := d.open(sampleRate)
		if err != nil {
			d.err = fmt.Errorf("open audio device: %w", err)
			close(d.ready)
			return
		}
		go func() {
			<-ready
			d.audio = audio
			close(d.ready)
		}()
	})
	select {
	case <-d.ready:
		return d.audio, d.err
	case <-ctx.Done():
		return nil, fmt.Errorf("audio device not ready: %w", ctx.Err())
	}
}

// OtoPlayer plays through the system audio device.
type OtoPlayer struct {
	SampleRate int
	poll       time.Duration
}

func NewOtoPlayer() *OtoPlayer {
	return &OtoPlayer{SampleRate: SampleRate, poll: 10 * time.Millisecond}
}

func (p *OtoPlayer) Play(ctx context.Context, tones []Tone) error {
	audio, err := sharedAudio.context(ctx, p.SampleRate)
	if err != nil {
		return err
	}
	player := audio.NewPlayer(bytes.NewReader(PCM16(Synthesize(tones, p.SampleRate))))
	defer player.Close()
	player.Play()

	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	if err := player.Err(); err != nil {
		return fmt.Errorf("play alert: %w", err)
	}
	return nil
}

// BellPlayer rings the terminal bell once per tone, at the tone's offset.
type BellPlayer struct {
	out   io.Writer
	clock clockwork.Clock
}

func NewBellPlayer(out io.Writer, clock clockwork.Clock) *BellPlayer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &BellPlayer{out: out, clock: clock}
}

func (p *BellPlayer) Play(ctx context.Context, tones []Tone) error {
	var elapsed time.Duration
	for _, tone := range tones {
		if wait := tone.Offset - elapsed; wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-p.clock.After(wait):
			}
			elapsed = tone.Offset
		}
		if _, err := io.WriteString(p.out, "\a"); err != nil {
			return fmt.Errorf("ring bell: %w", err)
		}
	}
	return nil
}
