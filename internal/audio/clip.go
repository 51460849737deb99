package audio

import (
	"fmt"
	"io"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Clip is a finished microphone capture. It is immutable once returned by
// the recorder; the session that recorded it owns it until it is handed
// to a transcription provider.
type Clip struct {
	Samples    []float32
	SampleRate uint32
	Channels   uint32
}

// Duration returns the clip length.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	frames := len(c.Samples) / int(c.Channels)
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// WAV encodes the clip as a 16-bit PCM WAV file, the payload format the
// cloud transcription APIs accept.
func (c *Clip) WAV() ([]byte, error) {
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: int(c.Channels),
			SampleRate:  int(c.SampleRate),
		},
		Data:           make([]int, len(c.Samples)),
		SourceBitDepth: 16,
	}
	for i, s := range c.Samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		buf.Data[i] = int(s * 32767)
	}

	ws := &writeSeekBuffer{}
	enc := wav.NewEncoder(ws, int(c.SampleRate), 16, int(c.Channels), 1)
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("audio: encoding wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("audio: closing wav encoder: %w", err)
	}
	return ws.buf, nil
}

// writeSeekBuffer is an in-memory io.WriteSeeker for the wav encoder,
// which seeks back to patch the RIFF header on Close.
type writeSeekBuffer struct {
	buf []byte
	pos int
}

func (w *writeSeekBuffer) Write(p []byte) (int, error) {
	if need := w.pos + len(p); need > len(w.buf) {
		w.buf = append(w.buf, make([]byte, need-len(w.buf))...)
	}
	n := copy(w.buf[w.pos:], p)
	w.pos += n
	return n, nil
}

func (w *writeSeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(w.pos) + offset
	case io.SeekEnd:
		abs = int64(len(w.buf)) + offset
	default:
		return 0, fmt.Errorf("audio: invalid seek whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("audio: negative seek position %d", abs)
	}
	w.pos = int(abs)
	return abs, nil
}
