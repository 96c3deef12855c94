package whisper

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// bitsPerSample is fixed at 16 for the 16-bit signed little-endian PCM
// audio that whisper.cpp expects.
const bitsPerSample = 16

var errBadWAV = errors.New("invalid wav data")

// pcmAudio is 16-bit signed little-endian PCM with its format.
type pcmAudio struct {
	data       []byte
	sampleRate int
	channels   int
}

func (a pcmAudio) duration() time.Duration {
	bytesPerSec := a.sampleRate * a.channels * bitsPerSample / 8
	if bytesPerSec <= 0 {
		return 0
	}
	return time.Duration(len(a.data)) * time.Second / time.Duration(bytesPerSec)
}

// mono down-mixes multi-channel audio by averaging the channels of each
// frame. Mono input is returned unchanged.
func (a pcmAudio) mono() pcmAudio {
	if a.channels <= 1 {
		return a
	}
	frames := len(a.data) / (2 * a.channels)
	out := make([]byte, frames*2)
	for i := range frames {
		var sum int
		for ch := range a.channels {
			idx := (i*a.channels + ch) * 2
			sum += int(int16(binary.LittleEndian.Uint16(a.data[idx:])))
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(sum/a.channels)))
	}
	return pcmAudio{data: out, sampleRate: a.sampleRate, channels: 1}
}

// encodeWAV wraps a's PCM data in a canonical 44-byte RIFF/WAV header.
func encodeWAV(a pcmAudio) []byte {
	byteRate := a.sampleRate * a.channels * bitsPerSample / 8
	blockAlign := a.channels * bitsPerSample / 8
	size := len(a.data)

	buf := make([]byte, 44+size)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+size))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(a.channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(a.sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(size))
	copy(buf[44:], a.data)
	return buf
}

// decodeWAV walks the RIFF chunks of b and returns its PCM payload. Only
// uncompressed 16-bit PCM is accepted. Browsers' MediaRecorder-to-WAV
// encoders sometimes write a zero or oversized data length; the payload is
// then clamped to what is present.
func decodeWAV(b []byte) (pcmAudio, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return pcmAudio{}, fmt.Errorf("%w: missing RIFF/WAVE header", errBadWAV)
	}

	var a pcmAudio
	haveFmt := false
	for off := 12; off+8 <= len(b); {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		body := off + 8

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(b) {
				return pcmAudio{}, fmt.Errorf("%w: short fmt chunk", errBadWAV)
			}
			if format := binary.LittleEndian.Uint16(b[body:]); format != 1 {
				return pcmAudio{}, fmt.Errorf("%w: audio format %d is not PCM", errBadWAV, format)
			}
			a.channels = int(binary.LittleEndian.Uint16(b[body+2:]))
			a.sampleRate = int(binary.LittleEndian.Uint32(b[body+4:]))
			if bits := binary.LittleEndian.Uint16(b[body+14:]); bits != bitsPerSample {
				return pcmAudio{}, fmt.Errorf("%w: %d bits per sample, want 16", errBadWAV, bits)
			}
			if a.channels <= 0 || a.sampleRate <= 0 {
				return pcmAudio{}, fmt.Errorf("%w: bad channel count or sample rate", errBadWAV)
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return pcmAudio{}, fmt.Errorf("%w: data chunk before fmt chunk", errBadWAV)
			}
			end := body + size
			if size == 0 || end > len(b) {
				end = len(b)
			}
			a.data = b[body:end]
			return a, nil
		}

		// Chunks are padded to an even size.
		off = body + size + size%2
	}
	return pcmAudio{}, fmt.Errorf("%w: no data chunk", errBadWAV)
}

// computeRMS returns the root-mean-square energy of a 16-bit signed
// little-endian PCM buffer in sample units (0–32 767). Returns 0 for
// buffers shorter than one sample.
func computeRMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := range n {
		v := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}
