package whisper

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

func TestEncodeDecodeWAV(t *testing.T) {
	t.Parallel()
	pcm := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	in := pcmAudio{data: pcm, sampleRate: 8000, channels: 2}

	out, err := decodeWAV(encodeWAV(in))
	if err != nil {
		t.Fatalf("decodeWAV: %v", err)
	}
	if out.sampleRate != 8000 || out.channels != 2 || !bytes.Equal(out.data, pcm) {
		t.Errorf("decoded %+v, want %+v", out, in)
	}
}

func TestDecodeWAV_SkipsExtraChunks(t *testing.T) {
	t.Parallel()
	wav := encodeWAV(pcmAudio{data: []byte{9, 0, 8, 0}, sampleRate: 16000, channels: 1})

	// Insert an odd-sized LIST chunk (padded to even) between fmt and data.
	list := []byte("LIST\x03\x00\x00\x00abc\x00")
	var b bytes.Buffer
	b.Write(wav[:36])
	b.Write(list)
	b.Write(wav[36:])

	a, err := decodeWAV(b.Bytes())
	if err != nil {
		t.Fatalf("decodeWAV: %v", err)
	}
	if !bytes.Equal(a.data, []byte{9, 0, 8, 0}) {
		t.Errorf("data = %v", a.data)
	}
}

func TestDecodeWAV_ClampsDataLength(t *testing.T) {
	t.Parallel()
	wav := encodeWAV(pcmAudio{data: []byte{1, 0, 2, 0}, sampleRate: 16000, channels: 1})
	binary.LittleEndian.PutUint32(wav[40:44], 0xFFFFFFF0)

	a, err := decodeWAV(wav)
	if err != nil {
		t.Fatalf("decodeWAV: %v", err)
	}
	if len(a.data) != 4 {
		t.Errorf("len(data) = %d, want 4", len(a.data))
	}
}

func TestDecodeWAV_Rejects(t *testing.T) {
	t.Parallel()
	good := encodeWAV(pcmAudio{data: []byte{0, 0}, sampleRate: 16000, channels: 1})

	float := bytes.Clone(good)
	binary.LittleEndian.PutUint16(float[20:22], 3)
	eightBit := bytes.Clone(good)
	binary.LittleEndian.PutUint16(eightBit[34:36], 8)

	for name, b := range map[string][]byte{
		"short":    []byte("RIFF"),
		"not riff": append([]byte("RIFX"), good[4:]...),
		"float":    float,
		"8-bit":    eightBit,
		"no data":  good[:36],
	} {
		if _, err := decodeWAV(b); !errors.Is(err, errBadWAV) {
			t.Errorf("%s: err = %v, want errBadWAV", name, err)
		}
	}
}

func TestMono(t *testing.T) {
	t.Parallel()
	stereo := make([]byte, 8)
	putSample(stereo[0:], 100)
	putSample(stereo[2:], 300)
	putSample(stereo[4:], -100)
	putSample(stereo[6:], -300)

	m := pcmAudio{data: stereo, sampleRate: 16000, channels: 2}.mono()
	if m.channels != 1 || len(m.data) != 4 {
		t.Fatalf("mono = %+v", m)
	}
	if got := int16(binary.LittleEndian.Uint16(m.data[0:])); got != 200 {
		t.Errorf("frame 0 = %d, want 200", got)
	}
	if got := int16(binary.LittleEndian.Uint16(m.data[2:])); got != -200 {
		t.Errorf("frame 1 = %d, want -200", got)
	}
}

func TestDuration(t *testing.T) {
	t.Parallel()
	a := pcmAudio{data: make([]byte, 16000), sampleRate: 16000, channels: 1}
	if got := a.duration(); got != 500*time.Millisecond {
		t.Errorf("duration = %s, want 500ms", got)
	}
	if got := (pcmAudio{}).duration(); got != 0 {
		t.Errorf("zero format duration = %s", got)
	}
}

func TestComputeRMS(t *testing.T) {
	t.Parallel()
	if got := computeRMS(nil); got != 0 {
		t.Errorf("computeRMS(nil) = %v", got)
	}
	buf := make([]byte, 4)
	putSample(buf[0:], 3)
	putSample(buf[2:], -3)
	if got := computeRMS(buf); got != 3 {
		t.Errorf("computeRMS = %v, want 3", got)
	}
}

// putSample writes v as a little-endian 16-bit PCM sample.
func putSample(b []byte, v int16) {
	binary.LittleEndian.PutUint16(b, uint16(v))
}
