package audioio

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/mewkiz/flac"
)

func sineSamples(n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16((i%200 - 100) * 150)
	}
	return out
}

func decodeFLAC(t *testing.T, data []byte) ([]int16, uint32) {
	t.Helper()
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("flac.New: %v", err)
	}
	defer stream.Close()

	var out []int16
	for {
		f, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ParseNext: %v", err)
		}
		for _, s := range f.Subframes[0].Samples {
			out = append(out, int16(s))
		}
	}
	return out, stream.Info.SampleRate
}

func TestEncodeFLAC_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		samples int
	}{
		{"partial block", FLACBlockSize / 4},
		{"exact block", FLACBlockSize},
		{"several blocks", FLACBlockSize*3 + 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := sineSamples(tt.samples)
			data, err := EncodeFLAC(in, 16000)
			if err != nil {
				t.Fatalf("EncodeFLAC: %v", err)
			}
			if string(data[:4]) != "fLaC" {
				t.Fatal("output does not start with FLAC magic")
			}

			got, rate := decodeFLAC(t, data)
			if rate != 16000 {
				t.Errorf("sample rate = %d, want 16000", rate)
			}
			if len(got) != len(in) {
				t.Fatalf("decoded %d samples, want %d", len(got), len(in))
			}
			for i := range in {
				if got[i] != in[i] {
					t.Fatalf("sample %d = %d, want %d", i, got[i], in[i])
				}
			}
		})
	}
}

func TestEncodeFLAC_Empty(t *testing.T) {
	if _, err := EncodeFLAC(nil, 16000); !errors.Is(err, ErrNoAudio) {
		t.Errorf("expected ErrNoAudio, got %v", err)
	}
	if _, err := EncodeChunksFLAC(nil); !errors.Is(err, ErrNoAudio) {
		t.Errorf("expected ErrNoAudio for no chunks, got %v", err)
	}
	if _, err := EncodeFLAC([]int16{1}, 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestEncodeChunksFLAC_DownmixesStereo(t *testing.T) {
	chunks := []AudioChunk{
		{Samples: []int16{100, 100, 200, 200}, SampleRate: 16000, Channels: 2},
		{Samples: []int16{300, 400}, SampleRate: 16000, Channels: 1},
	}

	data, err := EncodeChunksFLAC(chunks)
	if err != nil {
		t.Fatalf("EncodeChunksFLAC: %v", err)
	}

	got, _ := decodeFLAC(t, data)
	want := []int16{100, 200, 300, 400}
	if len(got) != len(want) {
		t.Fatalf("decoded %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}
