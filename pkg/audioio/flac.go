package audioio

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// MimeFLAC is the content type of EncodeFLAC output.
const MimeFLAC = "audio/flac"

// FLACBlockSize is the number of samples per FLAC frame.
const FLACBlockSize = 4096

// ErrNoAudio is returned when there is nothing to encode.
var ErrNoAudio = errors.New("audioio: no audio captured")

// EncodeFLAC packages mono PCM16 samples as a FLAC stream.
func EncodeFLAC(samples []int16, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, ErrNoAudio
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("audioio: invalid sample rate %d", sampleRate)
	}

	var buf bytes.Buffer
	info := &meta.StreamInfo{
		BlockSizeMin:  FLACBlockSize,
		BlockSizeMax:  FLACBlockSize,
		SampleRate:    uint32(sampleRate),
		NChannels:     1,
		BitsPerSample: 16,
		NSamples:      uint64(len(samples)),
	}
	enc, err := flac.NewEncoder(&buf, info)
	if err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}

	for off := 0; off < len(samples); off += FLACBlockSize {
		end := min(off+FLACBlockSize, len(samples))
		block := samples[off:end]

		wide := make([]int32, len(block))
		for i, s := range block {
			wide[i] = int32(s)
		}

		f := &frame.Frame{
			Header: frame.Header{
				BlockSize:     uint16(len(block)),
				SampleRate:    uint32(sampleRate),
				Channels:      frame.ChannelsMono,
				BitsPerSample: 16,
			},
			Subframes: []*frame.Subframe{{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   wide,
				NSamples:  len(block),
			}},
		}
		if err := enc.WriteFrame(f); err != nil {
			return nil, fmt.Errorf("writing flac frame: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("closing flac encoder: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeChunksFLAC joins captured chunks and encodes them with EncodeFLAC.
// Stereo chunks are downmixed; the sample rate of the first chunk wins.
func EncodeChunksFLAC(chunks []AudioChunk) ([]byte, error) {
	if len(chunks) == 0 {
		return nil, ErrNoAudio
	}
	rate := chunks[0].SampleRate
	var samples []int16
	for _, c := range chunks {
		s := c.Samples
		if c.Channels == 2 {
			s = StereoToMono(s)
		}
		if c.SampleRate != rate && c.SampleRate > 0 {
			s = Resample(s, c.SampleRate, rate)
		}
		samples = append(samples, s...)
	}
	return EncodeFLAC(samples, rate)
}
