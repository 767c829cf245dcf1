package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// ErrUndecodable is returned when a file is neither valid WAV nor MP3.
var ErrUndecodable = errors.New("audio data could not be decoded")

const (
	riffHeaderLen = 12
	mp3Channels   = 2
	mp3FrameBytes = 4
	int16Scale    = 32768.0
	eightBitBias  = 128
)

// DecodeFile reads the clip at path and returns it as a mono segment at rate.
func DecodeFile(path string, rate int) (*Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	seg, err := Decode(data, rate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return seg, nil
}

// Decode sniffs data for a RIFF/WAVE header and decodes it as WAV, or as
// MP3 otherwise. Multichannel audio is averaged down to mono and the result
// is resampled to rate.
func Decode(data []byte, rate int) (*Segment, error) {
	var (
		seg *Segment
		err error
	)

	if isWAV(data) {
		seg, err = decodeWAV(data)
	} else {
		seg, err = decodeMP3(data)
	}

	if err != nil {
		return nil, err
	}

	return seg.Resample(rate), nil
}

func isWAV(data []byte) bool {
	return len(data) >= riffHeaderLen &&
		bytes.Equal(data[0:4], []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WAVE"))
}

func decodeWAV(data []byte) (*Segment, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%w: invalid wav file", ErrUndecodable)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUndecodable, err)
	}

	channels := buf.Format.NumChannels
	if channels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: wav header has no format", ErrUndecodable)
	}

	bitDepth := int(decoder.BitDepth)
	if !isSupportedBitDepth(bitDepth) {
		return nil, fmt.Errorf("%w: unsupported wav bit depth %d", ErrUndecodable, bitDepth)
	}

	scale := float64(int64(1) << (bitDepth - 1))
	frames := len(buf.Data) / channels
	samples := make([]float64, frames)

	for frame := range frames {
		sum := 0.0

		for ch := range channels {
			v := buf.Data[frame*channels+ch]
			if bitDepth == 8 {
				v -= eightBitBias
			}

			sum += float64(v) / scale
		}

		samples[frame] = clip(sum / float64(channels))
	}

	return NewSegment(samples, buf.Format.SampleRate), nil
}

func decodeMP3(data []byte) (*Segment, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUndecodable, err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUndecodable, err)
	}

	frames := len(pcm) / mp3FrameBytes
	samples := make([]float64, frames)

	for frame := range frames {
		offset := frame * mp3FrameBytes
		left := int16(uint16(pcm[offset]) | uint16(pcm[offset+1])<<8)
		right := int16(uint16(pcm[offset+2]) | uint16(pcm[offset+3])<<8)
		samples[frame] = (float64(left) + float64(right)) / (mp3Channels * int16Scale)
	}

	return NewSegment(samples, decoder.SampleRate()), nil
}
