package audio

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Default export settings.
const (
	DefaultBitDepth = 16
	DefaultChannels = 2
	DefaultBitrate  = "192k"
)

// Supported bit depths.
const (
	BitDepth8  = 8
	BitDepth16 = 16
	BitDepth24 = 24
	BitDepth32 = 32
)

// Quality validation limits.
const (
	MaxSampleRate = 192000
	MaxChannels   = 8
)

const (
	errFmtSampleRateRange = "%w: sample rate must be between 1 and %d Hz"
	errFmtBitDepthValues  = "%w: bit depth must be 8, 16, 24, or 32"
	errFmtChannelsRange   = "%w: channels must be between 1 and %d"
	errFmtBitrate         = "%w: bitrate must look like 192k, got %q"
	errFmtFormat          = "%w: unsupported format %q"
)

// Quality errors.
var (
	ErrInvalidQuality    = errors.New("invalid quality settings")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	bitratePattern       = regexp.MustCompile(`^[1-9][0-9]*k$`)
)

// Format is an export container.
type Format string

// Export formats.
const (
	FormatWAV Format = "wav"
	FormatMP3 Format = "mp3"
)

// FormatFromPath infers the export format from the file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))

	switch Format(ext) {
	case FormatWAV, FormatMP3:
		return Format(ext), nil
	default:
		return "", fmt.Errorf(errFmtFormat, ErrUnsupportedFormat, ext)
	}
}

// Quality holds export settings.
type Quality struct {
	Format     Format
	SampleRate int
	BitDepth   int
	Channels   int
	Bitrate    string
}

// NewDefaultQuality returns CD-quality stereo settings for format.
func NewDefaultQuality(format Format) Quality {
	return Quality{
		Format:     format,
		SampleRate: DefaultSampleRate,
		BitDepth:   DefaultBitDepth,
		Channels:   DefaultChannels,
		Bitrate:    DefaultBitrate,
	}
}

// Validate checks the settings are within supported bounds.
func (q Quality) Validate() error {
	if q.Format != FormatWAV && q.Format != FormatMP3 {
		return fmt.Errorf(errFmtFormat, ErrInvalidQuality, q.Format)
	}

	if q.SampleRate <= 0 || q.SampleRate > MaxSampleRate {
		return fmt.Errorf(errFmtSampleRateRange, ErrInvalidQuality, MaxSampleRate)
	}

	if !isSupportedBitDepth(q.BitDepth) {
		return fmt.Errorf(errFmtBitDepthValues, ErrInvalidQuality)
	}

	if q.Channels <= 0 || q.Channels > MaxChannels {
		return fmt.Errorf(errFmtChannelsRange, ErrInvalidQuality, MaxChannels)
	}

	if q.Format == FormatMP3 && !bitratePattern.MatchString(q.Bitrate) {
		return fmt.Errorf(errFmtBitrate, ErrInvalidQuality, q.Bitrate)
	}

	return nil
}

func isSupportedBitDepth(bitDepth int) bool {
	switch bitDepth {
	case BitDepth8, BitDepth16, BitDepth24, BitDepth32:
		return true
	default:
		return false
	}
}
