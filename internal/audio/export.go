package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/book-expert/specter-content/internal/fsutil"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// DefaultFFmpegPath is the encoder binary used for MP3 export.
const DefaultFFmpegPath = "ffmpeg"

const (
	wavPCMFormat   = 1
	mp3Codec       = "libmp3lame"
	tempWAVPattern = "specter-export-*.wav"
	tempMP3Pattern = ".partial-*.mp3"
)

// Export errors.
var (
	ErrNotSeekable = errors.New("wav export needs a seekable writer")
	ErrEncoder     = errors.New("mp3 encoder failed")
)

// Exporter writes segments to disk. MP3 output is encoded by an external
// ffmpeg binary.
type Exporter struct {
	FFmpegPath string
}

// Export writes seg to path in the format and quality given by q. The file
// appears at path only once it is complete.
func (e Exporter) Export(ctx context.Context, seg *Segment, path string, q Quality) error {
	err := q.Validate()
	if err != nil {
		return err
	}

	err = fsutil.EnsureDir(filepath.Dir(path))
	if err != nil {
		return err
	}

	out := seg
	if seg.rate != q.SampleRate {
		out = seg.Resample(q.SampleRate)
	}

	switch q.Format {
	case FormatWAV:
		return fsutil.WriteFileAtomic(path, func(w io.Writer) error {
			return encodeWAV(w, out, q)
		})
	case FormatMP3:
		return e.exportMP3(ctx, out, path, q)
	default:
		return fmt.Errorf(errFmtFormat, ErrUnsupportedFormat, q.Format)
	}
}

// ExportFile infers the format from the extension of path and exports
// with the default quality for it.
func (e Exporter) ExportFile(ctx context.Context, seg *Segment, path, bitrate string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	q := NewDefaultQuality(format)
	q.SampleRate = seg.rate

	if bitrate != "" {
		q.Bitrate = bitrate
	}

	return e.Export(ctx, seg, path, q)
}

func encodeWAV(w io.Writer, seg *Segment, q Quality) error {
	ws, ok := w.(io.WriteSeeker)
	if !ok {
		return ErrNotSeekable
	}

	encoder := wav.NewEncoder(ws, q.SampleRate, q.BitDepth, q.Channels, wavPCMFormat)

	err := encoder.Write(toIntBuffer(seg, q))
	if err != nil {
		return fmt.Errorf("failed to encode wav: %w", err)
	}

	err = encoder.Close()
	if err != nil {
		return fmt.Errorf("failed to finish wav: %w", err)
	}

	return nil
}

// toIntBuffer quantizes the mono samples and copies them to every channel.
func toIntBuffer(seg *Segment, q Quality) *goaudio.IntBuffer {
	maxValue := float64(int64(1)<<(q.BitDepth-1) - 1)
	data := make([]int, 0, len(seg.samples)*q.Channels)

	for _, v := range seg.samples {
		sample := int(math.Round(clip(v) * maxValue))
		if q.BitDepth == BitDepth8 {
			sample += eightBitBias
		}

		for range q.Channels {
			data = append(data, sample)
		}
	}

	return &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: q.Channels, SampleRate: q.SampleRate},
		Data:           data,
		SourceBitDepth: q.BitDepth,
	}
}

func (e Exporter) exportMP3(ctx context.Context, seg *Segment, path string, q Quality) error {
	wavFile, err := os.CreateTemp("", tempWAVPattern)
	if err != nil {
		return fmt.Errorf("failed to create intermediate wav: %w", err)
	}

	wavPath := wavFile.Name()
	defer os.Remove(wavPath)

	pcm := q
	pcm.Format = FormatWAV
	pcm.BitDepth = BitDepth16

	encodeErr := encodeWAV(wavFile, seg, pcm)
	closeErr := wavFile.Close()

	if encodeErr != nil {
		return encodeErr
	}

	if closeErr != nil {
		return fmt.Errorf("failed to close intermediate wav: %w", closeErr)
	}

	mp3File, err := os.CreateTemp(filepath.Dir(path), tempMP3Pattern)
	if err != nil {
		return fmt.Errorf("failed to create temp mp3: %w", err)
	}

	mp3Path := mp3File.Name()
	_ = mp3File.Close()

	err = e.runFFmpeg(ctx, wavPath, mp3Path, q)
	if err != nil {
		_ = os.Remove(mp3Path)

		return err
	}

	err = os.Chmod(mp3Path, fsutil.FilePermissions)
	if err == nil {
		err = os.Rename(mp3Path, path)
	}

	if err != nil {
		_ = os.Remove(mp3Path)

		return fmt.Errorf("failed to move mp3 into place: %w", err)
	}

	return nil
}

func (e Exporter) runFFmpeg(ctx context.Context, input, output string, q Quality) error {
	binary := e.FFmpegPath
	if binary == "" {
		binary = DefaultFFmpegPath
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", input,
		"-codec:a", mp3Codec,
		"-b:a", q.Bitrate,
		"-ar", fmt.Sprint(q.SampleRate),
		"-ac", fmt.Sprint(q.Channels),
		"-f", string(FormatMP3),
		output,
	}

	cmd := exec.CommandContext(ctx, binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return fmt.Errorf("%w: %w: %s", ErrEncoder, err, strings.TrimSpace(stderr.String()))
	}

	return nil
}
