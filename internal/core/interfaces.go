// Package core defines the collaborator interfaces shared by the SPECTER content tools.
package core

import (
	"context"
	"io"
)

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// VoiceSettings holds the synthesis tuning for a single utterance.
type VoiceSettings struct {
	Stability  float64
	Similarity float64
}

// Voice describes a voice available to the speech-synthesis account.
type Voice struct {
	ID       string
	Name     string
	Category string
	Labels   map[string]string
}

// SpeechSynthesizer converts text to audio.
type SpeechSynthesizer interface {
	// Synthesize streams the audio for text spoken by voiceID into dst and
	// returns the number of bytes written.
	Synthesize(ctx context.Context, dst io.Writer, text, voiceID string, settings VoiceSettings) (int64, error)
	ListVoices(ctx context.Context) ([]Voice, error)
}

// ImageSynthesizer requests an image for a prompt and returns a transient download URL.
type ImageSynthesizer interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// ImageDownloader fetches the bytes behind a transient image URL.
type ImageDownloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// EvidenceRecord is a row of the remote evidence table.
type EvidenceRecord struct {
	ID       string
	Title    string
	ImageURL *string
}

// EvidenceStore reads and updates evidence rows.
type EvidenceStore interface {
	ListEvidence(ctx context.Context) ([]EvidenceRecord, error)
	UpdateImageURL(ctx context.Context, id, imageURL string) error
}

// Pacer spaces out paid requests.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}
