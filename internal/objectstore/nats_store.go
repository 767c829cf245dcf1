// Package objectstore mirrors generated artifacts into a NATS JetStream
// object store bucket.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/book-expert/specter-content/internal/core"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Key prefixes for each artifact kind.
const (
	PrefixClips    = "clips"
	PrefixEvidence = "evidence"
	PrefixAudio    = "audio"
)

// ClipKey returns the object key for a voice clip.
func ClipKey(filename string) string { return path.Join(PrefixClips, filename) }

// EvidenceKey returns the object key for an evidence image.
func EvidenceKey(filename string) string { return path.Join(PrefixEvidence, filename) }

// AudioKey returns the object key for a mixed recording.
func AudioKey(filename string) string { return path.Join(PrefixAudio, filename) }

// NatsObjectStore implements core.ObjectStore using a JetStream object store.
type NatsObjectStore struct {
	bucket string
	store  jetstream.ObjectStore
}

var _ core.ObjectStore = (*NatsObjectStore)(nil)

// New creates the bucket, or binds to it when it already exists.
func New(ctx context.Context, js jetstream.JetStream, bucketName string) (*NatsObjectStore, error) {
	store, err := js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("SPECTER generated artifacts (%s).", bucketName),
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) {
			return nil, fmt.Errorf("failed to create object store bucket '%s': %w", bucketName, err)
		}

		store, err = js.ObjectStore(ctx, bucketName)
		if err != nil {
			return nil, fmt.Errorf("failed to bind to existing object store bucket '%s': %w", bucketName, err)
		}
	}

	return &NatsObjectStore{bucket: bucketName, store: store}, nil
}

// Connect dials the NATS server at url and opens the bucket. The returned
// close function drains the connection.
func Connect(ctx context.Context, url, bucketName string) (*NatsObjectStore, func(), error) {
	conn, err := nats.Connect(url, nats.Name("specter-content"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()

		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := New(ctx, js, bucketName)
	if err != nil {
		conn.Close()

		return nil, nil, err
	}

	closeFn := func() {
		_ = conn.Drain()
	}

	return store, closeFn, nil
}

// Download retrieves an object from the bucket.
func (n *NatsObjectStore) Download(ctx context.Context, key string) ([]byte, error) {
	data, err := n.store.GetBytes(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", key, n.bucket, err)
	}

	return data, nil
}

// Upload stores data under key, replacing any previous object.
func (n *NatsObjectStore) Upload(ctx context.Context, key string, data []byte) error {
	_, err := n.store.PutBytes(ctx, key, data)
	if err != nil {
		return fmt.Errorf("failed to put object '%s' to bucket '%s': %w", key, n.bucket, err)
	}

	return nil
}
