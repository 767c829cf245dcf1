package objectstore

import (
	"context"
	"fmt"
	"os"

	"github.com/book-expert/logger"
	"github.com/book-expert/specter-content/internal/core"
)

// Mirror copies local artifacts into an object store. A nil store makes
// every call a no-op. Mirroring never fails the caller: upload errors are
// logged as warnings.
type Mirror struct {
	store core.ObjectStore
	log   *logger.Logger
}

// NewMirror returns a mirror backed by store, which may be nil.
func NewMirror(store core.ObjectStore, log *logger.Logger) *Mirror {
	return &Mirror{store: store, log: log}
}

// Enabled reports whether uploads go anywhere.
func (m *Mirror) Enabled() bool {
	return m != nil && m.store != nil
}

// Bytes uploads data under key.
func (m *Mirror) Bytes(ctx context.Context, key string, data []byte) {
	if !m.Enabled() {
		return
	}

	err := m.store.Upload(ctx, key, data)
	if err != nil {
		m.log.Warn("Artifact mirror upload of %s failed: %v", key, err)

		return
	}

	m.log.Info("Mirrored %s (%d bytes)", key, len(data))
}

// File uploads the file at localPath under key.
func (m *Mirror) File(ctx context.Context, key, localPath string) {
	if !m.Enabled() {
		return
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		m.log.Warn("Artifact mirror skipped %s: %v", key, fmt.Errorf("read %s: %w", localPath, err))

		return
	}

	m.Bytes(ctx, key, data)
}
