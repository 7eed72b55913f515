// Package upload is the file-storage collaborator for message image
// attachments.
package upload

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/nishio/dealroom/internal/fault"
)

// RawFile is an uploaded file before validation.
type RawFile struct {
	Name string
	Data []byte
}

// Store validates and persists image attachments. The message log
// uploads through this interface; a failed upload skips that image
// without failing the send.
type Store interface {
	Validate(f RawFile) error
	Save(f RawFile) (storagePath string, err error)
}

// allowedImageTypes is the accepted MIME set, checked by content
// sniffing rather than trusting the file name.
var allowedImageTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

// Local stores attachments on the local filesystem under Dir.
type Local struct {
	Dir      string
	MaxBytes int64
}

// NewLocal creates a Local store, creating the directory if needed.
func NewLocal(dir string, maxBytes int64) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload: create dir %s: %w", dir, err)
	}
	return &Local{Dir: dir, MaxBytes: maxBytes}, nil
}

// Validate checks the size ceiling and the allowed image MIME set.
func (l *Local) Validate(f RawFile) error {
	if len(f.Data) == 0 {
		return fault.Validationf("file %s is empty", f.Name)
	}
	if l.MaxBytes > 0 && int64(len(f.Data)) > l.MaxBytes {
		return fault.Validationf("file %s exceeds %d bytes", f.Name, l.MaxBytes)
	}
	mt := mimetype.Detect(f.Data)
	for _, allowed := range allowedImageTypes {
		if mt.Is(allowed) {
			return nil
		}
	}
	return fault.Validationf("file %s has unsupported type %s", f.Name, mt.String())
}

// Save validates the file and writes it under a fresh uuid-derived name,
// returning the storage path relative to Dir.
func (l *Local) Save(f RawFile) (string, error) {
	if err := l.Validate(f); err != nil {
		return "", err
	}
	name := uuid.NewString() + mimetype.Detect(f.Data).Extension()
	path := filepath.Join(l.Dir, name)
	if err := os.WriteFile(path, f.Data, 0o644); err != nil {
		return "", fmt.Errorf("upload: write %s: %w", path, err)
	}
	return name, nil
}
