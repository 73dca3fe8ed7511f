package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	statex "github.com/tanpawarit/laia-quote-agent/agent/state"
)

const LocalDisk = "local"

// FileStore keeps uploaded aforo spreadsheets.
type FileStore interface {
	// Put stores r under a fresh name with ext and returns its reference.
	Put(ctx context.Context, ext string, r io.Reader) (statex.FileRef, error)
	// Path resolves ref to a readable local path.
	Path(ref statex.FileRef) (string, error)
}

// DirStore writes uploads below a root directory.
type DirStore struct {
	root string
}

var _ FileStore = (*DirStore)(nil)

func NewDirStore(root string) (*DirStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("upload dir is required")
	}
	if err := os.MkdirAll(filepath.Join(root, "aforos"), 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DirStore{root: root}, nil
}

func (d *DirStore) Put(ctx context.Context, ext string, r io.Reader) (statex.FileRef, error) {
	if err := ctx.Err(); err != nil {
		return statex.FileRef{}, err
	}
	rel := filepath.ToSlash(filepath.Join("aforos", uuid.NewString()+ext))
	full := filepath.Join(d.root, filepath.FromSlash(rel))

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return statex.FileRef{}, fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return statex.FileRef{}, fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(full)
		return statex.FileRef{}, fmt.Errorf("close upload: %w", err)
	}
	return statex.FileRef{Disk: LocalDisk, Path: rel}, nil
}

func (d *DirStore) Path(ref statex.FileRef) (string, error) {
	if ref.Disk != "" && ref.Disk != LocalDisk {
		return "", fmt.Errorf("unsupported disk %q", ref.Disk)
	}
	clean := filepath.Clean(filepath.FromSlash(ref.Path))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid upload path %q", ref.Path)
	}
	return filepath.Join(d.root, clean), nil
}
