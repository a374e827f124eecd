package catalog

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/literoom/engine/internal/engineerr"
)

// PermissionState mirrors a browser File System Access API handle's
// permission lifecycle, the host-environment concept spec.md §4.6
// abstracts behind DirectoryHandle.
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
	PermissionPrompt  PermissionState = "prompt"
)

// DirectoryHandle is the only point of coupling between the catalog and the
// host filesystem, per spec.md §4.6: "A pluggable DirectoryHandle interface
// (open/list/read/writeFile/queryPermission/requestPermission) is the only
// point of coupling to the host environment." A desktop build backs it with
// the local filesystem (below); a sandboxed build could back it with a
// capability-scoped handle instead without the rest of this package
// changing.
type DirectoryHandle interface {
	Open(path string) (fs.File, error)
	List(path string) ([]fs.DirEntry, error)
	Read(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	QueryPermission() (PermissionState, error)
	RequestPermission() (PermissionState, error)
}

// LocalDirectoryHandle implements DirectoryHandle directly against the OS
// filesystem, scoped to root. Desktop builds run with ambient filesystem
// access, so QueryPermission/RequestPermission are trivially always
// granted while os.Stat finds root (denied once it is gone) — the interface
// exists for parity with sandboxed hosts, not because this implementation
// needs to negotiate anything.
type LocalDirectoryHandle struct {
	root string
}

// NewLocalDirectoryHandle scopes a handle to root, verifying it exists and
// is a directory.
func NewLocalDirectoryHandle(root string) (*LocalDirectoryHandle, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.NotFound, "directory handle root", err)
	}
	if !info.IsDir() {
		return nil, engineerr.New(engineerr.InvalidFormat, "directory handle root is not a directory: "+root)
	}
	return &LocalDirectoryHandle{root: root}, nil
}

func (h *LocalDirectoryHandle) resolve(path string) (string, error) {
	full := filepath.Join(h.root, path)
	rel, err := filepath.Rel(h.root, full)
	if err != nil || rel == ".." || (len(rel) >= 3 && rel[:3] == "../") {
		return "", engineerr.New(engineerr.PermissionDenied, "path escapes directory handle root: "+path)
	}
	return full, nil
}

func (h *LocalDirectoryHandle) Open(path string) (fs.File, error) {
	full, err := h.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.NotFound, "open file", err)
	}
	return f, nil
}

func (h *LocalDirectoryHandle) List(path string) ([]fs.DirEntry, error) {
	full, err := h.resolve(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.NotFound, "list directory", err)
	}
	return entries, nil
}

func (h *LocalDirectoryHandle) Read(path string) ([]byte, error) {
	f, err := h.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Internal, "read file", err)
	}
	return data, nil
}

func (h *LocalDirectoryHandle) WriteFile(path string, data []byte) error {
	full, err := h.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return engineerr.Wrap(engineerr.Internal, "create parent directory", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return engineerr.Wrap(engineerr.Internal, "write file", err)
	}
	return nil
}

func (h *LocalDirectoryHandle) QueryPermission() (PermissionState, error) {
	if _, err := os.Stat(h.root); err != nil {
		return PermissionDenied, nil
	}
	return PermissionGranted, nil
}

func (h *LocalDirectoryHandle) RequestPermission() (PermissionState, error) {
	return h.QueryPermission()
}
