package export

import (
	"fmt"
	"path/filepath"
)

// Exists reports whether name is already taken in the destination
// directory — abstracted so ResolveCollision can be tested without a real
// DirectoryHandle.
type Exists func(name string) (bool, error)

// ResolveCollision returns a filename that does not collide in the
// destination, auto-suffixing "_1", "_2", … before the extension per
// spec.md §6's collision policy. stem/ext are passed separately so the
// suffix lands before the extension rather than after it.
func ResolveCollision(stem, ext string, exists Exists) (string, error) {
	candidate := stem + ext
	taken, err := exists(candidate)
	if err != nil {
		return "", err
	}
	if !taken {
		return candidate, nil
	}
	for n := 1; ; n++ {
		candidate = fmt.Sprintf("%s_%d%s", stem, n, ext)
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
}

// SplitName splits a filename into its stem and extension, with the
// extension including the leading dot (or empty if there is none).
func SplitName(filename string) (stem, ext string) {
	ext = filepath.Ext(filename)
	stem = filename[:len(filename)-len(ext)]
	return stem, ext
}
