// Package export builds output filenames and resolves the JPEG encode that
// backs "export" — the same render pipeline run at full resolution, per
// spec.md §2's "Export follows the same pipeline at full resolution and
// encodes JPEG."
package export

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/literoom/engine/internal/engineerr"
)

// DefaultTemplate is spec.md §6's default filename template.
const DefaultTemplate = "{orig}_{seq:4}"

var tokenPattern = regexp.MustCompile(`\{([a-zA-Z]+)(?::(\d+))?\}`)

// LongEdgePreset is one of spec.md §6's export resize presets, in pixels of
// the output image's longer edge. Zero means "original" — no resize.
type LongEdgePreset int

const (
	PresetOriginal LongEdgePreset = 0
	Preset2048     LongEdgePreset = 2048
	Preset3840     LongEdgePreset = 3840
	Preset5120     LongEdgePreset = 5120
)

// Params names the inputs a filename template substitutes.
type Params struct {
	OriginalBasename string // without extension
	Sequence         int
	CaptureTime      *time.Time
	FileModTime      time.Time
}

// Render expands template against params, returning the filename stem
// (without extension). Unknown tokens are a configuration error, per
// spec.md §6.
func Render(template string, params Params) (string, error) {
	var outerErr error
	result := tokenPattern.ReplaceAllStringFunc(template, func(match string) string {
		groups := tokenPattern.FindStringSubmatch(match)
		name, arg := groups[1], groups[2]
		switch name {
		case "orig":
			return params.OriginalBasename
		case "seq":
			width := 1
			if arg != "" {
				w, err := strconv.Atoi(arg)
				if err != nil {
					outerErr = engineerr.Wrap(engineerr.InvalidFormat, "invalid {seq:N} width", err)
					return match
				}
				width = w
			}
			return fmt.Sprintf("%0*d", width, params.Sequence)
		case "date":
			t := params.FileModTime
			if params.CaptureTime != nil {
				t = *params.CaptureTime
			}
			return t.Format("2006-01-02")
		default:
			outerErr = engineerr.New(engineerr.InvalidFormat, "unknown filename template token: {"+name+"}")
			return match
		}
	})
	if outerErr != nil {
		return "", outerErr
	}
	if strings.TrimSpace(result) == "" {
		return "", engineerr.New(engineerr.InvalidFormat, "filename template produced an empty name")
	}
	return result, nil
}

// Validate reports whether template uses only known tokens, without
// requiring a concrete Params — used to reject a bad template at
// configuration time rather than at the first export.
func Validate(template string) error {
	_, err := Render(template, Params{OriginalBasename: "x", Sequence: 0, FileModTime: time.Unix(0, 0)})
	return err
}
