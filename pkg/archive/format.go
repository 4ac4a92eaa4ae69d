package archive

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/arc-language/bake/pkg/core"
)

// Format identifies an archive container and its compression
type Format int

const (
	FormatUnknown Format = iota
	FormatZip
	FormatTar
	FormatTarGz
	FormatTarBz2
	FormatTarXz
	FormatTarZst
	FormatNar
	FormatNarXz
)

var formatNames = map[Format]string{
	FormatZip:    "zip",
	FormatTar:    "tar",
	FormatTarGz:  "tar.gz",
	FormatTarBz2: "tar.bz2",
	FormatTarXz:  "tar.xz",
	FormatTarZst: "tar.zst",
	FormatNar:    "nar",
	FormatNarXz:  "nar.xz",
}

// String returns the canonical suffix without the leading dot
func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "unknown"
}

// suffixes is checked in order, so longer suffixes come first
var suffixes = []struct {
	suffix string
	format Format
}{
	{".tar.gz", FormatTarGz},
	{".tgz", FormatTarGz},
	{".tar.bz2", FormatTarBz2},
	{".tbz2", FormatTarBz2},
	{".tar.xz", FormatTarXz},
	{".txz", FormatTarXz},
	{".tar.zst", FormatTarZst},
	{".nar.xz", FormatNarXz},
	{".zip", FormatZip},
	{".tar", FormatTar},
	{".nar", FormatNar},
}

// DetectFormat picks the archive format from the file name suffix
func DetectFormat(name string) (Format, error) {
	lower := strings.ToLower(filepath.Base(name))
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return s.format, nil
		}
	}
	return FormatUnknown, fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, filepath.Base(name))
}
