package dictionary

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// FileFormat identifies a dictionary file layout.
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatBinary             // numbered binary chunk, dict_NNNN.bin
	FormatText               // plain word list
)

func (f FileFormat) String() string {
	switch f {
	case FormatBinary:
		return "binary chunk"
	case FormatText:
		return "text list"
	}
	return "unknown"
}

// FormatInfo describes one supported layout.
type FormatInfo struct {
	Format      FileFormat
	Description string
	Extension   string
	MinSize     int64
}

var supportedFormats = map[FileFormat]FormatInfo{
	FormatBinary: {
		Format:      FormatBinary,
		Description: "Chunked Binary Dictionary",
		Extension:   ".bin",
		MinSize:     4, // entry count header
	},
	FormatText: {
		Format:      FormatText,
		Description: "Plain Text Dictionary",
		Extension:   ".txt",
		MinSize:     1,
	},
}

// DetectFormat classifies a dictionary path by name alone.
func DetectFormat(path string) FileFormat {
	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasPrefix(base, "dict_") && strings.HasSuffix(base, ".bin"):
		return FormatBinary
	case strings.HasSuffix(base, ".txt"):
		return FormatText
	}
	return FormatUnknown
}

// ValidateFile checks that a dictionary file exists, meets its format's
// minimum size, and carries a sane header before any loading starts.
func ValidateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a dictionary", path)
	}

	format := DetectFormat(path)
	formatInfo, ok := supportedFormats[format]
	if !ok {
		return fmt.Errorf("unrecognized dictionary format for %s", path)
	}
	if info.Size() < formatInfo.MinSize {
		return fmt.Errorf("%s is too small (%d bytes) for a %s", path, info.Size(), formatInfo.Description)
	}

	if format == FormatBinary {
		return validateBinaryHeader(path)
	}
	return nil
}

func validateBinaryHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var count int32
	if err := binary.Read(f, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("failed to read header from %s: %w", path, err)
	}
	if count < 0 || count > maxEntries {
		return fmt.Errorf("implausible entry count %d in %s", count, path)
	}

	log.Debugf("Validated %s: %d declared entries", path, count)
	return nil
}
