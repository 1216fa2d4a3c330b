package upload

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ecoctf/platform/internal/common"
)

const (
	maxArchiveEntries      = 1000
	maxArchiveUncompressed = 100 * 1024 * 1024
)

// CheckArchive enforces the container limits on an uploaded zip file:
// a bounded entry count, a bounded aggregate uncompressed size, no
// directory traversal in entry names and no denylisted entry types.
func CheckArchive(content []byte) error {
	r, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return fmt.Errorf("%w: invalid zip file", common.ErrValidation)
	}

	if len(r.File) > maxArchiveEntries {
		return fmt.Errorf("%w: zip file contains too many files", common.ErrValidation)
	}

	var totalSize uint64
	for _, f := range r.File {
		// Header sizes are attacker-controlled; compare before adding so
		// the running total cannot wrap around.
		if f.UncompressedSize64 > maxArchiveUncompressed ||
			totalSize > maxArchiveUncompressed-f.UncompressedSize64 {
			return fmt.Errorf("%w: zip file too large when uncompressed", common.ErrValidation)
		}
		totalSize += f.UncompressedSize64
		if strings.Contains(f.Name, "../") || strings.Contains(f.Name, `..\`) {
			return fmt.Errorf("%w: zip file contains directory traversal", common.ErrValidation)
		}
		if !archiveEntryAllowed(f.Name) {
			return fmt.Errorf("%w: zip file contains dangerous file types", common.ErrValidation)
		}
	}
	return nil
}
