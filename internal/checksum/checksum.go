// Package checksum fingerprints the protected portion of a notebook cell.
// The digest covers the cell's source, type, kind and locked flag and
// nothing else, so re-executing a notebook (which touches outputs and
// execution counters) never changes it, while any edit to protected content
// does.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/edulabs-io/gradebook-api/internal/cellmeta"
)

// Compute returns the hex digest of a cell's protected content.
func Compute(content string, kind cellmeta.CellKind, cellType cellmeta.CellType, locked bool) string {
	h := sha256.New()
	h.Write([]byte(string(cellType)))
	h.Write([]byte{0})
	h.Write([]byte(string(kind)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatBool(locked)))
	h.Write([]byte{0})
	h.Write([]byte(Normalize(content)))
	return hex.EncodeToString(h.Sum(nil))
}

// Matches reports whether freshly recomputing the digest over the given
// content reproduces the recorded one.
func Matches(recorded, content string, kind cellmeta.CellKind, cellType cellmeta.CellType, locked bool) bool {
	return recorded != "" && recorded == Compute(content, kind, cellType, locked)
}

// Normalize canonicalises cell source before hashing: line endings become
// \n and trailing whitespace per line is dropped. Editors disagree on both
// and neither is a meaningful edit.
func Normalize(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
