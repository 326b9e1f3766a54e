package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const hashLength = 8

// FilenameVars are the values substituted into an output filename template
type FilenameVars struct {
	// Name is the entry point or source file name without extension
	Name string
	// Ext is the extension without the leading dot
	Ext string
	// Content is hashed for [contenthash]
	Content []byte
	// BuildHash replaces [hash], falls back to the content hash when empty
	BuildHash string
}

// ExpandFilename fills the [name], [ext], [contenthash] and [hash]
// placeholders of a filename template.
func ExpandFilename(template string, vars FilenameVars) string {
	contentHash := ContentHash(vars.Content)
	buildHash := cond(vars.BuildHash == "", contentHash, vars.BuildHash)

	return strings.NewReplacer(
		"[name]", vars.Name,
		"[ext]", vars.Ext,
		"[contenthash]", contentHash,
		"[chunkhash]", contentHash,
		"[hash]", buildHash,
	).Replace(template)
}

// ContentHash returns the short hex digest used in cache-busting filenames
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:hashLength]
}

// splitName returns a file's base name without extension and the extension without dot
func splitName(path string) (string, string) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext), strings.TrimPrefix(ext, ".")
}
