package domain

import (
	"path/filepath"
	"strings"
)

// unsafeFilenameChars are rejected by at least one common filesystem.
var unsafeFilenameChars = strings.NewReplacer(
	`\`, "_",
	"/", "_",
	"*", "_",
	"?", "_",
	":", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// SanitizeTitle replaces filesystem-hostile characters in title with
// underscores. An empty title becomes "video".
func SanitizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "video"
	}
	return unsafeFilenameChars.Replace(title)
}

// SafeFilename builds the attachment name for a downloaded artifact from the
// video title and the artifact path.
func SafeFilename(title, path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		ext = "mp4"
	}
	return SanitizeTitle(title) + "." + ext
}
