package domain

import (
	"regexp"
	"strings"
)

// videoURLPattern recognises the hosting domains, the watch/embed/v/shorts
// path shapes and an 11-character video token. The token must end the URL or
// be followed by one of & = % ?, so 12-character tokens do not match.
var videoURLPattern = regexp.MustCompile(
	`^(https?://)?(www\.)?(youtube|youtu|youtube-nocookie)\.(com|be)/` +
		`(watch\?v=|embed/|v/|shorts/|.+\?v=)?([^&=%?]{11})([&=%?].*)?$`,
)

// IsValidVideoURL reports whether url is an accepted video URL.
func IsValidVideoURL(url string) bool {
	if url == "" {
		return false
	}
	return videoURLPattern.MatchString(url)
}

// RequireVideoURL trims raw and checks it is a usable video URL.
func RequireVideoURL(raw string) (string, error) {
	url := strings.TrimSpace(raw)
	if url == "" {
		return "", ErrNoURL
	}
	if !IsValidVideoURL(url) {
		return "", ErrInvalidURL
	}
	return url, nil
}
