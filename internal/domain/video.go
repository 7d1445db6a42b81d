package domain

// VideoMetadata describes a video and the formats it can be downloaded in.
// It is rebuilt on every request.
type VideoMetadata struct {
	ID          *string            `json:"id"`
	Title       *string            `json:"title"`
	Duration    *float64           `json:"duration"`
	Uploader    *string            `json:"uploader"`
	Thumbnail   *string            `json:"thumbnail"`
	Formats     []FormatDescriptor `json:"formats"`
	OriginalURL string             `json:"original_url"`
}
