package ytdlp

// Info is the subset of a yt-dlp info document the service reads. Every
// field is optional; nil means yt-dlp did not report it.
type Info struct {
	ID         *string     `json:"id"`
	Title      *string     `json:"title"`
	Duration   *float64    `json:"duration"`
	Uploader   *string     `json:"uploader"`
	Thumbnail  *string     `json:"thumbnail"`
	Thumbnails []Thumbnail `json:"thumbnails"`
	Formats    []Format    `json:"formats"`
	Ext        *string     `json:"ext"`

	// Filename is the path prepared from the output template. Older
	// releases only emit the underscored key.
	Filename       *string `json:"filename"`
	LegacyFilename *string `json:"_filename"`
}

// PreparedFilename returns the output path yt-dlp reported, or "".
func (i *Info) PreparedFilename() string {
	switch {
	case i.Filename != nil && *i.Filename != "":
		return *i.Filename
	case i.LegacyFilename != nil && *i.LegacyFilename != "":
		return *i.LegacyFilename
	}
	return ""
}

// Thumbnail is one entry of the thumbnail list.
type Thumbnail struct {
	URL    *string `json:"url"`
	ID     *string `json:"id"`
	Height *int    `json:"height"`
	Width  *int    `json:"width"`
}

// Format is one entry of the format list.
type Format struct {
	FormatID       *string  `json:"format_id"`
	Format         *string  `json:"format"`
	FormatNote     *string  `json:"format_note"`
	Ext            *string  `json:"ext"`
	Filesize       *float64 `json:"filesize"`
	FilesizeApprox *float64 `json:"filesize_approx"`
	Height         *int     `json:"height"`
	Width          *int     `json:"width"`
	FPS            *float64 `json:"fps"`
	VCodec         *string  `json:"vcodec"`
	ACodec         *string  `json:"acodec"`
	ABR            *float64 `json:"abr"`
	TBR            *float64 `json:"tbr"`
	ASR            *int     `json:"asr"`
	Protocol       *string  `json:"protocol"`
	Container      *string  `json:"container"`
	Quality        *float64 `json:"quality"`
}
