package domain

import "sort"

// allowedExtensions are the containers offered to clients.
var allowedExtensions = map[string]bool{
	"mp4":  true,
	"webm": true,
	"m4a":  true,
	"mp3":  true,
	"opus": true,
}

// AllowedExtension reports whether ext is a user-selectable container.
func AllowedExtension(ext string) bool {
	return allowedExtensions[ext]
}

// FormatGroup orders descriptors by which tracks they carry.
type FormatGroup int

const (
	GroupProgressive FormatGroup = iota
	GroupVideoOnly
	GroupAudioOnly
)

// FormatDescriptor is one candidate encoding of a video. Nil pointers mean
// the engine did not report the field.
type FormatDescriptor struct {
	FormatID     string   `json:"format_id"`
	Ext          string   `json:"ext"`
	Filesize     *int64   `json:"filesize"`
	Height       *int     `json:"height"`
	Width        *int     `json:"width"`
	FPS          *float64 `json:"fps"`
	VCodec       *string  `json:"vcodec"`
	ACodec       *string  `json:"acodec"`
	FormatNote   *string  `json:"format_note"`
	ABR          *float64 `json:"abr"`
	TBR          *float64 `json:"tbr"`
	ASR          *int     `json:"asr"`
	Protocol     *string  `json:"protocol"`
	Container    *string  `json:"container"`
	Progressive  bool     `json:"progressive"`
	VideoOnly    bool     `json:"video_only"`
	AudioOnly    bool     `json:"audio_only"`
	QualityLabel *string  `json:"quality_label"`
}

// CodecPresent reports whether a codec field names an actual track.
func CodecPresent(codec *string) bool {
	return codec != nil && *codec != "" && *codec != "none"
}

// Classify sets the progressive/video-only/audio-only flags from the codecs.
// It returns false when the descriptor carries neither track.
func (f *FormatDescriptor) Classify() bool {
	hasVideo := CodecPresent(f.VCodec)
	hasAudio := CodecPresent(f.ACodec)

	f.Progressive = hasVideo && hasAudio
	f.VideoOnly = hasVideo && !hasAudio
	f.AudioOnly = hasAudio && !hasVideo

	return hasVideo || hasAudio
}

// Group returns the sort group of the descriptor.
func (f *FormatDescriptor) Group() FormatGroup {
	switch {
	case f.Progressive:
		return GroupProgressive
	case f.VideoOnly:
		return GroupVideoOnly
	default:
		return GroupAudioOnly
	}
}

func (f *FormatDescriptor) heightOrZero() int {
	if f.Height == nil {
		return 0
	}
	return *f.Height
}

func (f *FormatDescriptor) abrOrZero() float64 {
	if f.ABR == nil {
		return 0
	}
	return *f.ABR
}

// SortFormats orders descriptors progressive first, then video-only, then
// audio-only; within a group by descending height, then descending audio
// bitrate. Missing height or bitrate counts as zero. The sort is stable.
func SortFormats(formats []FormatDescriptor) {
	sort.SliceStable(formats, func(i, j int) bool {
		a, b := &formats[i], &formats[j]

		if ga, gb := a.Group(), b.Group(); ga != gb {
			return ga < gb
		}
		if ha, hb := a.heightOrZero(), b.heightOrZero(); ha != hb {
			return ha > hb
		}
		return a.abrOrZero() > b.abrOrZero()
	})
}
