package audio

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type Kind string

const (
	KindUnknown Kind = ""
	KindAudio   Kind = "audio"
	KindVideo   Kind = "video"
)

var videoExts = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
}

var audioExts = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".aac":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".m4a":  true,
	".wma":  true,
	".aiff": true,
}

// checks if the file is a video based on extension
func IsVideoFile(path string) bool {
	return videoExts[strings.ToLower(filepath.Ext(path))]
}

// checks if the file is an audio file based on extension
func IsAudioFile(path string) bool {
	return audioExts[strings.ToLower(filepath.Ext(path))]
}

// checks if the file is either audio or video
func IsMediaFile(path string) bool {
	return IsAudioFile(path) || IsVideoFile(path)
}

// DetectKind sniffs the file content. Files whose content is not
// recognised fall back to their extension.
func DetectKind(path string) (Kind, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return KindUnknown, err
	}
	if k := KindOfMIME(mt.String()); k != KindUnknown {
		return k, nil
	}

	switch {
	case IsVideoFile(path):
		return KindVideo, nil
	case IsAudioFile(path):
		return KindAudio, nil
	}
	return KindUnknown, nil
}

// KindOfMIME classifies a MIME type string.
func KindOfMIME(mime string) Kind {
	mime = strings.ToLower(mime)
	switch {
	case strings.HasPrefix(mime, "audio/"):
		return KindAudio
	case strings.HasPrefix(mime, "video/"):
		return KindVideo
	case mime == "application/ogg":
		return KindAudio
	}
	return KindUnknown
}

// ExtensionForMIME returns the canonical extension for a MIME type, with
// the leading dot, or "" when unknown. Parameters such as charset are
// ignored.
func ExtensionForMIME(mime string) string {
	if strings.TrimSpace(mime) == "" {
		return ""
	}
	mt := mimetype.Lookup(mime)
	if mt == nil {
		return ""
	}
	return mt.Extension()
}
