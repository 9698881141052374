package ingest

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"distill/internal/services"
)

// Kind classifies a source file for stage routing.
type Kind string

const (
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindDocument Kind = "document"
	KindImage    Kind = "image"
	KindWebpage  Kind = "webpage"
)

var kindByExtension = map[string]Kind{
	".mp4":  KindVideo,
	".mov":  KindVideo,
	".avi":  KindVideo,
	".mkv":  KindVideo,
	".webm": KindVideo,
	".flv":  KindVideo,

	".mp3":  KindAudio,
	".wav":  KindAudio,
	".m4a":  KindAudio,
	".flac": KindAudio,
	".ogg":  KindAudio,
	".aac":  KindAudio,

	".pdf":  KindDocument,
	".docx": KindDocument,
	".doc":  KindDocument,
	".pptx": KindDocument,
	".ppt":  KindDocument,
	".xlsx": KindDocument,
	".xls":  KindDocument,
	".txt":  KindDocument,
	".md":   KindDocument,

	".jpg":  KindImage,
	".jpeg": KindImage,
	".png":  KindImage,
	".bmp":  KindImage,
	".tiff": KindImage,
	".webp": KindImage,
	".gif":  KindImage,

	".html": KindWebpage,
	".htm":  KindWebpage,
}

// Identify maps a source path to its content kind by extension. Unknown
// extensions are rejected as unsupported input.
func Identify(path string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(path))
	kind, ok := kindByExtension[ext]
	if !ok {
		return "", services.Wrap(services.ErrUnsupportedInput, "identify", "",
			fmt.Sprintf("unrecognized extension %q", ext), nil)
	}
	return kind, nil
}

// SupportedExtensions returns every recognized extension in sorted order.
func SupportedExtensions() []string {
	out := make([]string, 0, len(kindByExtension))
	for ext := range kindByExtension {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
