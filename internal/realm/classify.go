package realm

import "strings"

// Category is the media kind derived from a file extension.
type Category string

const (
	CategoryImage      Category = "image"
	CategoryVideo      Category = "video"
	CategoryAudio      Category = "audio"
	CategoryArchive    Category = "archive"
	CategoryExecutable Category = "executable"
	CategorySecret     Category = "secret"
	CategoryGeneric    Category = "generic"
)

// IconBase is the URL prefix under which category icons are served.
const IconBase = "/assets/icons/"

var groups = map[string]Category{
	"jpg": CategoryImage, "jpeg": CategoryImage, "png": CategoryImage,
	"gif": CategoryImage, "webp": CategoryImage, "bmp": CategoryImage,

	"mp4": CategoryVideo, "mkv": CategoryVideo, "webm": CategoryVideo,
	"avi": CategoryVideo, "mov": CategoryVideo, "wmv": CategoryVideo,
	"flv": CategoryVideo,

	"mp3": CategoryAudio, "wav": CategoryAudio, "flac": CategoryAudio,
	"aac": CategoryAudio, "ogg": CategoryAudio, "m4a": CategoryAudio,

	"zip": CategoryArchive, "rar": CategoryArchive, "7z": CategoryArchive,

	"apk": CategoryExecutable, "exe": CategoryExecutable,
}

var icons = map[Category]string{
	CategoryImage:      "image.svg",
	CategoryVideo:      "video.svg",
	CategoryAudio:      "audio.svg",
	CategoryArchive:    "archive.svg",
	CategoryExecutable: "exe.svg",
	CategorySecret:     "secret.svg",
	CategoryGeneric:    "file.svg",
}

// IconRef returns the icon path for the category.
func (c Category) IconRef() string {
	if name, ok := icons[c]; ok {
		return IconBase + name
	}
	return IconBase + icons[CategoryGeneric]
}

// Classification is the result of classifying one filename.
type Classification struct {
	Category Category
	Ext      string
}

// Ext returns the lowercased text after the last dot of filename, or ""
// when there is no dot.
func Ext(filename string) string {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}

// Classify maps filename to a media category. Unmatched extensions are
// generic, except inside the secrets realm where they are secret.
func Classify(active ID, filename string) Classification {
	ext := Ext(filename)
	if cat, ok := groups[ext]; ok {
		return Classification{Category: cat, Ext: ext}
	}
	if active == Secrets {
		return Classification{Category: CategorySecret, Ext: ext}
	}
	return Classification{Category: CategoryGeneric, Ext: ext}
}
