package realm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExt(t *testing.T) {
	tests := map[string]string{
		"photo.JPG":        "jpg",
		"archive.tar.gz":   "gz",
		"README":           "",
		".keep":            "keep",
		"trailing.":        "",
		"Some Song.Mp3":    "mp3",
		"dir.v2/no-ext":    "v2/no-ext",
		"":                 "",
		"multi..dots..png": "png",
	}
	for in, want := range tests {
		assert.Equal(t, want, Ext(in), "Ext(%q)", in)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		realm    ID
		name     string
		category Category
		ext      string
	}{
		{Visuals, "cat.PNG", CategoryImage, "png"},
		{Visuals, "clip.webm", CategoryVideo, "webm"},
		{Music, "track.flac", CategoryAudio, "flac"},
		{Games, "game.7z", CategoryArchive, "7z"},
		{Games, "setup.EXE", CategoryExecutable, "exe"},
		{Memes, "notes.txt", CategoryGeneric, "txt"},
		{Secrets, "notes.txt", CategorySecret, "txt"},
		{Secrets, "NOEXT", CategorySecret, ""},
		{Secrets, "pic.jpeg", CategoryImage, "jpeg"},
		{Movies, "NOEXT", CategoryGeneric, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.realm)+"/"+tt.name, func(t *testing.T) {
			got := Classify(tt.realm, tt.name)
			assert.Equal(t, tt.category, got.Category)
			assert.Equal(t, tt.ext, got.Ext)
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.Equal(t, Classify(Secrets, "a.bin"), Classify(Secrets, "a.bin"))
	}
}

func TestCategory_IconRef(t *testing.T) {
	assert.Equal(t, "/assets/icons/image.svg", CategoryImage.IconRef())
	assert.Equal(t, "/assets/icons/exe.svg", CategoryExecutable.IconRef())
	assert.Equal(t, "/assets/icons/secret.svg", CategorySecret.IconRef())
	assert.Equal(t, "/assets/icons/file.svg", CategoryGeneric.IconRef())
	assert.Equal(t, "/assets/icons/file.svg", Category("bogus").IconRef())
}
