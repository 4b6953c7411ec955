package realm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/realms/internal/errs"
)

func TestParse(t *testing.T) {
	id, err := Parse(" Music ")
	require.NoError(t, err)
	assert.Equal(t, Music, id)

	_, err = Parse("podcasts")
	assert.True(t, errs.IsInvalidInput(err))
}

func TestID_Valid(t *testing.T) {
	for _, id := range All() {
		assert.True(t, id.Valid(), string(id))
	}
	assert.False(t, ID("Visuals").Valid())
	assert.False(t, ID("").Valid())
}

func TestTable_AllowAllAcceptsEverything(t *testing.T) {
	table := DefaultTable()
	for _, name := range []string{"a.txt", "NOEXT", ".keep", "weird.tar.gz", "", "x."} {
		assert.True(t, table.IsAllowed(Secrets, name), name)
	}
}

func TestTable_CaseInsensitive(t *testing.T) {
	table := DefaultTable()
	for _, id := range All() {
		for _, base := range []string{"x.jpg", "x.mp3", "x.zip", "x.txt", "x.mov"} {
			lower := table.IsAllowed(id, base)
			for _, variant := range []string{strings.ToUpper(base), "x.Jpg", "x." + strings.ToUpper(Ext(base))} {
				if Ext(variant) != Ext(base) {
					continue
				}
				assert.Equal(t, lower, table.IsAllowed(id, variant), "%s %s vs %s", id, base, variant)
			}
		}
	}
}

func TestTable_RestrictivePolicies(t *testing.T) {
	table := DefaultTable()
	tests := []struct {
		realm ID
		name  string
		want  bool
	}{
		{Visuals, "a.png", true},
		{Visuals, "a.mp3", false},
		{Games, "a.apk", true},
		{Games, "a.png", false},
		{Movies, "a.flv", true},
		{Music, "a.M4A", true},
		{Memes, "a.bmp", false},
		{Memes, "a.gif", true},
		{Visuals, "noextension", false},
		{Music, "trailingdot.", false},
		{ID("unknown"), "a.png", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, table.IsAllowed(tt.realm, tt.name), "%s %s", tt.realm, tt.name)
	}
}

func TestNewTable_Overrides(t *testing.T) {
	table, err := NewTable(map[string][]string{
		"memes": {".PNG", "gif"},
		"games": {"*"},
	})
	require.NoError(t, err)

	assert.True(t, table.IsAllowed(Memes, "a.png"))
	assert.False(t, table.IsAllowed(Memes, "a.jpg"))
	assert.True(t, table.IsAllowed(Games, "anything"))
	assert.True(t, table.IsAllowed(Visuals, "a.jpg"), "untouched realms keep defaults")

	_, err = NewTable(map[string][]string{"nope": {"png"}})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestTable_Describe(t *testing.T) {
	summaries := DefaultTable().Describe()
	require.Len(t, summaries, 6)

	assert.Equal(t, Visuals, summaries[0].Realm)
	assert.Equal(t, []string{"7z", "apk", "exe", "rar", "zip"}, summaries[1].Extensions)
	assert.True(t, summaries[5].AllowAll)
	assert.Nil(t, summaries[5].Extensions)
}
