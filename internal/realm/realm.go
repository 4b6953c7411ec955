// Package realm defines the gallery's content categories, the extension
// classifier and the per-realm extension policy table.
package realm

import (
	"strings"

	"github.com/koustreak/realms/internal/errs"
)

// ID identifies a realm. The set is fixed at compile time.
type ID string

const (
	Visuals ID = "visuals"
	Games   ID = "games"
	Movies  ID = "movies"
	Music   ID = "music"
	Memes   ID = "memes"
	Secrets ID = "secrets"
)

var all = []ID{Visuals, Games, Movies, Music, Memes, Secrets}

// All returns every realm in display order.
func All() []ID {
	out := make([]ID, len(all))
	copy(out, all)
	return out
}

// Parse resolves a realm name case-insensitively.
func Parse(s string) (ID, error) {
	name := ID(strings.ToLower(strings.TrimSpace(s)))
	for _, id := range all {
		if id == name {
			return id, nil
		}
	}
	return "", errs.Newf(errs.ErrKindInvalidInput, "unknown realm %q", s)
}

// Valid reports whether id is one of the fixed realms.
func (id ID) Valid() bool {
	for _, known := range all {
		if known == id {
			return true
		}
	}
	return false
}

func (id ID) String() string { return string(id) }
