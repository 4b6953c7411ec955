package realm

import (
	"sort"
	"strings"
)

// AllowAllToken in a policy override list means "accept every file".
const AllowAllToken = "*"

// Policy is a realm's extension allow-list, or allow-all.
type Policy struct {
	AllowAll bool
	exts     map[string]struct{}
}

// AllowAll returns the permissive policy.
func AllowAll() Policy {
	return Policy{AllowAll: true}
}

// AllowOnly returns a restrictive policy over exts. Leading dots and case
// are ignored.
func AllowOnly(exts ...string) Policy {
	p := Policy{exts: make(map[string]struct{}, len(exts))}
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e == AllowAllToken {
			return AllowAll()
		}
		if e != "" {
			p.exts[e] = struct{}{}
		}
	}
	return p
}

// Allows reports whether ext (already lowercased) passes the policy.
func (p Policy) Allows(ext string) bool {
	if p.AllowAll {
		return true
	}
	if ext == "" {
		return false
	}
	_, ok := p.exts[ext]
	return ok
}

// Extensions returns the allow-list sorted, or nil for allow-all.
func (p Policy) Extensions() []string {
	if p.AllowAll {
		return nil
	}
	out := make([]string, 0, len(p.exts))
	for e := range p.exts {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// Table maps every realm to its policy. It is built once and never
// mutated, so it is safe for concurrent readers.
type Table struct {
	policies map[ID]Policy
}

// DefaultPolicies returns the stock policy for each realm.
func DefaultPolicies() map[ID]Policy {
	return map[ID]Policy{
		Visuals: AllowOnly("jpg", "jpeg", "png", "gif", "webp", "bmp", "mp4", "mkv", "webm", "avi", "mov"),
		Games:   AllowOnly("apk", "exe", "zip", "rar", "7z"),
		Movies:  AllowOnly("mp4", "mkv", "webm", "avi", "mov", "wmv", "flv"),
		Music:   AllowOnly("mp3", "wav", "flac", "aac", "ogg", "m4a"),
		Memes:   AllowOnly("jpg", "jpeg", "png", "gif", "webp", "mp4", "webm", "mov"),
		Secrets: AllowAll(),
	}
}

// NewTable builds a table from the defaults with per-realm overrides.
// Override keys are realm names; unknown names are rejected.
func NewTable(overrides map[string][]string) (*Table, error) {
	policies := DefaultPolicies()
	for name, exts := range overrides {
		id, err := Parse(name)
		if err != nil {
			return nil, err
		}
		policies[id] = AllowOnly(exts...)
	}
	return &Table{policies: policies}, nil
}

// DefaultTable returns the table with no overrides.
func DefaultTable() *Table {
	return &Table{policies: DefaultPolicies()}
}

// Policy returns the policy for id. Unknown realms get an empty allow-list.
func (t *Table) Policy(id ID) Policy {
	if p, ok := t.policies[id]; ok {
		return p
	}
	return Policy{}
}

// IsAllowed reports whether filename may appear in realm id.
func (t *Table) IsAllowed(id ID, filename string) bool {
	p, ok := t.policies[id]
	if !ok {
		return false
	}
	return p.Allows(Ext(filename))
}

// Summary describes one realm's policy for API consumers.
type Summary struct {
	Realm      ID       `json:"realm"`
	AllowAll   bool     `json:"allowAll"`
	Extensions []string `json:"extensions,omitempty"`
}

// Describe returns one Summary per realm in display order.
func (t *Table) Describe() []Summary {
	out := make([]Summary, 0, len(all))
	for _, id := range all {
		p := t.Policy(id)
		out = append(out, Summary{Realm: id, AllowAll: p.AllowAll, Extensions: p.Extensions()})
	}
	return out
}
