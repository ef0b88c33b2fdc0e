// Package registry maintains the fleet-wide ban registry: a small YAML
// document stored on a wiki page, shared by every monitored community and
// edited both by this agent and by humans. The store re-reads the page every
// run and only writes back when a mutation actually changed the document.
package registry

import "slices"

// Kind selects which ban set of the registry an identity is added to.
type Kind string

const (
	KindFull Kind = "full"
	KindSoft Kind = "soft"
)

// Document is the parsed registry. The field lists may be nil, which is
// equivalent to empty; human editors routinely null out sections.
type Document struct {
	FullBans []string `yaml:"full_bans"`
	Ignore   []string `yaml:"ignore"`
	SoftBans []string `yaml:"soft_bans"`
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	return &Document{
		FullBans: slices.Clone(d.FullBans),
		Ignore:   slices.Clone(d.Ignore),
		SoftBans: slices.Clone(d.SoftBans),
	}
}

// Equal reports full structural equality, including element order. A nil
// list and an empty list compare equal, since both round-trip through YAML
// null.
func (d *Document) Equal(other *Document) bool {
	return slices.Equal(d.FullBans, other.FullBans) &&
		slices.Equal(d.Ignore, other.Ignore) &&
		slices.Equal(d.SoftBans, other.SoftBans)
}

// Ignored reports whether the identity is on the ignore list. Matching is
// exact and case-sensitive.
func (d *Document) Ignored(identity string) bool {
	return slices.Contains(d.Ignore, identity)
}

// HasFullBan reports whether the identity is in the full-ban set.
func (d *Document) HasFullBan(identity string) bool {
	return slices.Contains(d.FullBans, identity)
}

// Add appends the identity to the given ban set. Identities already present
// are not duplicated, and identities on the ignore list are never added.
// Returns whether the document changed.
func (d *Document) Add(kind Kind, identity string) bool {
	if d.Ignored(identity) {
		return false
	}
	switch kind {
	case KindSoft:
		if slices.Contains(d.SoftBans, identity) {
			return false
		}
		d.SoftBans = append(d.SoftBans, identity)
	default:
		if slices.Contains(d.FullBans, identity) {
			return false
		}
		d.FullBans = append(d.FullBans, identity)
	}
	return true
}
