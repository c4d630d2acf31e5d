package kmertax

import (
	"strings"

	"github.com/pkg/errors"
)

// TaxonID identifies a node in a Store's lineage tree. The zero value is
// never assigned to a real node; RootID is reserved for the implicit root.
type TaxonID uint32

// RootID is the implicit ancestor of every top-level rank (domain or
// kingdom) parsed from a lineage string. It has no name of its own.
const RootID TaxonID = 0

// gtdbLevels are the rank prefixes recognized at lineage positions 1..6,
// following the GTDB convention. Position 0 (domain) accepts either "d__"
// (GTDB) or "k__" (SILVA/NCBI-style kingdom).
var gtdbLevels = []string{"p__", "c__", "o__", "f__", "g__", "s__"}

// Store is a parent-pointer taxonomy tree built from semicolon-delimited
// lineage strings (e.g. "d__Bacteria;p__Proteobacteria;...;s__Escherichia coli").
// It assigns a stable TaxonID to every distinct rank node encountered and
// records the full lineage string each reference sequence carried, so a
// Builder can map a reference record straight to the TaxonID of its most
// specific rank.
type Store struct {
	nameToID map[string]TaxonID // "p__Proteobacteria" (rank-qualified) -> id
	idToName map[TaxonID]string
	parent   map[TaxonID]TaxonID
	lineage  map[string]TaxonID // full lineage string -> id of its most specific rank
	nextID   TaxonID
}

// NewStore returns an empty Store, ready to have lineages added to it.
func NewStore() *Store {
	return &Store{
		nameToID: make(map[string]TaxonID),
		idToName: make(map[TaxonID]string),
		parent:   make(map[TaxonID]TaxonID),
		lineage:  make(map[string]TaxonID),
		nextID:   1,
	}
}

// splitLineageLevels splits s on ";" and strips leading/trailing whitespace
// from each level. Both validation and insertion use this so a lineage like
// "d__B; p__P" names the same levels either way.
func splitLineageLevels(s string) []string {
	raw := strings.Split(s, ";")
	levels := make([]string, len(raw))
	for i, lvl := range raw {
		levels[i] = strings.TrimSpace(lvl)
	}
	return levels
}

// isValidLevelName reports whether name (a level with its rank tag already
// stripped) uses only alphanumerics, space, '_', '-', '.', '(', ')', '/', or
// ':'.
func isValidLevelName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == ' ', r == '_', r == '-', r == '.', r == '(', r == ')', r == '/', r == ':':
		default:
			return false
		}
	}
	return true
}

// IsValidLineage reports whether s parses as a well-formed GTDB/SILVA-style
// lineage: 1 to 7 semicolon-delimited levels, the first tagged d__ or k__,
// the rest (if present) tagged p__/c__/o__/f__/g__/s__ in order, and every
// level carrying a non-empty name (more than the 3-character tag) built
// from the allowed character set.
func IsValidLineage(s string) bool {
	if s == "" {
		return false
	}
	levels := splitLineageLevels(s)
	if len(levels) > 7 {
		return false
	}
	for i, lvl := range levels {
		if len(lvl) <= 3 {
			return false
		}
		tag := lvl[:3]
		if i == 0 {
			if tag != "d__" && tag != "k__" {
				return false
			}
		} else if tag != gtdbLevels[i-1] {
			return false
		}
		if !isValidLevelName(lvl[3:]) {
			return false
		}
	}
	return true
}

// BuildStore parses a set of reference lineage strings into a Store. Lineage
// strings that fail IsValidLineage are rejected with an error naming the
// offending string; duplicate lineages are deduplicated with no error.
func BuildStore(lineages []string) (*Store, error) {
	s := NewStore()
	for _, l := range lineages {
		if _, err := s.AddLineage(l); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// AddLineage parses and inserts lineage into the store, returning the
// TaxonID of its most specific (last) rank. Inserting the same lineage
// string twice is idempotent and returns the same id both times.
func (s *Store) AddLineage(lineage string) (TaxonID, error) {
	if !IsValidLineage(lineage) {
		return 0, errors.Errorf("kmertax: malformed lineage %q", lineage)
	}
	levels := splitLineageLevels(lineage)
	canonical := strings.Join(levels, ";")
	if id, ok := s.lineage[canonical]; ok {
		return id, nil
	}
	parent := RootID
	var id TaxonID
	for _, lvl := range levels {
		if existing, ok := s.nameToID[lvl]; ok {
			id = existing
		} else {
			id = s.nextID
			s.nextID++
			s.nameToID[lvl] = id
			s.idToName[id] = lvl
			if parent != id {
				s.parent[id] = parent
			}
		}
		parent = id
	}
	s.lineage[canonical] = id
	return id, nil
}

// Name returns the rank-qualified name of id (e.g. "s__Escherichia coli"),
// or "" if id is unknown or RootID.
func (s *Store) Name(id TaxonID) string { return s.idToName[id] }

// Parent returns the parent of id and true, or (RootID, false) if id is
// RootID or unknown.
func (s *Store) Parent(id TaxonID) (TaxonID, bool) {
	p, ok := s.parent[id]
	return p, ok
}

// ParentMap returns the store's id->parent map directly, for use with LCA
// and FoldLCA. Callers must not mutate the returned map.
func (s *Store) ParentMap() map[TaxonID]TaxonID { return s.parent }

// Lookup returns the TaxonID assigned to a previously added lineage string,
// or (0, false) if lineage was never added.
func (s *Store) Lookup(lineage string) (TaxonID, bool) {
	id, ok := s.lineage[strings.Join(splitLineageLevels(lineage), ";")]
	return id, ok
}

// Len returns the number of distinct taxon nodes in the store, excluding
// RootID.
func (s *Store) Len() int { return len(s.idToName) }

// Nodes returns every TaxonID in the store, in no particular order. Used by
// db.go to serialize the tree.
func (s *Store) Nodes() []TaxonID {
	ids := make([]TaxonID, 0, len(s.idToName))
	for id := range s.idToName {
		ids = append(ids, id)
	}
	return ids
}
