package kmertax

import (
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// Database file layout (see doc.go for the package's scope): a directory
// holding params.json, lineage.bin, and kmers.bin, written by a Builder and
// read back by a Classifier. The two .bin files are plain count-prefixed
// arrays of fixed-size binary.Write/Read records in host (little-endian)
// byte order, the same count-then-records shape as
// encoding/bam/gindex.go's .gbai format, minus that format's magic header
// and gzip wrapping: cross-tool readability of this on-disk format matters
// more than the handful of bytes compression would save on a map that is
// already dominated by high-entropy 64-bit hashes.
type shapeJSON struct {
	Pattern    string `json:"pattern"`
	WindowSize int    `json:"window_size"`
}

type dbParams struct {
	KmerSize      int               `json:"kmer_size"`
	MinimizerSize int               `json:"minimizer_size"`
	ValueBits     int               `json:"value_bits"`
	NumKmers      int               `json:"num_kmers"`
	Taxonomies    map[string]uint32 `json:"taxonomies"`
	KmerShape     *shapeJSON        `json:"kmer_shape,omitempty"`
}

// EncodeParams marshals p and store's rank-qualified names into the
// params.json representation.
func EncodeParams(p Params, store *Store) ([]byte, error) {
	d := dbParams{
		KmerSize:      p.K,
		MinimizerSize: p.M,
		ValueBits:     p.ValueBits,
		NumKmers:      p.NumKmers,
		Taxonomies:    make(map[string]uint32, store.Len()),
	}
	for _, id := range store.Nodes() {
		d.Taxonomies[store.Name(id)] = uint32(id)
	}
	if p.Shape != nil {
		d.KmerShape = &shapeJSON{Pattern: p.Shape.Pattern(), WindowSize: p.Shape.Window()}
	}
	return json.MarshalIndent(d, "", "  ")
}

// DecodeParams parses the params.json representation produced by
// EncodeParams. It returns the database's Params (Taxonomy unset) and the
// id->name map recovered from the "taxonomies" object, which a caller
// combines with lineage.bin (via ReadTaxonomy) to reconstruct a full Store.
func DecodeParams(data []byte) (Params, map[TaxonID]string, error) {
	var d dbParams
	if err := json.Unmarshal(data, &d); err != nil {
		return Params{}, nil, errors.Wrap(err, "kmertax: decoding params.json")
	}
	p := Params{K: d.KmerSize, M: d.MinimizerSize, ValueBits: d.ValueBits, NumKmers: d.NumKmers}
	if d.KmerShape != nil {
		shape, err := ParseShape(d.KmerShape.Pattern)
		if err != nil {
			return Params{}, nil, errors.Wrap(err, "kmertax: decoding params.json kmer_shape")
		}
		p.Shape = shape
	}
	names := make(map[TaxonID]string, len(d.Taxonomies))
	for name, id := range d.Taxonomies {
		names[TaxonID(id)] = name
	}
	return p, names, nil
}

// WriteTaxonomy serializes s to lineage.bin's on-disk format: a uint64
// count followed by that many (uint32 child_id, uint32 parent_id) pairs.
// Names are not written here; they live in params.json's taxonomies object.
func WriteTaxonomy(w io.Writer, s *Store) error {
	nodes := s.Nodes()
	if err := binary.Write(w, binary.LittleEndian, uint64(len(nodes))); err != nil {
		return err
	}
	for _, id := range nodes {
		pair := [2]uint32{uint32(id), uint32(s.parent[id])} // zero value is RootID
		if err := binary.Write(w, binary.LittleEndian, &pair); err != nil {
			return err
		}
	}
	return nil
}

// ReadTaxonomy deserializes lineage.bin's (child_id, parent_id) pairs and
// combines them with names (typically decoded from params.json's
// taxonomies object) to reconstruct a Store's nodes, names, and parent
// links. A node present in lineage.bin with no corresponding name is kept
// with an empty name. Full-lineage aliases are not restored: Lookup on the
// returned Store finds no lineage string.
func ReadTaxonomy(r io.Reader, names map[TaxonID]string) (*Store, error) {
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, errors.Wrap(err, "kmertax: reading lineage.bin count")
	}
	s := NewStore()
	for i := uint64(0); i < count; i++ {
		var pair [2]uint32
		if err := binary.Read(r, binary.LittleEndian, &pair); err != nil {
			return nil, errors.Wrap(err, "kmertax: reading lineage.bin entry")
		}
		id, parent := TaxonID(pair[0]), TaxonID(pair[1])
		name := names[id]
		s.idToName[id] = name
		if name != "" {
			s.nameToID[name] = id
		}
		s.parent[id] = parent
		if id >= s.nextID {
			s.nextID = id + 1
		}
	}
	return s, nil
}

// WriteKmers serializes the fingerprint -> TaxonID map to kmers.bin's
// on-disk format: a uint64 count followed by that many (uint64 fingerprint,
// uint32 taxon_id) pairs. Iteration order over m is Go's randomized map
// order; per spec, iteration order in this file carries no meaning.
func WriteKmers(w io.Writer, m map[uint64]TaxonID) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(len(m))); err != nil {
		return err
	}
	for fp, taxon := range m {
		entry := struct {
			Fingerprint uint64
			Taxon       uint32
		}{fp, uint32(taxon)}
		if err := binary.Write(w, binary.LittleEndian, &entry); err != nil {
			return err
		}
	}
	return nil
}

// ReadKmers deserializes kmers.bin back into a fingerprint -> TaxonID map.
func ReadKmers(r io.Reader) (map[uint64]TaxonID, error) {
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, errors.Wrap(err, "kmertax: reading kmers.bin count")
	}
	m := make(map[uint64]TaxonID, count)
	for i := uint64(0); i < count; i++ {
		var entry struct {
			Fingerprint uint64
			Taxon       uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &entry); err != nil {
			return nil, errors.Wrap(err, "kmertax: reading kmers.bin entry")
		}
		m[entry.Fingerprint] = TaxonID(entry.Taxon)
	}
	return m, nil
}
