package kmertax

import "github.com/pkg/errors"

// DefaultValueBits is the width reserved for taxon ids in the serialized
// fingerprint map. It is recorded in params.json for documentation/forward
// compatibility but does not otherwise constrain in-memory TaxonID, which is
// always a full uint32.
const DefaultValueBits = 24

// Params holds the configuration shared by a database build and every
// subsequent classification against it: the k-mer size, optional minimizer
// size, optional spaced shape, and the taxonomy store built from the
// reference set. Params is constructed once by the Builder, serialized, and
// thereafter treated as immutable (see db.go).
type Params struct {
	K         int
	M         int // 0 disables minimizer mode
	Shape     *Shape
	ValueBits int
	NumKmers  int // number of entries in the fingerprint map; informational
	Taxonomy  *Store
}

// Validate checks the K/M/Shape combination for internal consistency. It does
// not look at the taxonomy or fingerprint map.
func (p *Params) Validate() error {
	if p.Shape != nil {
		if p.M > 0 {
			return errors.New("kmertax: a kmer shape and a minimizer size cannot both be set")
		}
		if p.K != 0 && p.K != p.Shape.K() {
			return errors.Errorf("kmertax: kmer shape implies k=%d but k=%d was also specified", p.Shape.K(), p.K)
		}
		p.K = p.Shape.K()
		return nil
	}
	if p.K < 1 || p.K > 31 {
		return errors.Errorf("kmertax: kmer size %d out of range [1, 31]", p.K)
	}
	if p.M < 0 || p.M >= p.K {
		if p.M != 0 {
			return errors.Errorf("kmertax: minimizer size %d must be in [1, k=%d)", p.M, p.K)
		}
	}
	return nil
}
