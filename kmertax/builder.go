package kmertax

import (
	"runtime"
	"sync"

	"github.com/dgryski/go-farm"
	"github.com/pkg/errors"
)

// buildReq is one reference sequence handed to a worker for fingerprint
// extraction, grounded on cmd/bio-fusion/main.go's req/res worker-pool
// shape (reqCh/resCh, one stage extracting, one stage accumulating).
type buildReq struct {
	taxon TaxonID
	seq   string
}

type buildRes struct {
	taxon        TaxonID
	fingerprints []uint64
}

// seqCache memoizes fingerprint extraction by content hash so that
// byte-identical reference sequences (duplicate strain submissions are
// common in GTDB-style reference sets) are only extracted once. Keys are
// go-farm hashes rather than the sequence itself: a 64-bit collision is
// astronomically less likely than the CPU cost of re-extracting a
// multi-kilobase sequence.
type seqCache struct {
	mu   sync.RWMutex
	byFp map[uint64][]uint64
}

func newSeqCache() *seqCache { return &seqCache{byFp: make(map[uint64][]uint64)} }

func (c *seqCache) get(seq string) ([]uint64, bool) {
	h := farm.Hash64([]byte(seq))
	c.mu.RLock()
	fps, ok := c.byFp[h]
	c.mu.RUnlock()
	return fps, ok
}

func (c *seqCache) put(seq string, fps []uint64) {
	h := farm.Hash64([]byte(seq))
	c.mu.Lock()
	c.byFp[h] = fps
	c.mu.Unlock()
}

// Builder constructs a reference database: a taxonomy Store plus a
// fingerprint -> TaxonID map, built by extracting fingerprints from every
// reference sequence and, for each fingerprint shared by references under
// different taxa, resolving the conflict to their lowest common ancestor.
type Builder struct {
	params Params
	store  *Store
}

// NewBuilder returns a Builder that will extract fingerprints per params
// (already validated) against refs assigned taxa from a Store built from
// their lineages.
func NewBuilder(params Params, store *Store) *Builder {
	return &Builder{params: params, store: store}
}

// BuildFromLineages is pass 1 of a build: it validates and deduplicates the
// lineage strings carried by refs and builds the taxonomy Store. A reference
// whose lineage fails validation is dropped and reported in warnings rather
// than aborting the build; the returned kept/taxa slices are parallel and
// contain only the references that survived.
func BuildFromLineages(refs []Reference) (store *Store, kept []Reference, taxa []TaxonID, warnings []error) {
	store = NewStore()
	for _, ref := range refs {
		id, err := store.AddLineage(ref.Lineage)
		if err != nil {
			warnings = append(warnings, errors.Wrapf(err, "kmertax: reference %q", ref.Name))
			continue
		}
		kept = append(kept, ref)
		taxa = append(taxa, id)
	}
	return store, kept, taxa, warnings
}

// Build is pass 2: it extracts fingerprints from every reference
// concurrently and merges them into a single fingerprint -> TaxonID map,
// resolving any fingerprint that maps to more than one taxon to their LCA.
// It returns an error if the resulting map is empty, since an empty
// database can never classify anything.
func (b *Builder) Build(refs []Reference, taxa []TaxonID) (map[uint64]TaxonID, BuildStats, error) {
	if b.store.Len() == 0 {
		return nil, BuildStats{}, errors.New("kmertax: build has an empty taxonomy set")
	}
	reqCh := make(chan buildReq, 1024)
	resCh := make(chan buildRes, 1024)

	parallelism := runtime.NumCPU()
	cache := newSeqCache()
	var workers sync.WaitGroup
	for i := 0; i < parallelism; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for req := range reqCh {
				fps, ok := cache.get(req.seq)
				if !ok {
					fps = Extract(b.params, req.seq)
					cache.put(req.seq, fps)
				}
				resCh <- buildRes{taxon: req.taxon, fingerprints: fps}
			}
		}()
	}

	var collector sync.WaitGroup
	collector.Add(1)
	fingerprints := make(map[uint64]TaxonID)
	stats := BuildStats{}
	parent := b.store.ParentMap()
	go func() {
		defer collector.Done()
		for res := range resCh {
			stats.References++
			stats.Fingerprints += len(res.fingerprints)
			for _, fp := range res.fingerprints {
				if existing, ok := fingerprints[fp]; ok {
					if existing != res.taxon {
						fingerprints[fp] = LCA(existing, res.taxon, parent)
						stats.AmbiguousKmers++
					}
					continue
				}
				fingerprints[fp] = res.taxon
			}
		}
	}()

	for i, ref := range refs {
		reqCh <- buildReq{taxon: taxa[i], seq: ref.Seq}
	}
	close(reqCh)
	workers.Wait()
	close(resCh)
	collector.Wait()

	stats.DistinctKmers = len(fingerprints)
	if len(fingerprints) == 0 {
		return nil, stats, errors.New("kmertax: build produced zero fingerprints, refusing to write an empty database")
	}
	return fingerprints, stats, nil
}
