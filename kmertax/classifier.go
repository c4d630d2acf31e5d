package kmertax

import (
	"runtime"
	"sync"
)

// DefaultMinQuality is the Phred+33 quality threshold below which a base is
// masked out of fingerprint extraction.
const DefaultMinQuality = 15

// DefaultMinHits is the minimum number of matching fingerprints a read must
// accumulate before it is assigned a taxon rather than RootID.
const DefaultMinHits = 3

// qualOffset is the Phred+33 ASCII zero point.
const qualOffset = 33

// MaskLowQuality replaces every base in seq whose corresponding qual byte
// is below minQuality (Phred+33) with 'N', so the extractor's EncodeBase
// rejects it and the surrounding fingerprint window resets exactly as it
// would at a real sequencing gap. len(qual) must equal len(seq).
func MaskLowQuality(seq, qual string, minQuality int) string {
	masked := []byte(seq)
	for i := 0; i < len(masked) && i < len(qual); i++ {
		if int(qual[i])-qualOffset < minQuality {
			masked[i] = 'N'
		}
	}
	return string(masked)
}

// Call is the result of classifying one read.
type Call struct {
	Read         Read
	Taxon        TaxonID
	Hits         int     // fingerprints that matched some reference taxon
	Fingerprints int     // total fingerprints extracted from the read
	Confidence   float64 // winning taxon's vote count / Fingerprints, 0 if Fingerprints is 0
	NoHits       bool    // true if the read had zero fingerprints or total_hits < min_hits
}

// TaxonomyLabel renders the taxonomy column of a classification report: "no
// hits" for a read that never reached the tally-and-pick step, the resolved
// level name for a winning id the store can name, and "unclassified" only
// as a fallback for a resolved id the store has no name for (e.g. the
// fold-LCA of a tie landed on RootID).
func TaxonomyLabel(store *Store, call Call) string {
	if call.NoHits {
		return "no hits"
	}
	if name := store.Name(call.Taxon); name != "" {
		return name
	}
	return "unclassified"
}

// Classifier assigns reads to taxa using a built fingerprint -> TaxonID map
// and the taxonomy tree it was built against.
type Classifier struct {
	params       Params
	fingerprints map[uint64]TaxonID
	store        *Store
	minQuality   int
	minHits      int
}

// NewClassifier returns a Classifier using params' k/m/shape configuration
// against the given fingerprint map and taxonomy.
func NewClassifier(params Params, fingerprints map[uint64]TaxonID, store *Store) *Classifier {
	return &Classifier{
		params:       params,
		fingerprints: fingerprints,
		store:        store,
		minQuality:   DefaultMinQuality,
		minHits:      DefaultMinHits,
	}
}

// SetThresholds overrides the default quality and hit-count thresholds.
func (c *Classifier) SetThresholds(minQuality, minHits int) {
	c.minQuality = minQuality
	c.minHits = minHits
}

// Classify assigns one read to a taxon, following the tally-then-LCA
// procedure: tally database hits per taxon, take the maximum-count tally,
// and break ties among taxa sharing that maximum by folding their LCA.
// A read with no fingerprints, or fewer than minHits total hits, is
// assigned RootID and marked NoHits (reported as "no hits").
func (c *Classifier) Classify(read Read) Call {
	seq := read.Seq
	if len(read.Qual) == len(read.Seq) {
		seq = MaskLowQuality(read.Seq, read.Qual, c.minQuality)
	}
	fps := Extract(c.params, seq)
	call := Call{Read: read, Taxon: RootID, Fingerprints: len(fps)}
	if len(fps) == 0 {
		call.NoHits = true
		return call
	}

	votes := make(map[TaxonID]int)
	hits := 0
	for _, fp := range fps {
		taxon, ok := c.fingerprints[fp]
		if !ok {
			continue
		}
		hits++
		votes[taxon]++
	}
	call.Hits = hits
	if hits < c.minHits {
		call.NoHits = true
		return call
	}

	maxCount := 0
	for _, n := range votes {
		if n > maxCount {
			maxCount = n
		}
	}
	var tied []TaxonID
	for taxon, n := range votes {
		if n == maxCount {
			tied = append(tied, taxon)
		}
	}
	if len(tied) == 1 {
		call.Taxon = tied[0]
	} else {
		call.Taxon = FoldLCA(tied, c.store.ParentMap())
	}
	call.Confidence = float64(maxCount) / float64(len(fps))
	return call
}

// classifyReq/classifyRes mirror buildReq/buildRes: a single reqCh feeding a
// worker pool, fanned into one ordered result slice, grounded on
// cmd/bio-fusion/main.go's processFASTQ. Read order is preserved by tagging
// each request with its input index and storing each result at that index,
// since a classification report is expected to follow FASTQ input order.
type classifyReq struct {
	index int
	read  Read
}

type classifyRes struct {
	index int
	call  Call
}

// ClassifyAll classifies every read in reads concurrently and returns their
// Calls in the same order as reads.
func (c *Classifier) ClassifyAll(reads []Read) ([]Call, ClassifyStats) {
	reqCh := make(chan classifyReq, 1024)
	resCh := make(chan classifyRes, 1024)

	parallelism := runtime.NumCPU()
	var workers sync.WaitGroup
	for i := 0; i < parallelism; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for req := range reqCh {
				resCh <- classifyRes{index: req.index, call: c.Classify(req.read)}
			}
		}()
	}

	calls := make([]Call, len(reads))
	stats := ClassifyStats{}
	var collector sync.WaitGroup
	collector.Add(1)
	go func() {
		defer collector.Done()
		for res := range resCh {
			calls[res.index] = res.call
			stats.Reads++
			if res.call.Taxon == RootID {
				stats.Unclassified++
			} else {
				stats.Classified++
			}
		}
	}()

	for i, r := range reads {
		reqCh <- classifyReq{index: i, read: r}
	}
	close(reqCh)
	workers.Wait()
	close(resCh)
	collector.Wait()

	return calls, stats
}
