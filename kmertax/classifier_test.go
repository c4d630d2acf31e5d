package kmertax_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/grailbio/kmertax/kmertax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSingle(t *testing.T, lineage, seq string, k int) (*kmertax.Store, map[uint64]kmertax.TaxonID, kmertax.Params) {
	t.Helper()
	refs := []kmertax.Reference{{Name: "r1", Lineage: lineage, Seq: seq}}
	store, kept, taxa, warnings := kmertax.BuildFromLineages(refs)
	require.Empty(t, warnings)
	params := kmertax.Params{K: k}
	b := kmertax.NewBuilder(params, store)
	fingerprints, _, err := b.Build(kept, taxa)
	require.NoError(t, err)
	return store, fingerprints, params
}

func TestClassifySingleReferenceExactMatch(t *testing.T) {
	seq := "ACGTACGTACGTACGTACGTACGTA"
	store, fingerprints, params := buildSingle(t, "d__B;p__P;c__C;o__O;f__F;g__G;s__S", seq, 25)

	c := kmertax.NewClassifier(params, fingerprints, store)
	c.SetThresholds(kmertax.DefaultMinQuality, 1)
	call := c.Classify(kmertax.Read{ID: "q1", Seq: seq})

	assert.Equal(t, "s__S", store.Name(call.Taxon))
	assert.Equal(t, 1, call.Hits)
	assert.Equal(t, 1, call.Fingerprints)
	assert.Equal(t, 1.0, call.Confidence)
}

func TestClassifyEmptyReadReportsNoHits(t *testing.T) {
	store, fingerprints, params := buildSingle(t, "d__B;p__P;c__C;o__O;f__F;g__G;s__S",
		"ACGTACGTACGTACGTACGTACGTA", 25)
	c := kmertax.NewClassifier(params, fingerprints, store)
	call := c.Classify(kmertax.Read{ID: "q1", Seq: "ACGT"})
	assert.True(t, call.NoHits)
	assert.Equal(t, "no hits", kmertax.TaxonomyLabel(store, call))
	assert.Equal(t, 0, call.Fingerprints)
	assert.Zero(t, call.Confidence)
}

func TestClassifyBelowMinHitsReportsNoHits(t *testing.T) {
	seq := "ACGTACGTACGTACGTACGTACGTA"
	store, fingerprints, params := buildSingle(t, "d__B;p__P;c__C;o__O;f__F;g__G;s__S", seq, 25)
	c := kmertax.NewClassifier(params, fingerprints, store)
	c.SetThresholds(kmertax.DefaultMinQuality, 2) // only one fingerprint can ever hit
	call := c.Classify(kmertax.Read{ID: "q1", Seq: seq})
	assert.True(t, call.NoHits)
	assert.Equal(t, "no hits", kmertax.TaxonomyLabel(store, call))
	assert.Zero(t, call.Confidence)
}

func TestClassifyQualityMasking(t *testing.T) {
	seq := "ACGTACGTACGTACGTACGTACGTA"
	store, fingerprints, params := buildSingle(t, "d__B;p__P;c__C;o__O;f__F;g__G;s__S", seq, 25)
	c := kmertax.NewClassifier(params, fingerprints, store)
	c.SetThresholds(15, 1)

	lowQual := strings.Repeat("!", len(seq)) // Phred 0 everywhere
	call := c.Classify(kmertax.Read{ID: "q1", Seq: seq, Qual: lowQual})
	assert.True(t, call.NoHits, "every base should be masked to N")
}

func TestTaxonomyLabelFallsBackToUnclassifiedWhenNameIsAbsent(t *testing.T) {
	// A resolved call (not NoHits) whose winning id the store can't name
	// (here, an empty NewStore has never seen RootID's name) must render
	// "unclassified", distinct from a genuine NoHits call's "no hits".
	store := kmertax.NewStore()
	call := kmertax.Call{Taxon: kmertax.RootID, NoHits: false}
	assert.Equal(t, "unclassified", kmertax.TaxonomyLabel(store, call))
}

func TestClassifyQualityLengthMismatchPassesThrough(t *testing.T) {
	seq := "ACGTACGTACGTACGTACGTACGTA"
	store, fingerprints, params := buildSingle(t, "d__B;p__P;c__C;o__O;f__F;g__G;s__S", seq, 25)
	c := kmertax.NewClassifier(params, fingerprints, store)
	c.SetThresholds(15, 1)

	call := c.Classify(kmertax.Read{ID: "q1", Seq: seq, Qual: "!!!"}) // length mismatch
	assert.Equal(t, "s__S", store.Name(call.Taxon))
}

func TestClassifyTieBreaksViaLCA(t *testing.T) {
	// Two species under the same genus, each contributing one distinct kmer
	// (an all-A run and an all-C run; their canonical forms never collide);
	// a synthetic read containing both must resolve to the shared genus.
	runA := strings.Repeat("A", 25)
	runC := strings.Repeat("C", 25)
	refs := []kmertax.Reference{
		{Name: "x", Lineage: "d__B;p__P;c__C;o__O;f__F;g__G;s__X", Seq: runA},
		{Name: "y", Lineage: "d__B;p__P;c__C;o__O;f__F;g__G;s__Y", Seq: runC},
	}
	store, kept, taxa, warnings := kmertax.BuildFromLineages(refs)
	require.Empty(t, warnings)
	params := kmertax.Params{K: 25}
	b := kmertax.NewBuilder(params, store)
	fingerprints, _, err := b.Build(kept, taxa)
	require.NoError(t, err)

	c := kmertax.NewClassifier(params, fingerprints, store)
	c.SetThresholds(kmertax.DefaultMinQuality, 1)

	// Only the leading and trailing windows are pure runs; every window in
	// between straddles the boundary and matches nothing in the database,
	// leaving exactly one hit for each of the two tied species.
	read := runA + runC
	call := c.Classify(kmertax.Read{ID: "q1", Seq: read})
	assert.Equal(t, 2, call.Hits)

	idX, _ := store.Lookup("d__B;p__P;c__C;o__O;f__F;g__G;s__X")
	genus, _ := store.Parent(idX)
	assert.Equal(t, genus, call.Taxon)
}

func TestClassifyAllPreservesOrder(t *testing.T) {
	seq := "ACGTACGTACGTACGTACGTACGTA"
	store, fingerprints, params := buildSingle(t, "d__B;p__P;c__C;o__O;f__F;g__G;s__S", seq, 25)
	c := kmertax.NewClassifier(params, fingerprints, store)
	c.SetThresholds(kmertax.DefaultMinQuality, 1)

	reads := make([]kmertax.Read, 50)
	for i := range reads {
		reads[i] = kmertax.Read{ID: strconv.Itoa(i), Seq: seq}
	}
	calls, stats := c.ClassifyAll(reads)
	require.Len(t, calls, 50)
	assert.Equal(t, 50, stats.Reads)
	assert.Equal(t, 50, stats.Classified)
	for i, call := range calls {
		assert.Equal(t, reads[i].ID, call.Read.ID)
		assert.Equal(t, "s__S", store.Name(call.Taxon))
	}
}

func TestSummaryBuilder(t *testing.T) {
	seq := "ACGTACGTACGTACGTACGTACGTA"
	store, fingerprints, params := buildSingle(t, "d__B;p__P;c__C;o__O;f__F;g__G;s__S", seq, 25)
	c := kmertax.NewClassifier(params, fingerprints, store)
	c.SetThresholds(kmertax.DefaultMinQuality, 1)

	summary := kmertax.NewSummaryBuilder(store)
	for i := 0; i < 3; i++ {
		summary.Add(c.Classify(kmertax.Read{ID: "q", Seq: seq}))
	}
	rows := summary.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].Reads)
	assert.Equal(t, int64(len(seq)*3), rows[0].Bases)
	assert.Equal(t, 1.0, rows[0].AverageConfidence())
}
