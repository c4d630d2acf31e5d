package kmertax_test

import (
	"testing"

	"github.com/grailbio/kmertax/kmertax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSingleReference(t *testing.T) {
	refs := []kmertax.Reference{
		{Name: "r1", Lineage: "d__B;p__P;c__C;o__O;f__F;g__G;s__S", Seq: "ACGTACGTACGTACGTACGTACGTA"},
	}
	store, kept, taxa, warnings := kmertax.BuildFromLineages(refs)
	require.Empty(t, warnings)

	b := kmertax.NewBuilder(kmertax.Params{K: 25}, store)
	fingerprints, stats, err := b.Build(kept, taxa)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DistinctKmers)
	assert.Len(t, fingerprints, 1)
}

func TestBuildRejectsEmptyResult(t *testing.T) {
	refs := []kmertax.Reference{
		{Name: "r1", Lineage: "d__B;p__P;c__C;o__O;f__F;g__G;s__S", Seq: "ACGT"},
	}
	store, kept, taxa, warnings := kmertax.BuildFromLineages(refs)
	require.Empty(t, warnings)

	b := kmertax.NewBuilder(kmertax.Params{K: 31}, store)
	_, _, err := b.Build(kept, taxa)
	assert.Error(t, err)
}

func TestBuildMergesAmbiguousKmerToLCA(t *testing.T) {
	// Two species under the same genus, sharing a single identical sequence
	// (hence the same fingerprint set): the fingerprint must resolve to the
	// genus, not either species.
	seq := "ACGTACGTACGTACGTACGTACGTA"
	refs := []kmertax.Reference{
		{Name: "r1", Lineage: "d__B;p__P;c__C;o__O;f__F;g__G;s__X", Seq: seq},
		{Name: "r2", Lineage: "d__B;p__P;c__C;o__O;f__F;g__G;s__Y", Seq: seq},
	}
	store, kept, taxa, warnings := kmertax.BuildFromLineages(refs)
	require.Empty(t, warnings)

	b := kmertax.NewBuilder(kmertax.Params{K: 25}, store)
	fingerprints, stats, err := b.Build(kept, taxa)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.AmbiguousKmers)

	idX, _ := store.Lookup("d__B;p__P;c__C;o__O;f__F;g__G;s__X")
	genus, _ := store.Parent(idX)
	for _, taxon := range fingerprints {
		assert.Equal(t, genus, taxon)
	}
}

func TestBuildFromLineagesSkipsMalformed(t *testing.T) {
	refs := []kmertax.Reference{
		{Name: "bad", Lineage: "not-a-lineage", Seq: "ACGT"},
		{Name: "good", Lineage: "d__B;p__P;c__C;o__O;f__F;g__G;s__S", Seq: "ACGTACGTACGTACGTACGTACGTA"},
	}
	_, kept, taxa, warnings := kmertax.BuildFromLineages(refs)
	require.Len(t, warnings, 1)
	require.Len(t, kept, 1)
	assert.Equal(t, "good", kept[0].Name)
	assert.Len(t, taxa, 1)
}

func TestBuildFailsOnEmptyTaxonomy(t *testing.T) {
	store := kmertax.NewStore()
	b := kmertax.NewBuilder(kmertax.Params{K: 25}, store)
	_, _, err := b.Build(nil, nil)
	assert.Error(t, err)
}
