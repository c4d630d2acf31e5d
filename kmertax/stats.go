package kmertax

// BuildStats summarizes one database build. Grounded on fusion/stats.go's
// plain value-type Stats with a Merge method used to fan results back in
// from a worker pool.
type BuildStats struct {
	References     int // reference sequences processed
	Fingerprints   int // total fingerprints extracted, including duplicates
	DistinctKmers  int // final size of the fingerprint -> taxon map
	AmbiguousKmers int // LCA merges: times a mapped fingerprint was seen under a different taxon
}

// Merge adds the field values of two BuildStats and returns the sum.
func (s BuildStats) Merge(o BuildStats) BuildStats {
	s.References += o.References
	s.Fingerprints += o.Fingerprints
	s.DistinctKmers += o.DistinctKmers
	s.AmbiguousKmers += o.AmbiguousKmers
	return s
}

// ClassifyStats summarizes one classification run across a FASTQ stream.
type ClassifyStats struct {
	Reads        int
	Classified   int // reads assigned a taxon other than RootID
	Unclassified int
}

// Merge adds the field values of two ClassifyStats and returns the sum.
func (s ClassifyStats) Merge(o ClassifyStats) ClassifyStats {
	s.Reads += o.Reads
	s.Classified += o.Classified
	s.Unclassified += o.Unclassified
	return s
}

// TaxonSummary is one row of the classification summary report: how many
// reads landed on a given taxonomy label, how many bases they totaled, and
// the mean confidence of those calls. Name is the rendered TaxonomyLabel
// ("no hits", "unclassified", or a level name), not a raw TaxonID, so that
// "no hits" reads and resolved-but-unnamed reads never share a row.
type TaxonSummary struct {
	Name          string
	Reads         int
	Bases         int64
	confidenceSum float64
}

// AverageConfidence returns the mean confidence across the reads folded
// into this summary row, or 0 if no reads were folded in.
func (t TaxonSummary) AverageConfidence() float64 {
	if t.Reads == 0 {
		return 0
	}
	return t.confidenceSum / float64(t.Reads)
}

// SummaryBuilder accumulates per-taxon read counts, base totals, and
// confidence sums as a classifier processes a read stream, then emits a
// flat report. It is not safe for concurrent use; kmertax-classify feeds it
// from a single goroutine, adding each Call after ClassifyAll returns.
type SummaryBuilder struct {
	rows map[string]*TaxonSummary
	tax  *Store
}

// NewSummaryBuilder returns an empty SummaryBuilder that will resolve taxon
// labels against tax.
func NewSummaryBuilder(tax *Store) *SummaryBuilder {
	return &SummaryBuilder{rows: make(map[string]*TaxonSummary), tax: tax}
}

// Add folds one classified read's call into the report.
func (b *SummaryBuilder) Add(call Call) {
	name := TaxonomyLabel(b.tax, call)
	row, ok := b.rows[name]
	if !ok {
		row = &TaxonSummary{Name: name}
		b.rows[name] = row
	}
	row.Reads++
	row.Bases += int64(len(call.Read.Seq))
	row.confidenceSum += call.Confidence
}

// Rows returns the accumulated summary rows in no particular order.
func (b *SummaryBuilder) Rows() []TaxonSummary {
	out := make([]TaxonSummary, 0, len(b.rows))
	for _, row := range b.rows {
		out = append(out, *row)
	}
	return out
}
