// Command kmertax-classify loads a k-mer classification database built by
// kmertax-build and classifies every read in a FASTQ stream against it,
// writing a per-read classification file and a per-taxonomy summary.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/kmertax/encoding/fastq"
	"github.com/grailbio/kmertax/kmertax"
)

func loadDatabase(ctx context.Context, dir string) (kmertax.Params, *kmertax.Store, map[uint64]kmertax.TaxonID) {
	paramsData := readFile(ctx, filepath.Join(dir, "params.json"))
	params, names, err := kmertax.DecodeParams(paramsData)
	if err != nil {
		log.Panicf("decoding params.json: %v", err)
	}

	lineageData := readFile(ctx, filepath.Join(dir, "lineage.bin"))
	store, err := kmertax.ReadTaxonomy(strings.NewReader(string(lineageData)), names)
	if err != nil {
		log.Panicf("decoding lineage.bin: %v", err)
	}

	in, err := file.Open(ctx, filepath.Join(dir, "kmers.bin"))
	if err != nil {
		log.Panicf("open kmers.bin: %v", err)
	}
	fingerprints, err := kmertax.ReadKmers(in.Reader(ctx))
	if err != nil {
		log.Panicf("decoding kmers.bin: %v", err)
	}
	if err := in.Close(ctx); err != nil {
		log.Panicf("close kmers.bin: %v", err)
	}
	if err := params.Validate(); err != nil {
		log.Panicf("database has invalid parameters: %v", err)
	}
	return params, store, fingerprints
}

func readFile(ctx context.Context, path string) []byte {
	in, err := file.Open(ctx, path)
	if err != nil {
		log.Panicf("open %v: %v", path, err)
	}
	data, err := ioutil.ReadAll(in.Reader(ctx))
	if err != nil {
		log.Panicf("read %v: %v", path, err)
	}
	if err := in.Close(ctx); err != nil {
		log.Panicf("close %v: %v", path, err)
	}
	return data
}

func main() {
	var (
		dbDir      = flag.String("db", "", "Database directory produced by kmertax-build.")
		readsPath  = flag.String("reads", "", "FASTQ file of query reads, optionally gzip-compressed.")
		outPrefix  = flag.String("out", "", "Output prefix; writes <prefix>_classification.txt and <prefix>_summary.txt.")
		minQuality = flag.Int("quality", kmertax.DefaultMinQuality, "Phred+33 quality threshold below which a base is masked.")
		minHits    = flag.Int("min-hits", kmertax.DefaultMinHits, "Minimum matching fingerprints required to classify a read.")
	)
	flag.Parse()
	if *dbDir == "" || *readsPath == "" || *outPrefix == "" {
		log.Fatal("-db, -reads, and -out are required")
	}

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	params, store, fingerprints := loadDatabase(ctx, *dbDir)
	log.Printf("loaded database: k=%d m=%d %d taxa %d fingerprints", params.K, params.M, store.Len(), len(fingerprints))

	in, err := file.Open(ctx, *readsPath)
	if err != nil {
		log.Panicf("open %v: %v", *readsPath, err)
	}
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, in.Name()); u != nil {
		r = u
	}
	scanner := fastq.NewScanner(r, fastq.ID|fastq.Seq|fastq.Qual)
	var reads []kmertax.Read
	var fqRead fastq.Read
	for scanner.Scan(&fqRead) {
		id := strings.TrimPrefix(fqRead.ID, "@")
		reads = append(reads, kmertax.Read{ID: id, Seq: fqRead.Seq, Qual: fqRead.Qual})
	}
	if err := scanner.Err(); err != nil {
		log.Panicf("scanning %v: %v", *readsPath, err)
	}
	if err := in.Close(ctx); err != nil {
		log.Panicf("close %v: %v", *readsPath, err)
	}
	log.Printf("loaded %d reads from %s", len(reads), *readsPath)

	classifier := kmertax.NewClassifier(params, fingerprints, store)
	classifier.SetThresholds(*minQuality, *minHits)
	calls, stats := classifier.ClassifyAll(reads)
	log.Printf("classified %d reads: %d assigned, %d unclassified", stats.Reads, stats.Classified, stats.Unclassified)

	writeClassification(ctx, *outPrefix+"_classification.txt", store, calls)
	writeSummary(ctx, *outPrefix+"_summary.txt", store, calls)
}

func writeClassification(ctx context.Context, path string, store *kmertax.Store, calls []kmertax.Call) {
	out, err := file.Create(ctx, path)
	if err != nil {
		log.Panicf("create %v: %v", path, err)
	}
	w := bufio.NewWriter(out.Writer(ctx))
	for _, call := range calls {
		name := kmertax.TaxonomyLabel(store, call)
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", call.Read.ID, name, call.Hits, call.Fingerprints)
	}
	if err := w.Flush(); err != nil {
		log.Panicf("write %v: %v", path, err)
	}
	if err := out.Close(ctx); err != nil {
		log.Panicf("close %v: %v", path, err)
	}
}

func writeSummary(ctx context.Context, path string, store *kmertax.Store, calls []kmertax.Call) {
	summary := kmertax.NewSummaryBuilder(store)
	for _, call := range calls {
		summary.Add(call)
	}
	rows := summary.Rows()
	sort.Slice(rows, func(i, j int) bool { return rows[i].Reads > rows[j].Reads })

	out, err := file.Create(ctx, path)
	if err != nil {
		log.Panicf("create %v: %v", path, err)
	}
	w := bufio.NewWriter(out.Writer(ctx))
	fmt.Fprintf(w, "Taxonomy\tReads\tAvg_Score\tTotal_Bases\n")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%d\t%.3f\t%d\n", row.Name, row.Reads, row.AverageConfidence(), row.Bases)
	}
	if err := w.Flush(); err != nil {
		log.Panicf("write %v: %v", path, err)
	}
	if err := out.Close(ctx); err != nil {
		log.Panicf("close %v: %v", path, err)
	}
}
