// Command kmertax-build reads a reference FASTA, whose headers carry a
// GTDB/SILVA-style lineage in the comment field, and writes a k-mer
// classification database (params.json, lineage.bin, kmers.bin) to an
// output directory.
package main

import (
	"context"
	"flag"
	"io"
	"path/filepath"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/kmertax/encoding/fasta"
	"github.com/grailbio/kmertax/kmertax"
)

func main() {
	var (
		referencePath = flag.String("reference", "", "Reference FASTA file. Headers must carry a GTDB/SILVA lineage in the comment field.")
		outDir        = flag.String("out", "", "Output database directory.")
		k             = flag.Int("k", 21, "Kmer size.")
		m             = flag.Int("m", 0, "Minimizer size. 0 disables minimizer mode.")
		shapePattern  = flag.String("shape", "", "Spaced kmer shape pattern (e.g. OO-OO). Mutually exclusive with -m and overrides -k.")
	)
	flag.Parse()
	if *referencePath == "" || *outDir == "" {
		log.Fatal("-reference and -out are required")
	}

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	params := kmertax.Params{K: *k, M: *m}
	if *shapePattern != "" {
		shape, err := kmertax.ParseShape(*shapePattern)
		if err != nil {
			log.Panicf("invalid -shape: %v", err)
		}
		params.Shape = shape
		params.K = 0
	}
	if err := params.Validate(); err != nil {
		log.Panicf("invalid kmer configuration: %v", err)
	}
	params.ValueBits = kmertax.DefaultValueBits

	in, err := file.Open(ctx, *referencePath)
	if err != nil {
		log.Panicf("open %v: %v", *referencePath, err)
	}
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, in.Name()); u != nil {
		r = u
	}
	fa, err := fasta.New(r)
	if err != nil {
		log.Panicf("parse %v: %v", *referencePath, err)
	}
	if err := in.Close(ctx); err != nil {
		log.Panicf("close %v: %v", *referencePath, err)
	}

	records := fa.Records()
	refs := make([]kmertax.Reference, len(records))
	for i, rec := range records {
		refs[i] = kmertax.Reference{Name: rec.Name, Lineage: rec.Comment, Seq: rec.Seq}
	}
	log.Printf("loaded %d reference sequences from %s", len(refs), *referencePath)

	store, kept, taxa, warnings := kmertax.BuildFromLineages(refs)
	for _, w := range warnings {
		log.Printf("warning: %v", w)
	}
	log.Printf("%d references carried a valid lineage; %d taxa", len(kept), store.Len())

	builder := kmertax.NewBuilder(params, store)
	fingerprints, stats, err := builder.Build(kept, taxa)
	if err != nil {
		log.Panicf("build: %v", err)
	}
	log.Printf("extracted %d fingerprints (%d distinct, %d ambiguous) from %d references",
		stats.Fingerprints, stats.DistinctKmers, stats.AmbiguousKmers, stats.References)
	params.NumKmers = stats.DistinctKmers

	writeFile(ctx, filepath.Join(*outDir, "params.json"), func(w io.Writer) error {
		data, err := kmertax.EncodeParams(params, store)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
	writeFile(ctx, filepath.Join(*outDir, "lineage.bin"), func(w io.Writer) error {
		return kmertax.WriteTaxonomy(w, store)
	})
	writeFile(ctx, filepath.Join(*outDir, "kmers.bin"), func(w io.Writer) error {
		return kmertax.WriteKmers(w, fingerprints)
	})
	log.Printf("wrote database to %s", *outDir)
}

// writeFile creates path via the file package (so the output directory can
// be a local path or any scheme file.Create supports) and runs write
// against its Writer, panicking on any failure the same way the rest of
// this command reports fatal I/O errors.
func writeFile(ctx context.Context, path string, write func(io.Writer) error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		log.Panicf("create %v: %v", path, err)
	}
	if err := write(out.Writer(ctx)); err != nil {
		log.Panicf("write %v: %v", path, err)
	}
	if err := out.Close(ctx); err != nil {
		log.Panicf("close %v: %v", path, err)
	}
}
