// Package kmertax implements the core of a k-mer based taxonomic sequence
// classifier: 2-bit nucleotide encoding and canonicalization, sliding-window
// and minimizer k-mer extraction, a GTDB/SILVA-style taxonomy tree with LCA
// arithmetic, a reference database builder, and a read classifier.
//
// FASTA/FASTQ record parsing, command-line argument parsing, and directory
// management are treated as external collaborators and live outside this
// package (see encoding/fasta, encoding/fastq, and cmd/).
package kmertax
