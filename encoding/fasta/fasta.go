// Package fasta contains code for parsing FASTA files holding taxonomically
// annotated reference sequences. FASTA files consist of a number of named
// sequences that may be interrupted by newlines. For example:
//
// >r1 d__Bacteria;p__Proteobacteria;c__Gammaproteobacteria
// ACGTAC
// GAGGAC
// GCG
// >r2 d__Bacteria;p__Firmicutes
// ACGT
//
// Note: Sequence names are defined to be the stretch of characters excluding
// spaces immediately after '>'. Any text appearing after the first space on
// the header line is kept verbatim as the record's Comment, which for a
// reference database is expected to hold the GTDB/SILVA lineage string.
package fasta

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const (
	mib            = 1024 * 1024
	bufferInitSize = 300 * mib
)

// Record is a single FASTA entry: a name, its lineage comment (if any), and
// its nucleotide sequence.
type Record struct {
	Name    string
	Comment string
	Seq     string
}

// Fasta holds every record read from a reference FASTA file, in order of
// appearance.
type Fasta struct {
	records  []Record
	byName   map[string]int
	seqNames []string
}

// New reads all FASTA records from r into memory.
func New(r io.Reader) (*Fasta, error) {
	f := &Fasta{byName: make(map[string]int)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, bufferInitSize)

	var (
		name, comment string
		seq           strings.Builder
		started       bool
	)
	flush := func() error {
		if !started {
			return nil
		}
		if name == "" {
			return errors.Errorf("malformed FASTA file")
		}
		f.byName[name] = len(f.records)
		f.seqNames = append(f.seqNames, name)
		f.records = append(f.records, Record{Name: name, Comment: comment, Seq: seq.String()})
		seq.Reset()
		return nil
	}
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' { // Start a new record.
			if err := flush(); err != nil {
				return nil, err
			}
			header := line[1:]
			if sp := strings.IndexByte(header, ' '); sp >= 0 {
				name, comment = header[:sp], header[sp+1:]
			} else {
				name, comment = header, ""
			}
			started = true
		} else {
			if !started {
				return nil, errors.Errorf("malformed FASTA file")
			}
			seq.WriteString(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "couldn't read FASTA data")
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return f, nil
}

// Records returns every record read, in file order.
func (f *Fasta) Records() []Record {
	return f.records
}

// SeqNames returns the names of all sequences, in the order of appearance in
// the FASTA file.
func (f *Fasta) SeqNames() []string {
	return f.seqNames
}

// Get returns the named record. ok is false if no such record was read.
func (f *Fasta) Get(name string) (Record, bool) {
	i, ok := f.byName[name]
	if !ok {
		return Record{}, false
	}
	return f.records[i], true
}
