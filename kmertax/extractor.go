package kmertax

// toggleConstant is the fixed bit pattern XORed into a canonical minimizer
// key before ordering, to break ties without biasing toward low-complexity
// m-mers. It must never change: a build and a later classification run must
// agree on it to pick the same minimizers.
const toggleConstant = uint64(0xe37e28c4271b5a2d)

type minimizerEntry struct {
	key uint64
	pos int
}

// Cursor walks a nucleotide string, emitting canonical fingerprints in
// positional order. A Cursor is single-use: once Scan returns false, it is
// exhausted. This mirrors the rolling-accumulator Scan()/Get() cursor that
// fusion/kmer.go's kmerizer exposes, generalized to the three extraction
// modes spec'd for this classifier (plain, minimizer, shaped).
type Cursor struct {
	scan func() bool
	cur  uint64
}

// Scan advances the cursor to the next fingerprint. It returns false once the
// sequence is exhausted; the caller must not call Scan again afterward.
func (c *Cursor) Scan() bool { return c.scan() }

// Fingerprint returns the fingerprint produced by the most recent successful
// Scan call.
func (c *Cursor) Fingerprint() uint64 { return c.cur }

// NewCursor constructs a Cursor over seq using p's k/m/shape configuration.
// p is assumed already validated (see Params.Validate); the extractor itself
// never rejects malformed input, it simply emits fewer fingerprints.
func NewCursor(p Params, seq string) *Cursor {
	switch {
	case p.Shape != nil:
		return newShapedCursor(p.Shape, seq)
	case p.M > 0:
		return newMinimizerCursor(p.K, p.M, seq)
	default:
		return newPlainCursor(p.K, seq)
	}
}

// Extract drains a Cursor over seq and returns every fingerprint in
// positional order.
func Extract(p Params, seq string) []uint64 {
	c := NewCursor(p, seq)
	var out []uint64
	for c.Scan() {
		out = append(out, c.Fingerprint())
	}
	return out
}

func newPlainCursor(k int, seq string) *Cursor {
	var (
		i        int
		acc      uint64
		validLen int
		mask     = uint64(1)<<(2*uint(k)) - 1
	)
	c := &Cursor{}
	c.scan = func() bool {
		for i < len(seq) {
			code, ok := EncodeBase(seq[i])
			i++
			if !ok {
				acc, validLen = 0, 0
				continue
			}
			acc = ((acc << 2) | uint64(code)) & mask
			validLen++
			if validLen >= k {
				c.cur = Canonical(acc, uint8(k))
				return true
			}
		}
		return false
	}
	return c
}

func newMinimizerCursor(k, m int, seq string) *Cursor {
	var (
		i        int
		mAcc     uint64
		validLen int
		mMask    = uint64(1)<<(2*uint(m)) - 1
		toggle   = toggleConstant & mMask
		deque    []minimizerEntry
	)
	c := &Cursor{}
	c.scan = func() bool {
		for i < len(seq) {
			pos := i
			code, ok := EncodeBase(seq[i])
			i++
			if !ok {
				mAcc, validLen = 0, 0
				deque = deque[:0]
				continue
			}
			mAcc = ((mAcc << 2) | uint64(code)) & mMask
			validLen++
			if validLen >= m {
				ck := Canonical(mAcc, uint8(m)) ^ toggle
				for len(deque) > 0 && deque[len(deque)-1].key >= ck {
					deque = deque[:len(deque)-1]
				}
				deque = append(deque, minimizerEntry{key: ck, pos: pos})
			}
			for len(deque) > 0 && deque[0].pos < pos-k+m+1 {
				deque = deque[1:]
			}
			if validLen >= k {
				c.cur = deque[0].key ^ toggle
				return true
			}
		}
		return false
	}
	return c
}

func newShapedCursor(shape *Shape, seq string) *Cursor {
	var (
		s         int
		window    = shape.Window()
		k         = uint8(shape.K())
		positions = shape.Positions()
	)
	c := &Cursor{}
	c.scan = func() bool {
		for s+window <= len(seq) {
			offset := s
			s++
			var packed uint64
			valid := true
			for _, p := range positions {
				code, ok := EncodeBase(seq[offset+p])
				if !ok {
					valid = false
					break
				}
				packed = (packed << 2) | uint64(code)
			}
			if valid {
				c.cur = Canonical(packed, k)
				return true
			}
		}
		return false
	}
	return c
}
