package kmertax

import "github.com/pkg/errors"

// Shape is a spaced k-mer pattern over {O, -}, where 'O' means "include this
// base" and '-' means "skip". Plain k-mer mode is equivalent to a shape of
// exactly K 'O's.
type Shape struct {
	pattern   string
	positions []int // offsets within the window where the pattern is 'O'
}

// ParseShape validates a shape pattern and derives its k (count of 'O's,
// must be in [1, 31]) and window (pattern length).
func ParseShape(pattern string) (*Shape, error) {
	if pattern == "" {
		return nil, errors.New("kmertax: empty kmer shape")
	}
	var positions []int
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case 'O':
			positions = append(positions, i)
		case '-':
		default:
			return nil, errors.Errorf("kmertax: invalid character %q in kmer shape %q", pattern[i], pattern)
		}
	}
	if len(positions) < 1 || len(positions) > 31 {
		return nil, errors.Errorf("kmertax: kmer shape %q has k=%d, want 1..31", pattern, len(positions))
	}
	return &Shape{pattern: pattern, positions: positions}, nil
}

// K is the number of included positions ('O's) in the shape.
func (s *Shape) K() int { return len(s.positions) }

// Window is the total length of the shape pattern.
func (s *Shape) Window() int { return len(s.pattern) }

// Positions returns the offsets, in increasing order, of the 'O' positions.
func (s *Shape) Positions() []int { return s.positions }

// Pattern returns the original shape string.
func (s *Shape) Pattern() string { return s.pattern }
