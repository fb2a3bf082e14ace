package stencil

// Segment is a run of one output scanline. Covered runs are interpolated,
// the others are filled with the background pixel.
type Segment struct {
	Range
	Covered bool
}

// Clipper walks one output scanline at a time and yields the gaps and
// covered ranges of the stencil in order, so that together they tile
// [lo, hi] exactly. A Clipper is not safe for concurrent use; each worker
// keeps its own.
type Clipper struct {
	stencil Stencil
	lo, hi  int

	y, z    int
	iter    int
	cursor  int
	pending Range
	hasPend bool
	done    bool
}

// NewClipper returns a clipper over x in [lo, hi]. s may be nil, in which
// case every row is a single covered segment.
func NewClipper(s Stencil, lo, hi int) *Clipper {
	return &Clipper{stencil: s, lo: lo, hi: hi, done: true}
}

// Reset starts row (y, z).
func (c *Clipper) Reset(y, z int) {
	c.y, c.z = y, z
	c.iter = 0
	c.cursor = c.lo
	c.hasPend = false
	c.done = c.hi < c.lo
}

// Next returns the next segment of the current row.
func (c *Clipper) Next() (Segment, bool) {
	if c.done {
		return Segment{}, false
	}
	if c.stencil == nil {
		c.done = true
		return Segment{Range: Range{c.lo, c.hi}, Covered: true}, true
	}

	if c.hasPend {
		c.hasPend = false
		c.cursor = c.pending.End + 1
		return Segment{Range: c.pending, Covered: true}, true
	}

	r, ok := c.stencil.NextRange(c.y, c.z, c.cursor, c.hi, &c.iter)
	if !ok {
		c.done = true
		if c.cursor > c.hi {
			return Segment{}, false
		}
		return Segment{Range: Range{c.cursor, c.hi}}, true
	}
	if r.Start > c.cursor {
		gap := Range{c.cursor, r.Start - 1}
		c.pending, c.hasPend = r, true
		return Segment{Range: gap}, true
	}
	c.cursor = r.End + 1
	return Segment{Range: r, Covered: true}, true
}
