package engine

// SequenceCounter hands out the sequence numbers of one response: 1, 2, 3
// and so on, with no gaps. The zero value is ready to use.
type SequenceCounter struct {
	last int
}

// Next returns the next sequence number.
func (c *SequenceCounter) Next() int {
	c.last++
	return c.last
}

// Last returns the most recently issued number, or 0.
func (c *SequenceCounter) Last() int {
	return c.last
}
