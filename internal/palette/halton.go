package palette

// Halton returns the radical inverse of index in the given base: the base-b
// digits of index mirrored around the radix point. Halton(0, b) is 0.
func Halton(index, base int) float64 {
	if index < 0 || base < 2 {
		return 0
	}
	var result float64
	f := 1 / float64(base)
	for i := index; i > 0; i /= base {
		result += f * float64(i%base)
		f /= float64(base)
	}
	return result
}

// HaltonSequence generates colors whose red, green and blue channels are the
// Halton sequences in bases 2, 3 and 5. Any prefix of the sequence is well
// spread over the RGB cube.
type HaltonSequence struct {
	offset int
	next   int
}

// NewHalton starts a sequence at index offset, which lets callers skip colors
// already used elsewhere.
func NewHalton(offset int) *HaltonSequence {
	if offset < 0 {
		offset = 0
	}
	return &HaltonSequence{offset: offset}
}

// At returns the k-th color of the sequence, counted from the offset.
func (h *HaltonSequence) At(k int) RGB {
	i := h.offset + k
	return RGB{R: Halton(i, 2), G: Halton(i, 3), B: Halton(i, 5)}
}

// Next returns the next color and advances the sequence.
func (h *HaltonSequence) Next() RGB {
	c := h.At(h.next)
	h.next++
	return c
}

// Take returns the next n colors.
func (h *HaltonSequence) Take(n int) []RGB {
	out := make([]RGB, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, h.Next())
	}
	return out
}

// Reset restarts the sequence at its offset.
func (h *HaltonSequence) Reset() { h.next = 0 }

// Assign implements Assigner. It does not advance the sequence.
func (h *HaltonSequence) Assign(runIndex int) RGB {
	if runIndex < 0 {
		runIndex = 0
	}
	return h.At(runIndex)
}
