package raster

// Mask marks valid pixels with true. It is laid out like band data.
type Mask []bool

// AllValid returns a mask where every pixel of grid is valid.
func AllValid(grid Grid) Mask {
	m := make(Mask, grid.Size())
	for i := range m {
		m[i] = true
	}
	return m
}

// And returns the pixelwise conjunction of m and other.
func (m Mask) And(other Mask) Mask {
	out := make(Mask, len(m))
	for i := range m {
		out[i] = m[i] && i < len(other) && other[i]
	}
	return out
}

func (m Mask) ValidCount() int {
	n := 0
	for _, v := range m {
		if v {
			n++
		}
	}
	return n
}
