package export

// RankRange is a 1-based inclusive row-index window bounding an export.
type RankRange struct {
	Start int64
	End   int64
}

// Rows returns the number of rows the range covers.
func (r RankRange) Rows() int64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// FullRange covers every row of a count-row result set.
func FullRange(count int64) RankRange {
	return RankRange{Start: 1, End: count}
}

// Clamp intersects r with [1, count]. Out-of-range requests are clamped, not
// rejected; ok is false only when the intersection is empty (including
// count = 0).
func (r RankRange) Clamp(count int64) (RankRange, bool) {
	if count <= 0 {
		return RankRange{}, false
	}
	if r.Start < 1 {
		r.Start = 1
	}
	if r.End > count {
		r.End = count
	}
	if r.End < r.Start {
		return RankRange{}, false
	}
	return r, true
}
