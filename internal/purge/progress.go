package purge

const fineProgressThreshold = 500

// Marks holds the 1-based item indices after which progress is reported.
type Marks map[int]struct{}

// Has reports whether idx is a progress mark.
func (m Marks) Has(idx int) bool {
	_, ok := m[idx]
	return ok
}

// ProgressMarks returns the report points for a batch of total items: every
// 20% up to 500 items, every 1% above that. total itself is never a mark
// because completion gets its own line.
func ProgressMarks(total int) Marks {
	marks := Marks{}
	if total <= 0 {
		return marks
	}
	step := 20
	if total > fineProgressThreshold {
		step = 1
	}
	for p := step; p <= 100; p += step {
		idx := total * p / 100
		if idx <= 0 || idx == total {
			continue
		}
		marks[idx] = struct{}{}
	}
	return marks
}

// Percent is the whole percentage of total that idx represents, rounded down.
func Percent(idx, total int) int {
	if total <= 0 {
		return 0
	}
	return idx * 100 / total
}

// ProgressFunc receives a report each time the mutator passes a mark.
type ProgressFunc func(done, total, percent int)
