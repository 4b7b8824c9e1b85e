package grid

// UsedRange returns the bounding box of the materialized cells. The second
// result is false when the store is empty.
func UsedRange(s *Store) (Range, bool) {
	minRow, maxRow := -1, -1
	minCol, maxCol := -1, -1

	for ref := range s.All() {
		if minRow < 0 || ref.Row < minRow {
			minRow = ref.Row
		}
		if ref.Row > maxRow {
			maxRow = ref.Row
		}
		if minCol < 0 || ref.Col < minCol {
			minCol = ref.Col
		}
		if ref.Col > maxCol {
			maxCol = ref.Col
		}
	}

	if minRow < 0 {
		return Range{}, false
	}
	return Range{
		Start: Ref{Row: minRow, Col: minCol},
		End:   Ref{Row: maxRow, Col: maxCol},
	}, true
}

// CountIn returns the number of materialized cells inside r. It scans
// whichever is smaller: the rectangle or the store.
func CountIn(s *Store, r Range) int {
	count := 0
	if r.Size() <= s.Count() {
		for ref := range r.Cells() {
			if !s.Get(ref.Row, ref.Col).IsDefault() {
				count++
			}
		}
		return count
	}
	for ref := range s.All() {
		if r.Contains(ref) {
			count++
		}
	}
	return count
}
