// Package spelling suggests vocabulary tokens for terms the index does not know.
package spelling

// Distance computes the Damerau-Levenshtein distance between two strings: the
// minimum number of single-rune insertions, deletions, substitutions or adjacent
// transpositions turning a into b.
// It stops early and returns limit+1 once the distance is known to exceed limit.
func Distance(a, b string, limit int) int {
	runesA := []rune(a)
	runesB := []rune(b)

	lenA := len(runesA)
	lenB := len(runesB)

	if abs(lenA-lenB) > limit {
		return limit + 1
	}
	if lenA == 0 {
		return lenB
	}
	if lenB == 0 {
		return lenA
	}

	// Three rows: transpositions look two rows back.
	prevPrevRow := make([]int, lenB+1)
	prevRow := make([]int, lenB+1)
	currRow := make([]int, lenB+1)

	for j := 0; j <= lenB; j++ {
		prevRow[j] = j
	}

	for i := 1; i <= lenA; i++ {
		currRow[0] = i
		minInRow := i

		for j := 1; j <= lenB; j++ {
			cost := 0
			if runesA[i-1] != runesB[j-1] {
				cost = 1
			}

			currRow[j] = min(
				prevRow[j]+1,      // deletion
				currRow[j-1]+1,    // insertion
				prevRow[j-1]+cost, // substitution
			)

			if i > 1 && j > 1 &&
				runesA[i-1] == runesB[j-2] &&
				runesA[i-2] == runesB[j-1] {
				currRow[j] = min(currRow[j], prevPrevRow[j-2]+cost)
			}

			minInRow = min(minInRow, currRow[j])
		}

		// No cell of a later row can be smaller than this row's minimum.
		if minInRow > limit {
			return limit + 1
		}

		prevPrevRow, prevRow, currRow = prevRow, currRow, prevPrevRow
	}

	return prevRow[lenB]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
