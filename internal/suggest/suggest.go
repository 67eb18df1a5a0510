// Package suggest finds the closest known name to a mistyped one.
package suggest

// maxDistance is the largest edit distance still worth suggesting. It catches
// transpositions, dropped characters and extra characters.
const maxDistance = 3

// Closest returns the candidate nearest to unknown, or "" if none is within
// maxDistance. Ties go to the earliest candidate.
func Closest(unknown string, candidates []string) string {
	best := ""
	bestDistance := maxDistance + 1
	for _, c := range candidates {
		if d := Levenshtein(unknown, c); d < bestDistance {
			bestDistance = d
			best = c
		}
	}
	return best
}

// Levenshtein computes the edit distance between two strings using a single
// row of the distance matrix.
func Levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	if len(a) > len(b) {
		a, b = b, a
	}

	previous := make([]int, len(a)+1)
	for i := range previous {
		previous[i] = i
	}

	for j := 1; j <= len(b); j++ {
		current := make([]int, len(a)+1)
		current[0] = j
		for i := 1; i <= len(a); i++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			current[i] = min(previous[i]+1, current[i-1]+1, previous[i-1]+cost)
		}
		previous = current
	}

	return previous[len(a)]
}
