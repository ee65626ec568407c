package catalog

import "strings"

// Score compares a requested name against a catalog string in [0,1].
// Exact match scores 1.0 and containment either way 0.9; everything else
// falls through to a matching-blocks sequence ratio.
func Score(s1, s2 string) float64 {
	s1 = strings.ToLower(strings.TrimSpace(s1))
	s2 = strings.ToLower(strings.TrimSpace(s2))
	if s1 == "" || s2 == "" {
		return 0
	}
	if s1 == s2 {
		return 1.0
	}
	if strings.Contains(s1, s2) || strings.Contains(s2, s1) {
		return 0.9
	}
	return ratio([]rune(s1), []rune(s2))
}

// ratio is 2*M/T where M totals the characters in the longest matching
// blocks found recursively and T is the combined length.
func ratio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 0
	}
	matches := matchingSize(a, b, 0, len(a), 0, len(b))
	return 2.0 * float64(matches) / float64(total)
}

func matchingSize(a, b []rune, alo, ahi, blo, bhi int) int {
	i, j, k := longestMatch(a, b, alo, ahi, blo, bhi)
	if k == 0 {
		return 0
	}
	return k + matchingSize(a, b, alo, i, blo, j) + matchingSize(a, b, i+k, ahi, j+k, bhi)
}

// longestMatch finds the longest contiguous block a[i:i+k] == b[j:j+k]
// within the given windows, earliest block winning ties.
func longestMatch(a, b []rune, alo, ahi, blo, bhi int) (int, int, int) {
	b2j := make(map[rune][]int, bhi-blo)
	for j := blo; j < bhi; j++ {
		b2j[b[j]] = append(b2j[b[j]], j)
	}

	besti, bestj, bestk := alo, blo, 0
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		newj2len := make(map[int]int)
		for _, j := range b2j[a[i]] {
			k := j2len[j-1] + 1
			newj2len[j] = k
			if k > bestk {
				besti, bestj, bestk = i-k+1, j-k+1, k
			}
		}
		j2len = newj2len
	}
	return besti, bestj, bestk
}
