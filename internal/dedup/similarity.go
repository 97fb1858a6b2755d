// Package dedup clusters near-duplicate postings within one company and
// marks every non-canonical member as superseded.
package dedup

import "strings"

// SequenceSimilarity returns a normalized alignment ratio in [0,1] between
// two strings, 1.0 for identical input. It follows the Ratcliff/Obershelp
// measure: twice the total length of matching blocks over the combined
// length, computed case-insensitively. Either side empty yields 0.0.
func SequenceSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))
	matched := matchingRunes(ra, rb)
	return 2.0 * float64(matched) / float64(len(ra)+len(rb))
}

// matchingRunes sums the lengths of matching blocks: the longest common
// block first, then recursively the regions to its left and right. Ties on
// length prefer the earliest block in a, then in b, matching the reference
// SequenceMatcher behavior.
func matchingRunes(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ai, bi, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingRunes(a[:ai], b[:bi])
	total += matchingRunes(a[ai+size:], b[bi+size:])
	return total
}

func longestMatch(a, b []rune) (bestA, bestB, bestSize int) {
	// lengths[j] is the length of the common suffix ending at a[i], b[j]
	// from the previous row.
	lengths := make([]int, len(b))
	for i := range a {
		prev := 0
		for j := range b {
			cur := lengths[j]
			if a[i] == b[j] {
				lengths[j] = prev + 1
				if lengths[j] > bestSize {
					bestSize = lengths[j]
					bestA = i - bestSize + 1
					bestB = j - bestSize + 1
				}
			} else {
				lengths[j] = 0
			}
			prev = cur
		}
	}
	return bestA, bestB, bestSize
}

// Jaccard returns intersection-over-union for two token sets, 0.0 when the
// union is empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	intersection := 0
	for term := range a {
		if _, ok := b[term]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}
