package analytics

import "strings"

// Levenshtein computes the edit distance between two strings: the minimum
// number of single-character insertions, deletions and substitutions turning
// one into the other. It is the distance metric behind fuzzy menu item
// matching, tolerating the naming noise LLM deciders produce ("burrito" vs
// "buritos").
func Levenshtein(s1, s2 string) int {
	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) < len(r2) {
		r1, r2 = r2, r1
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	cur := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i, c1 := range r1 {
		cur[0] = i + 1
		for j, c2 := range r2 {
			cost := 0
			if c1 != c2 {
				cost = 1
			}
			cur[j+1] = min(prev[j+1]+1, cur[j]+1, prev[j]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(r2)]
}

// foldDistance compares names case-insensitively, the form every matching
// decision in this package uses.
func foldDistance(a, b string) int {
	return Levenshtein(strings.ToLower(a), strings.ToLower(b))
}
