// Package score grades recall responses against target sequences.
package score

import "strings"

// Result holds the grade for one submitted response.
type Result struct {
	Correct  int
	Accuracy float64
}

// Sanitize strips everything but decimal digits from a raw submission.
func Sanitize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Score compares response to target position by position. Missing trailing
// positions count as misses; extra trailing characters are ignored.
// Accuracy is 0 for an empty target.
func Score(target, response string) Result {
	correct := 0
	for i := 0; i < len(target); i++ {
		if i < len(response) && response[i] == target[i] {
			correct++
		}
	}
	res := Result{Correct: correct}
	if len(target) > 0 {
		res.Accuracy = float64(correct) / float64(len(target))
	}
	return res
}
