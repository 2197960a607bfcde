// Package diff computes line-level diffs between prompt revisions. The
// output is a display artifact, not a patch format.
package diff

import "strings"

type OpType string

const (
	OpAdded   OpType = "added"
	OpRemoved OpType = "removed"
	OpContext OpType = "context"
)

// Line numbering for added/context lines follows the revised sequence;
// removed lines follow the original sequence. Both are 1-based.
type Line struct {
	Type       OpType `json:"type"`
	LineNumber int    `json:"line_number"`
	Content    string `json:"content"`
}

// Compute returns the longest-common-subsequence line diff between the
// original and revised strings. Identical inputs produce an empty list.
func Compute(original string, revised string) []Line {
	if original == revised {
		return nil
	}

	a := strings.Split(original, "\n")
	b := strings.Split(revised, "\n")

	// lcs[i][j] holds the LCS length of a[i:] and b[j:].
	lcs := make([][]int, len(a)+1)
	for i := range lcs {
		lcs[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	lines := make([]Line, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			lines = append(lines, Line{Type: OpContext, LineNumber: j + 1, Content: b[j]})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			lines = append(lines, Line{Type: OpRemoved, LineNumber: i + 1, Content: a[i]})
			i++
		default:
			lines = append(lines, Line{Type: OpAdded, LineNumber: j + 1, Content: b[j]})
			j++
		}
	}
	for ; i < len(a); i++ {
		lines = append(lines, Line{Type: OpRemoved, LineNumber: i + 1, Content: a[i]})
	}
	for ; j < len(b); j++ {
		lines = append(lines, Line{Type: OpAdded, LineNumber: j + 1, Content: b[j]})
	}

	return lines
}
