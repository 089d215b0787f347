package similarity

import "github.com/thebtf/logmine/pkg/models"

// Align aligns a and b into two sequences of equal length, inserting gaps so
// that the number of columns holding equal fields is maximal. Among alignments
// with the same number of matches the one with the fewest gap columns wins, so
// equal-length sequences that only differ in place stay unshifted.
//
// Remaining ties are broken during traceback from the end of both sequences,
// preferring a substitution, then a gap in b, then a gap in a. The result is a
// pure function of the inputs.
func Align(a, b models.TokenSequence) (models.TokenSequence, models.TokenSequence) {
	n, m := len(a), len(b)
	if n == 0 && m == 0 {
		return models.TokenSequence{}, models.TokenSequence{}
	}

	// A match is worth more than every possible gap penalty combined, which
	// makes the single integer score lexicographic in (matches, -gaps).
	matchWeight := n + m + 1
	cols := m + 1
	score := make([]int, (n+1)*cols)
	for i := 1; i <= n; i++ {
		score[i*cols] = -i
	}
	for j := 1; j <= m; j++ {
		score[j] = -j
	}

	pair := func(i, j int) int {
		if a[i-1].Equal(b[j-1]) {
			return matchWeight
		}
		return 0
	}

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			best := score[(i-1)*cols+j-1] + pair(i, j)
			if up := score[(i-1)*cols+j] - 1; up > best {
				best = up
			}
			if left := score[i*cols+j-1] - 1; left > best {
				best = left
			}
			score[i*cols+j] = best
		}
	}

	outA := make(models.TokenSequence, 0, n+m)
	outB := make(models.TokenSequence, 0, n+m)
	i, j := n, m
	for i > 0 || j > 0 {
		cur := score[i*cols+j]
		switch {
		case i > 0 && j > 0 && cur == score[(i-1)*cols+j-1]+pair(i, j):
			outA = append(outA, a[i-1])
			outB = append(outB, b[j-1])
			i--
			j--
		case i > 0 && cur == score[(i-1)*cols+j]-1:
			outA = append(outA, a[i-1])
			outB = append(outB, models.Gap())
			i--
		default:
			outA = append(outA, models.Gap())
			outB = append(outB, b[j-1])
			j--
		}
	}

	reverse(outA)
	reverse(outB)
	return outA, outB
}

func reverse(s models.TokenSequence) {
	for l, r := 0, len(s)-1; l < r; l, r = l+1, r-1 {
		s[l], s[r] = s[r], s[l]
	}
}
