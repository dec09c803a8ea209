package catalog

import (
	"strconv"
	"strings"

	"github.com/tbourn/cptrainer/internal/domain"
)

// ProblemURL renders the public page of p under base,
// e.g. https://codeforces.com/problemset/problem/1843/C.
func ProblemURL(base string, p domain.Problem) string {
	return strings.TrimRight(base, "/") + "/" + strconv.Itoa(p.ContestID) + "/" + p.Index
}
