package learner

import (
	"fmt"
	"strings"

	"github.com/matzehuels/camml/pkg/errors"
	"github.com/matzehuels/camml/pkg/tom"
)

// DefaultMaxCombinations bounds the number of parent configurations a table
// learner accepts when none is configured.
const DefaultMaxCombinations = 1 << 12

// table holds the counts of one variable per parent configuration,
// configuration-major: counts[c*arity+k].
type table struct {
	arity   int
	configs int
	counts  []int
}

// configurations returns the number of joint parent states, or an error when
// it exceeds limit.
func configurations(name string, data tom.Dataset, node int, parents []int, limit int) (int, error) {
	configs := 1
	for _, p := range parents {
		configs *= data.Arity(p)
		if configs > limit {
			return 0, &errors.LearnerError{
				Learner: name,
				Node:    node,
				Parents: parents,
				Reason:  fmt.Sprintf("more than %d parent combinations", limit),
			}
		}
	}
	return configs, nil
}

// tabulate counts node's states per parent configuration. The first parent
// varies slowest.
func tabulate(data tom.Dataset, node int, parents []int, configs int) *table {
	t := &table{arity: data.Arity(node), configs: configs}
	t.counts = make([]int, configs*t.arity)
	for r := 0; r < data.Len(); r++ {
		c := 0
		for _, p := range parents {
			c = c*data.Arity(p) + data.Value(r, p)
		}
		t.counts[c*t.arity+data.Value(r, node)]++
	}
	return t
}

// row returns the counts of configuration c and their total.
func (t *table) row(c int) ([]int, int) {
	row := t.counts[c*t.arity : (c+1)*t.arity]
	total := 0
	for _, n := range row {
		total += n
	}
	return row, total
}

func limitOr(limit int) int {
	if limit <= 0 {
		return DefaultMaxCombinations
	}
	return limit
}

func describe(parents []int) string {
	if len(parents) == 0 {
		return "-"
	}
	parts := make([]string, len(parents))
	for i, p := range parents {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, ",")
}
