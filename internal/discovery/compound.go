package discovery

import (
	"context"
	"sort"
	"strings"

	"factorlens/domain/factor"
	"factorlens/domain/outcome"
)

// compoundFindings tests pairwise AND conditions, but only over single
// factors that already cleared the acceptance gate; that bound keeps the
// combinatorial search linear in accepted patterns rather than exponential
// in conditions. Pairs are restricted to distinct factor types so the
// compound adds information instead of restating one factor twice.
func compoundFindings(ctx context.Context, rows []outcome.Row, accepted []Finding) []Finding {
	var out []Finding
	for i := 0; i < len(accepted); i++ {
		for j := i + 1; j < len(accepted); j++ {
			a, b := accepted[i], accepted[j]
			if a.FactorType == b.FactorType {
				continue
			}
			if isCompound(a.Shape) || isCompound(b.Shape) {
				continue
			}
			shapes := []string{a.Shape, b.Shape}
			sort.Strings(shapes)
			shape := factor.CompoundShape(shapes...)
			cond, ok := factor.LookupCondition(shape)
			if !ok {
				continue
			}
			f, err := bucketFinding(rows, cond, nil)
			if err != nil {
				continue
			}
			out = append(out, f)
		}
	}
	return out
}

func isCompound(shape string) bool {
	return strings.Contains(shape, factor.CompoundShapeJoint)
}
