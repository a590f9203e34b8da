package core

import "fmt"

// ValidateOrigin checks a credit's prior-year sources against the other
// credits: each source must exist, belong to an earlier fiscal year, and
// following sources transitively must never lead back to the credit.
func ValidateOrigin(c Credit, all []Credit) error {
	if c.Origin.Kind != OriginPriorYears {
		return nil
	}
	byID := make(map[string]Credit, len(all)+1)
	for _, other := range all {
		byID[other.ID] = other
	}
	if c.ID != "" {
		byID[c.ID] = c
	}

	v := &ValidationError{}
	for i, id := range c.Origin.SourceCreditIDs {
		field := fmt.Sprintf("origin.sourceCreditIds[%d]", i)
		src, ok := byID[id]
		if !ok {
			v.Add(field, "unknown credit "+id)
			continue
		}
		if src.FiscalYear >= c.FiscalYear {
			v.Add(field, fmt.Sprintf("source credit %s is from %d, must be before %d", src.Code, src.FiscalYear, c.FiscalYear))
		}
	}
	if err := v.Err(); err != nil {
		return err
	}

	if c.ID != "" && reachesCycle(c.ID, byID) {
		return NewValidationError("origin.sourceCreditIds", "prior-year chain forms a cycle")
	}
	return nil
}

// reachesCycle walks source links from start and reports whether any path
// comes back to a credit already on the current path.
func reachesCycle(start string, byID map[string]Credit) bool {
	const (
		unvisited = iota
		onPath
		done
	)
	state := make(map[string]int, len(byID))
	var visit func(id string) bool
	visit = func(id string) bool {
		switch state[id] {
		case onPath:
			return true
		case done:
			return false
		}
		state[id] = onPath
		if c, ok := byID[id]; ok && c.Origin.Kind == OriginPriorYears {
			for _, next := range c.Origin.SourceCreditIDs {
				if visit(next) {
					return true
				}
			}
		}
		state[id] = done
		return false
	}
	return visit(start)
}

// DerivedCredits lists the credits whose prior-year origin names id.
func DerivedCredits(id string, all []Credit) []Credit {
	var out []Credit
	for _, c := range all {
		if c.Origin.Kind != OriginPriorYears {
			continue
		}
		for _, src := range c.Origin.SourceCreditIDs {
			if src == id {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
