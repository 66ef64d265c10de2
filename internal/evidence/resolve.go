package evidence

// Resolved holds the winning fact per evidence type.
type Resolved struct {
	winners map[Type]Fact
}

// Resolve picks, for every type in the store, the fact with the highest
// confidence. Ties go to the fact inserted first. It does not modify the
// store, so calling it again on the same store gives the same answer.
func Resolve(s *Store) Resolved {
	r := Resolved{winners: make(map[Type]Fact)}
	if s == nil {
		return r
	}
	for typ, facts := range s.facts {
		for i, f := range facts {
			// strict comparison keeps the earliest fact on a tie
			if i == 0 || f.Confidence > r.winners[typ].Confidence {
				r.winners[typ] = f
			}
		}
	}
	return r
}

// Fact returns the winning fact for typ.
func (r Resolved) Fact(typ Type) (Fact, bool) {
	f, ok := r.winners[typ]
	return f, ok
}

// Value returns the winning value for typ.
func (r Resolved) Value(typ Type) (string, bool) {
	f, ok := r.winners[typ]
	if !ok {
		return "", false
	}
	return f.Value, true
}
