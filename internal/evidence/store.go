package evidence

import "strings"

// Separator joins facts in the String projection of a bucket.
const Separator = "; "

// Store is the evidence collected for a single artifact. Facts are kept per
// Type in insertion order. A Store belongs to one analysis run and is not
// safe for concurrent use.
type Store struct {
	facts map[Type][]Fact
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{facts: make(map[Type][]Fact)}
}

// Add records a fact under typ. Values that are empty after normalization
// are dropped and Add reports false.
func (s *Store) Add(typ Type, f Fact) bool {
	f.Value = Normalize(f.Value)
	if f.Value == "" {
		return false
	}
	if f.Confidence < Low {
		f.Confidence = Low
	} else if f.Confidence > Highest {
		f.Confidence = Highest
	}
	if s.facts == nil {
		s.facts = make(map[Type][]Fact)
	}
	s.facts[typ] = append(s.facts[typ], f)
	return true
}

// AddValue is shorthand for Add(typ, NewFact(source, name, value, confidence)).
func (s *Store) AddValue(typ Type, source, name, value string, confidence Confidence) bool {
	return s.Add(typ, NewFact(source, name, value, confidence))
}

// Facts returns a copy of the facts recorded under typ.
func (s *Store) Facts(typ Type) []Fact {
	if s == nil || len(s.facts[typ]) == 0 {
		return nil
	}
	out := make([]Fact, len(s.facts[typ]))
	copy(out, s.facts[typ])
	return out
}

// Len returns the number of facts recorded under typ.
func (s *Store) Len(typ Type) int {
	if s == nil {
		return 0
	}
	return len(s.facts[typ])
}

// Total returns the number of facts across all types.
func (s *Store) Total() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, facts := range s.facts {
		n += len(facts)
	}
	return n
}

// All returns a copy of every non-empty bucket.
func (s *Store) All() map[Type][]Fact {
	out := make(map[Type][]Fact)
	if s == nil {
		return out
	}
	for typ := range s.facts {
		if facts := s.Facts(typ); len(facts) > 0 {
			out[typ] = facts
		}
	}
	return out
}

// Contains reports whether any fact under typ has a value containing substr.
func (s *Store) Contains(typ Type, substr string) bool {
	for _, f := range s.Facts(typ) {
		if strings.Contains(f.Value, substr) {
			return true
		}
	}
	return false
}

// String renders the facts under typ in insertion order, joined by Separator.
func (s *Store) String(typ Type) string {
	facts := s.Facts(typ)
	parts := make([]string, 0, len(facts))
	for _, f := range facts {
		parts = append(parts, f.String())
	}
	return strings.Join(parts, Separator)
}
