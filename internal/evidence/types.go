package evidence

import (
	"fmt"
	"strings"
)

// Type is the bucket an observed fact is filed under.
type Type string

const (
	Vendor  Type = "vendor"
	Product Type = "product"
	Version Type = "version"
)

// Types lists every evidence type in a stable order.
var Types = []Type{Vendor, Product, Version}

func (t Type) String() string {
	return string(t)
}

// Confidence ranks competing facts of the same type. Higher wins.
type Confidence int

const (
	Low Confidence = iota + 1
	Medium
	High
	Highest
)

func (c Confidence) String() string {
	switch c {
	case Low:
		return "LOW"
	case Medium:
		return "MEDIUM"
	case High:
		return "HIGH"
	case Highest:
		return "HIGHEST"
	default:
		return "UNKNOWN"
	}
}

// ParseConfidence converts the String form back into a Confidence.
func ParseConfidence(s string) (Confidence, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return Low, nil
	case "MEDIUM":
		return Medium, nil
	case "HIGH":
		return High, nil
	case "HIGHEST":
		return Highest, nil
	default:
		return 0, fmt.Errorf("unknown confidence: %q", s)
	}
}

// MarshalText renders the confidence by name so persisted evidence stays readable.
func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Confidence) UnmarshalText(text []byte) error {
	parsed, err := ParseConfidence(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Fact is one observed signal about an artifact's identity.
type Fact struct {
	Source     string     `json:"source"`
	Name       string     `json:"name"`
	Value      string     `json:"value"`
	Confidence Confidence `json:"confidence"`
}

// NewFact builds a fact with a whitespace-normalized value.
func NewFact(source, name, value string, confidence Confidence) Fact {
	return Fact{
		Source:     source,
		Name:       name,
		Value:      Normalize(value),
		Confidence: confidence,
	}
}

func (f Fact) String() string {
	return fmt.Sprintf("%s/%s: %s (%s)", f.Source, f.Name, f.Value, f.Confidence)
}

// Normalize collapses runs of whitespace to single spaces and trims the ends.
func Normalize(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
