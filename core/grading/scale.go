package grading

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	MinPercentage = 0.0
	MaxPercentage = 100.0
)

// Band is one row of the grading scale: every percentage >= Min (and below the next band's Min)
// maps to Letter and Points.
type Band struct {
	Letter string  `json:"letter" yaml:"letter"`
	Min    float64 `json:"min" yaml:"min"`
	Points float64 `json:"points" yaml:"points"`
}

// Scale is an ordered band table, highest Min first. The last band always starts at 0.
type Scale struct {
	Bands []Band `json:"bands" yaml:"bands"`
}

// Grade is the result of converting a percentage.
type Grade struct {
	Percentage float64 `json:"percentage"`
	Letter     string  `json:"letter"`
	Points     float64 `json:"points"`
}

// RangeError is returned for percentages outside [0, 100].
type RangeError struct {
	Value float64
}

func (err *RangeError) Error() string {
	return fmt.Sprintf("percentage grade %v is out of range [%v, %v]", err.Value, MinPercentage, MaxPercentage)
}

func IsRangeError(err error) bool {
	_, ok := errors.Cause(err).(*RangeError)
	return ok
}

var defaultBands = []Band{
	{Letter: "A+", Min: 97, Points: 4.0},
	{Letter: "A", Min: 93, Points: 4.0},
	{Letter: "A-", Min: 90, Points: 3.7},
	{Letter: "B+", Min: 87, Points: 3.3},
	{Letter: "B", Min: 83, Points: 3.0},
	{Letter: "B-", Min: 80, Points: 2.7},
	{Letter: "C+", Min: 77, Points: 2.3},
	{Letter: "C", Min: 73, Points: 2.0},
	{Letter: "C-", Min: 70, Points: 1.7},
	{Letter: "D+", Min: 67, Points: 1.3},
	{Letter: "D", Min: 63, Points: 1.0},
	{Letter: "D-", Min: 60, Points: 0.7},
	{Letter: "F", Min: 0, Points: 0.0},
}

// DefaultScale returns the standard 4.0 band table.
func DefaultScale() Scale {
	bands := make([]Band, len(defaultBands))
	copy(bands, defaultBands)
	return Scale{Bands: bands}
}

// NewScale sorts and checks a band table.
func NewScale(bands ...Band) (Scale, error) {
	if len(bands) == 0 {
		return Scale{}, errors.New("grading scale: no bands")
	}
	sorted := make([]Band, len(bands))
	copy(sorted, bands)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Min > sorted[j].Min })

	letters := make(map[string]struct{}, len(sorted))
	for i, b := range sorted {
		b.Letter = strings.TrimSpace(b.Letter)
		sorted[i].Letter = b.Letter
		if b.Letter == "" {
			return Scale{}, errors.Errorf("grading scale: band %d has no letter", i)
		}
		if _, dup := letters[b.Letter]; dup {
			return Scale{}, errors.Errorf("grading scale: duplicate letter %q", b.Letter)
		}
		letters[b.Letter] = struct{}{}

		if math.IsNaN(b.Min) || b.Min < MinPercentage || b.Min > MaxPercentage {
			return Scale{}, errors.Errorf("grading scale: %s minimum %v is out of range", b.Letter, b.Min)
		}
		if b.Points < 0 || math.IsNaN(b.Points) {
			return Scale{}, errors.Errorf("grading scale: %s has negative points", b.Letter)
		}
		if i > 0 {
			prev := sorted[i-1]
			if b.Min == prev.Min {
				return Scale{}, errors.Errorf("grading scale: %s and %s share minimum %v", prev.Letter, b.Letter, b.Min)
			}
			if b.Points > prev.Points {
				return Scale{}, errors.Errorf("grading scale: %s is worth more points than %s", b.Letter, prev.Letter)
			}
		}
	}
	if last := sorted[len(sorted)-1]; last.Min != MinPercentage {
		return Scale{}, errors.Errorf("grading scale: lowest band %s must start at %v", last.Letter, MinPercentage)
	}
	return Scale{Bands: sorted}, nil
}

// LoadScale reads a YAML band table:
//
//	bands:
//	  - {letter: A, min: 90, points: 4.0}
//	  - {letter: F, min: 0, points: 0.0}
func LoadScale(r io.Reader) (Scale, error) {
	var raw Scale
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return Scale{}, errors.Wrap(err, "decoding grading scale")
	}
	return NewScale(raw.Bands...)
}

// Check reports whether p can be converted.
func Check(p float64) error {
	if math.IsNaN(p) || p < MinPercentage || p > MaxPercentage {
		return &RangeError{Value: p}
	}
	return nil
}

func (s Scale) band(p float64) (Band, error) {
	if err := Check(p); err != nil {
		return Band{}, err
	}
	for _, b := range s.Bands {
		if p >= b.Min {
			return b, nil
		}
	}
	// unreachable for a scale built with NewScale
	return Band{}, errors.Errorf("grading scale: no band for %v", p)
}

// Convert maps a percentage to its letter grade and grade points.
func (s Scale) Convert(p float64) (Grade, error) {
	b, err := s.band(p)
	if err != nil {
		return Grade{}, err
	}
	return Grade{Percentage: p, Letter: b.Letter, Points: b.Points}, nil
}

// QualityPoints converts p and weighs its grade points by the course credits.
func (s Scale) QualityPoints(p float64, credits int) (float64, error) {
	g, err := s.Convert(p)
	if err != nil {
		return 0, err
	}
	return QualityPoints(g.Points, credits), nil
}

// QualityPoints is points × credits, rounded to two decimals.
func QualityPoints(points float64, credits int) float64 {
	return Round(points * float64(credits))
}

// GPA is the credit-weighted average of the given quality points.
func GPA(qualityPoints float64, credits int) float64 {
	if credits <= 0 {
		return 0
	}
	return Round(qualityPoints / float64(credits))
}

// Round rounds to two decimals.
func Round(f float64) float64 {
	return math.Round(f*100) / 100
}
