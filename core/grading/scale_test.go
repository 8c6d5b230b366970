package grading

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScale_Convert(t *testing.T) {
	scale := DefaultScale()

	tests := []struct {
		name       string
		p          float64
		wantLetter string
		wantPoints float64
		wantErr    bool
	}{
		{name: "perfect", p: 100, wantLetter: "A+", wantPoints: 4.0},
		{name: "A+ lower bound", p: 97, wantLetter: "A+", wantPoints: 4.0},
		{name: "just below A+", p: 96.99, wantLetter: "A", wantPoints: 4.0},
		{name: "A- lower bound", p: 90, wantLetter: "A-", wantPoints: 3.7},
		{name: "B+", p: 88.5, wantLetter: "B+", wantPoints: 3.3},
		{name: "C", p: 73, wantLetter: "C", wantPoints: 2.0},
		{name: "D- lower bound", p: 60, wantLetter: "D-", wantPoints: 0.7},
		{name: "just below D-", p: 59.99, wantLetter: "F", wantPoints: 0},
		{name: "zero", p: 0, wantLetter: "F", wantPoints: 0},
		{name: "above range", p: 150, wantErr: true},
		{name: "negative", p: -0.01, wantErr: true},
		{name: "NaN", p: math.NaN(), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := scale.Convert(tt.p)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsRangeError(err))
				assert.Equal(t, Grade{}, g, "no grade must be derived from invalid input")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLetter, g.Letter)
			assert.Equal(t, tt.wantPoints, g.Points)
		})
	}
}

func TestScale_Monotonic(t *testing.T) {
	scale := DefaultScale()

	prev := -1.0
	prevLetter := ""
	seen := map[string]bool{}
	for i := 0; i <= 10000; i++ {
		p := float64(i) / 100
		g, err := scale.Convert(p)
		require.NoError(t, err, "p=%v", p)
		assert.GreaterOrEqual(t, g.Points, prev, "points decreased at p=%v", p)

		// each letter covers one contiguous interval
		if g.Letter != prevLetter {
			assert.False(t, seen[g.Letter], "letter %s appears in two intervals", g.Letter)
			seen[g.Letter] = true
		}
		prev, prevLetter = g.Points, g.Letter
	}
	assert.Len(t, seen, len(scale.Bands))
}

func TestQualityPoints(t *testing.T) {
	scale := DefaultScale()

	qp, err := scale.QualityPoints(91, 3)
	require.NoError(t, err)
	assert.Equal(t, 11.1, qp)

	_, err = scale.QualityPoints(101, 3)
	assert.Error(t, err)

	assert.Equal(t, 0.0, GPA(10, 0))
	assert.Equal(t, 3.35, GPA(QualityPoints(4.0, 3)+QualityPoints(2.7, 3), 6))
}

func TestNewScale(t *testing.T) {
	tests := []struct {
		name    string
		bands   []Band
		wantErr string
	}{
		{name: "empty", wantErr: "no bands"},
		{
			name:  "unsorted input is sorted",
			bands: []Band{{Letter: "F", Min: 0}, {Letter: "P", Min: 50, Points: 1}},
		},
		{
			name:    "missing zero band",
			bands:   []Band{{Letter: "P", Min: 50, Points: 1}},
			wantErr: "must start at 0",
		},
		{
			name:    "duplicate minimum",
			bands:   []Band{{Letter: "P", Min: 50, Points: 1}, {Letter: "Q", Min: 50, Points: 1}, {Letter: "F", Min: 0}},
			wantErr: "share minimum",
		},
		{
			name:    "non monotonic points",
			bands:   []Band{{Letter: "P", Min: 50, Points: 1}, {Letter: "F", Min: 0, Points: 2}},
			wantErr: "worth more points",
		},
		{
			name:    "out of range minimum",
			bands:   []Band{{Letter: "P", Min: 101, Points: 1}, {Letter: "F", Min: 0}},
			wantErr: "out of range",
		},
		{
			name:    "duplicate letter",
			bands:   []Band{{Letter: "F", Min: 50, Points: 1}, {Letter: "F", Min: 0}},
			wantErr: "duplicate letter",
		},
		{
			name:    "blank letter",
			bands:   []Band{{Letter: " ", Min: 0}},
			wantErr: "no letter",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scale, err := NewScale(tt.bands...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "P", scale.Bands[0].Letter)
		})
	}
}

func TestLoadScale(t *testing.T) {
	src := `
bands:
  - {letter: F, min: 0, points: 0}
  - {letter: Pass, min: 70, points: 3.0}
  - {letter: Honors, min: 90, points: 4.0}
`
	scale, err := LoadScale(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, scale.Bands, 3)
	assert.Equal(t, "Honors", scale.Bands[0].Letter)

	g, err := scale.Convert(75)
	require.NoError(t, err)
	assert.Equal(t, "Pass", g.Letter)

	_, err = LoadScale(strings.NewReader("bands: [oops"))
	assert.Error(t, err)
}
