package reading

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

const (
	LabelLatitude    = "Lat:"
	LabelLongitude   = "Lon:"
	LabelTemperature = "Temp:"
	LabelHumidity    = "Hum:"
)

// Labels in canonical order.
var Labels = []string{LabelLatitude, LabelLongitude, LabelTemperature, LabelHumidity}

var (
	ErrMissingField = errors.New("reading: missing field")
	ErrNoFix        = errors.New("reading: no gps fix")
)

type SensorReading struct {
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lon"`
	Temperature float64 `json:"temp"`
	Humidity    float64 `json:"hum"`
}

type ErrorKind int

const (
	MissingField ErrorKind = iota + 1
	NoFix
)

func (k ErrorKind) String() string {
	switch k {
	case MissingField:
		return "missing_field"
	case NoFix:
		return "no_fix"
	default:
		return "unknown"
	}
}

type ParseError struct {
	Kind  ErrorKind
	Label string
}

func (e *ParseError) Error() string {
	if e.Kind == MissingField {
		return fmt.Sprintf("%v %s", ErrMissingField, e.Label)
	}
	return e.Unwrap().Error()
}

func (e *ParseError) Unwrap() error {
	switch e.Kind {
	case MissingField:
		return ErrMissingField
	case NoFix:
		return ErrNoFix
	default:
		return nil
	}
}

type fieldPosition struct {
	label string
	index int
}

// Parse extracts the four labelled fields of a radio payload such as
// "Lat: 40.712800, Lon: -74.006000, Temp: 25.5, Hum: 60.5".
// A field's text runs from its label to the next label found in the
// payload, so the labels may come in any order. Values are coerced
// leniently and a reading at exactly 0,0 is rejected as having no fix.
func Parse(raw string) (SensorReading, error) {
	positions := make([]fieldPosition, 0, len(Labels))
	for _, label := range Labels {
		index := strings.Index(raw, label)
		if index == -1 {
			return SensorReading{}, &ParseError{Kind: MissingField, Label: label}
		}
		positions = append(positions, fieldPosition{label, index})
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].index < positions[j].index })

	values := make(map[string]float64, len(positions))
	for i, position := range positions {
		end := len(raw)
		if i+1 < len(positions) {
			end = positions[i+1].index
		}
		start := position.index + len(position.label)
		values[position.label] = Coerce(clean(raw[start:end]))
	}

	r := SensorReading{
		Latitude:    values[LabelLatitude],
		Longitude:   values[LabelLongitude],
		Temperature: values[LabelTemperature],
		Humidity:    values[LabelHumidity],
	}
	if r.Latitude == 0 && r.Longitude == 0 {
		return r, &ParseError{Kind: NoFix}
	}
	return r, nil
}

func clean(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ",")
	return strings.TrimSpace(s)
}

// Coerce converts the longest numeric prefix of s to a float64.
// Text without a numeric prefix yields 0, a prefix beyond float64 range is
// clamped to ±math.MaxFloat64.
func Coerce(s string) float64 {
	end := numericPrefix(s)
	if end == 0 {
		return 0
	}
	value, err := strconv.ParseFloat(s[:end], 64)
	if errors.Is(err, strconv.ErrRange) {
		if math.IsInf(value, 0) {
			return math.Copysign(math.MaxFloat64, value)
		}
		return value
	}
	if err != nil {
		return 0
	}
	return value
}

func numericPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0
	}

	// exponent only counts when digits follow it
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			i = k
		}
	}

	return i
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
