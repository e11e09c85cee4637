package reading

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_CanonicalPayload(t *testing.T) {
	r, err := Parse("Lat: 40.712800, Lon: -74.006000, Temp: 25.5, Hum: 60.5")
	require.NoError(t, err)

	assert.Equal(t, SensorReading{
		Latitude:    40.7128,
		Longitude:   -74.006,
		Temperature: 25.5,
		Humidity:    60.5,
	}, r)
}

func TestParse_AnyLabelOrder(t *testing.T) {
	payloads := []string{
		"Hum: 60.5, Temp: 25.5, Lon: -74.006000, Lat: 40.712800",
		"Temp: 25.5, Lat: 40.712800, Hum: 60.5, Lon: -74.006000",
		"Lon: -74.006000,Hum: 60.5,Lat: 40.712800,Temp: 25.5",
		"  Lat:40.7128 Lon:-74.006 Temp:25.5 Hum:60.5\r\n",
	}
	want := SensorReading{Latitude: 40.7128, Longitude: -74.006, Temperature: 25.5, Humidity: 60.5}

	for _, payload := range payloads {
		t.Run(payload, func(t *testing.T) {
			r, err := Parse(payload)
			require.NoError(t, err)
			assert.Equal(t, want, r)
		})
	}
}

func TestParse_MissingField(t *testing.T) {
	fields := map[string]string{
		LabelLatitude:    "Lat: 40.712800",
		LabelLongitude:   "Lon: -74.006000",
		LabelTemperature: "Temp: 25.5",
		LabelHumidity:    "Hum: 60.5",
	}

	for _, omitted := range Labels {
		t.Run(omitted, func(t *testing.T) {
			parts := []string{}
			for _, label := range Labels {
				if label != omitted {
					parts = append(parts, fields[label])
				}
			}

			_, err := Parse(strings.Join(parts, ", "))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingField)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, MissingField, parseErr.Kind)
			assert.Equal(t, omitted, parseErr.Label)
		})
	}
}

func TestParse_EmptyPayload(t *testing.T) {
	_, err := Parse("")
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestParse_NoFix(t *testing.T) {
	payloads := []string{
		"Lat: 0, Lon: 0, Temp: 22.0, Hum: 50.0",
		"Lat: 0.000000, Lon: -0.000000, Temp: 22.0, Hum: 50.0",
		"Lat: nofix, Lon: , Temp: 22.0, Hum: 50.0",
	}

	for _, payload := range payloads {
		t.Run(payload, func(t *testing.T) {
			_, err := Parse(payload)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNoFix)
			assert.NotErrorIs(t, err, ErrMissingField)
		})
	}
}

func TestParse_SingleZeroCoordinateAccepted(t *testing.T) {
	r, err := Parse("Lat: 0.0, Lon: 12.5, Temp: 22.0, Hum: 50.0")
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.Latitude)
	assert.Equal(t, 12.5, r.Longitude)
}

func TestParse_LenientValues(t *testing.T) {
	r, err := Parse("Lat: 4.5, Lon: 7, Temp: warm, Hum: 55%")
	require.NoError(t, err)
	assert.Equal(t, 4.5, r.Latitude)
	assert.Equal(t, 7.0, r.Longitude)
	assert.Equal(t, 0.0, r.Temperature)
	assert.Equal(t, 55.0, r.Humidity)
}

func TestCoerce(t *testing.T) {
	cases := map[string]float64{
		"":         0,
		"abc":      0,
		"-":        0,
		".":        0,
		"12":       12,
		"-74.006":  -74.006,
		"+3.5":     3.5,
		".5":       0.5,
		"12.":      12,
		"1e3":      1000,
		"2.5E-1x":  0.25,
		"7e":       7,
		"7e+":      7,
		"60.5%":    60.5,
		"25.5 C":   25.5,
		"1.2.3":    1.2,
		"--1":      0,
		"40.71280": 40.7128,
	}

	for input, want := range cases {
		assert.Equal(t, want, Coerce(input), "Coerce(%q)", input)
	}
}

func TestCoerce_OutOfRangeIsClamped(t *testing.T) {
	assert.Equal(t, math.MaxFloat64, Coerce("1e400"))
	assert.Equal(t, -math.MaxFloat64, Coerce("-1e400, "))
	assert.Equal(t, 0.0, Coerce("1e-400"))

	r, err := Parse("Lat: 1e400, Lon: 0, Temp: 21, Hum: 40")
	require.NoError(t, err)
	assert.Equal(t, math.MaxFloat64, r.Latitude)
	assert.Equal(t, 0.0, r.Longitude)
}

func TestParseError_Messages(t *testing.T) {
	assert.Equal(t, "reading: missing field Hum:", (&ParseError{Kind: MissingField, Label: LabelHumidity}).Error())
	assert.Equal(t, "reading: no gps fix", (&ParseError{Kind: NoFix}).Error())
	assert.Equal(t, "no_fix", NoFix.String())
}
