package orion

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mirzahilmi/lora-orion-bridge/internal/reading"
)

const (
	AttrTypeFloat    = "float"
	AttrTypeGeoPoint = "geo:point"
)

// Metadata is always sent as an empty object.
type Metadata struct{}

type Attribute struct {
	Type     string   `json:"type"`
	Value    any      `json:"value"`
	Metadata Metadata `json:"metadata"`
}

// UpdatePayload carries the mutable attributes only, without id or type.
type UpdatePayload struct {
	Humedad     Attribute `json:"humedad"`
	Temperatura Attribute `json:"temperatura"`
	Location    Attribute `json:"location"`
}

type EntityDocument struct {
	Id   string `json:"id"`
	Type string `json:"type"`
	UpdatePayload
}

func EncodeUpdate(r reading.SensorReading) UpdatePayload {
	return UpdatePayload{
		Humedad:     Attribute{Type: AttrTypeFloat, Value: r.Humidity},
		Temperatura: Attribute{Type: AttrTypeFloat, Value: r.Temperature},
		Location:    Attribute{Type: AttrTypeGeoPoint, Value: FormatLocation(r.Latitude, r.Longitude)},
	}
}

func EncodeEntity(id, entityType string, payload UpdatePayload) EntityDocument {
	return EntityDocument{Id: id, Type: entityType, UpdatePayload: payload}
}

func (p UpdatePayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

func (d EntityDocument) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

// FormatLocation renders a geo:point value with six decimals per coordinate.
func FormatLocation(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', 6, 64) + "," + strconv.FormatFloat(lon, 'f', 6, 64)
}

func ParseLocation(value string) (lat, lon float64, err error) {
	latText, lonText, ok := strings.Cut(value, ",")
	if !ok {
		return 0, 0, fmt.Errorf("orion: malformed geo:point %q", value)
	}
	if lat, err = strconv.ParseFloat(strings.TrimSpace(latText), 64); err != nil {
		return 0, 0, fmt.Errorf("orion: malformed latitude in %q: %w", value, err)
	}
	if lon, err = strconv.ParseFloat(strings.TrimSpace(lonText), 64); err != nil {
		return 0, 0, fmt.Errorf("orion: malformed longitude in %q: %w", value, err)
	}
	return lat, lon, nil
}
