package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Measurement written for every reading.
const PollutionMeasurement = "pollution"

// Point is a single time-series write: measurement, identifying tags, field
// values and a timestamp.
type Point struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]any
	Timestamp   time.Time
}

// PointFromReading maps a reading onto the pollution measurement, tagged by
// location.
func PointFromReading(r Reading) Point {
	fields := make(map[string]any, len(r.Components)+1)
	fields["aqi"] = int64(r.AQI)
	for name, value := range r.Components {
		fields[name] = value
	}

	return Point{
		Measurement: PollutionMeasurement,
		Tags:        map[string]string{"location": r.Location},
		Fields:      fields,
		Timestamp:   r.Timestamp,
	}
}

// LineProtocol renders the point in the InfluxDB v1 line protocol with a
// nanosecond timestamp. Tags and fields are emitted in sorted key order so
// output is deterministic.
func (p Point) LineProtocol() string {
	var b strings.Builder

	b.WriteString(escapeMeasurement(p.Measurement))

	for _, key := range sortedKeys(p.Tags) {
		b.WriteByte(',')
		b.WriteString(escapeTag(key))
		b.WriteByte('=')
		b.WriteString(escapeTag(p.Tags[key]))
	}

	b.WriteByte(' ')

	fieldKeys := make([]string, 0, len(p.Fields))
	for key := range p.Fields {
		fieldKeys = append(fieldKeys, key)
	}
	sort.Strings(fieldKeys)

	for i, key := range fieldKeys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(escapeTag(key))
		b.WriteByte('=')
		b.WriteString(formatFieldValue(p.Fields[key]))
	}

	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(p.Timestamp.UnixNano(), 10))

	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func formatFieldValue(v any) string {
	switch val := v.(type) {
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(val, 10) + "i"
	case int:
		return strconv.Itoa(val) + "i"
	case bool:
		return strconv.FormatBool(val)
	case string:
		return `"` + strings.NewReplacer(`"`, `\"`, `\`, `\\`).Replace(val) + `"`
	default:
		return fmt.Sprintf("%v", val)
	}
}

func escapeMeasurement(s string) string {
	return strings.NewReplacer(",", `\,`, " ", `\ `).Replace(s)
}

// escapeTag escapes tag keys, tag values and field keys.
func escapeTag(s string) string {
	return strings.NewReplacer(",", `\,`, " ", `\ `, "=", `\=`).Replace(s)
}
