package service

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/Fellisss/Weather1/internal/modules/observations/types"
)

// Form field names, shared by validation messages and the HTML forms.
const (
	FieldID            = "id"
	FieldCity          = "city"
	FieldTimestamp     = "timestamp"
	FieldPrecipitation = "precipitation"
	FieldTemperature   = "temperature"
	FieldHumidity      = "humidity"
	FieldWindSpeed     = "windSpeed"
)

// DraftTimeLayout matches the value format of an <input type="datetime-local">.
const DraftTimeLayout = "2006-01-02T15:04"

var errEmpty = errors.New("empty")

// Draft holds an observation exactly as it was submitted, so a rejected form
// can be shown again without losing input.
type Draft struct {
	ID            int64
	City          string
	Timestamp     string
	Precipitation string
	Temperature   string
	Humidity      string
	WindSpeed     string
}

// FieldErrors maps a form field name to its message.
type FieldErrors map[string]string

// Outcome is the result of Create and Update. On success Observation is the
// stored record; otherwise Errors is non-empty and Draft is the input as
// submitted.
type Outcome struct {
	Observation types.Observation
	Errors      FieldErrors
	Draft       Draft
}

func (o Outcome) OK() bool { return len(o.Errors) == 0 }

// Validate parses a draft into an observation. Timestamps without a zone are
// read in loc.
func Validate(d Draft, loc *time.Location) (types.Observation, FieldErrors) {
	errs := FieldErrors{}
	o := types.Observation{
		ID:            d.ID,
		City:          strings.TrimSpace(d.City),
		Precipitation: d.Precipitation, // free text, kept as submitted
	}

	if o.City == "" {
		errs[FieldCity] = "City is required"
	}

	if ts, err := ParseTime(d.Timestamp, loc); err != nil {
		if errors.Is(err, errEmpty) {
			errs[FieldTimestamp] = "Date and time are required"
		} else {
			errs[FieldTimestamp] = "Date and time are not valid"
		}
	} else {
		o.Timestamp = ts
	}

	if v, err := parseNumber(d.Temperature); err != nil {
		errs[FieldTemperature] = numberMessage("Temperature", err)
	} else {
		o.Temperature = v
	}

	if v, err := strconv.Atoi(strings.TrimSpace(d.Humidity)); err != nil {
		if strings.TrimSpace(d.Humidity) == "" {
			errs[FieldHumidity] = "Humidity is required"
		} else {
			errs[FieldHumidity] = "Humidity must be a whole number"
		}
	} else if v < 0 || v > 100 {
		errs[FieldHumidity] = "Humidity must be between 0 and 100"
	} else {
		o.Humidity = v
	}

	if v, err := parseNumber(d.WindSpeed); err != nil {
		errs[FieldWindSpeed] = numberMessage("Wind speed", err)
	} else {
		o.WindSpeed = v
	}

	if len(errs) > 0 {
		return types.Observation{}, errs
	}
	return o, nil
}

// ParseTime reads a form or query-string timestamp in loc. The datetime-local
// layouts are tried first; anything else goes through dateparse.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmpty
	}
	for _, layout := range []string{DraftTimeLayout, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return dateparse.ParseIn(s, loc)
}

// parseNumber accepts a decimal comma as well as a point.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmpty
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

func numberMessage(label string, err error) string {
	if errors.Is(err, errEmpty) {
		return label + " is required"
	}
	return label + " must be a number"
}

// DraftFrom renders a stored observation as form values in loc.
func DraftFrom(o types.Observation, loc *time.Location) Draft {
	return Draft{
		ID:            o.ID,
		City:          o.City,
		Timestamp:     o.Timestamp.In(loc).Format(DraftTimeLayout),
		Precipitation: o.Precipitation,
		Temperature:   strconv.FormatFloat(o.Temperature, 'f', -1, 64),
		Humidity:      strconv.Itoa(o.Humidity),
		WindSpeed:     strconv.FormatFloat(o.WindSpeed, 'f', -1, 64),
	}
}
