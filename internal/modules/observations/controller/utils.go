package controller

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Fellisss/Weather1/internal/modules/observations/service"
)

var errInvalidID = errors.New("invalid observation id")

// parseID reads the {id} path segment. Only positive integers are ids.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// parseDateParam reads an optional date or date-time query parameter in loc.
func parseDateParam(q url.Values, key string, loc *time.Location) (*time.Time, error) {
	s := strings.TrimSpace(q.Get(key))
	if s == "" {
		return nil, nil
	}
	t, err := service.ParseTime(s, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid '%s' %q", key, s)
	}
	return &t, nil
}

// parseDateBounds reads both bounds without comparing them. The archive uses
// it directly: its end date covers the whole day, and a window that ends
// before it starts just matches nothing.
func parseDateBounds(r *http.Request, fromKey, toKey string, loc *time.Location) (from, to *time.Time, err error) {
	q := r.URL.Query()
	if from, err = parseDateParam(q, fromKey, loc); err != nil {
		return nil, nil, err
	}
	if to, err = parseDateParam(q, toKey, loc); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

// parseRangeQuery reads an inclusive [from, to] instant range for the series
// endpoints and rejects inverted ranges.
func parseRangeQuery(r *http.Request, fromKey, toKey string, loc *time.Location) (from, to *time.Time, err error) {
	if from, to, err = parseDateBounds(r, fromKey, toKey, loc); err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, fmt.Errorf("'%s' must be <= '%s'", fromKey, toKey)
	}
	return from, to, nil
}

// decodeDraft reads the posted form. A present but malformed id yields
// errInvalidID alongside the other decoded fields; an absent id leaves
// Draft.ID zero.
func decodeDraft(r *http.Request) (service.Draft, error) {
	if err := r.ParseForm(); err != nil {
		return service.Draft{}, err
	}
	f := r.PostForm
	d := service.Draft{
		City:          f.Get(service.FieldCity),
		Timestamp:     f.Get(service.FieldTimestamp),
		Precipitation: f.Get(service.FieldPrecipitation),
		Temperature:   f.Get(service.FieldTemperature),
		Humidity:      f.Get(service.FieldHumidity),
		WindSpeed:     f.Get(service.FieldWindSpeed),
	}
	if s := strings.TrimSpace(f.Get(service.FieldID)); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return d, errInvalidID
		}
		d.ID = id
	}
	return d, nil
}

func indexURL(status string) string {
	return indexPath + "?status=" + url.QueryEscape(status)
}
