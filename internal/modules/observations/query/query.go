// Package query describes filtered, ordered reads of the observations table.
package query

import (
	"time"

	"gorm.io/gorm"
)

type Order int

const (
	Newest Order = iota
	Oldest
)

// Filter combines its set predicates with AND. Zero values are unset.
type Filter struct {
	City string
	// From is an inclusive lower bound.
	From time.Time
	// Before is an exclusive upper bound.
	Before time.Time
	// Until is an inclusive upper bound.
	Until time.Time
	Order Order
	Limit int
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NextDay returns midnight of the day after t's calendar day.
func NextDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

// Today selects rows in [start of now's day, start of the next day), newest
// first. An empty city matches every city.
func Today(now time.Time, city string) Filter {
	return Filter{
		City:   city,
		From:   StartOfDay(now),
		Before: NextDay(now),
		Order:  Newest,
	}
}

// Archive selects rows from start on, up to and including the whole day of
// end, newest first.
func Archive(city string, start, end *time.Time) Filter {
	f := Filter{City: city, Order: Newest}
	if start != nil {
		f.From = *start
	}
	if end != nil {
		f.Before = NextDay(*end)
	}
	return f
}

// Series selects rows in [from, to], oldest first.
func Series(city string, from, to *time.Time) Filter {
	f := Filter{City: city, Order: Oldest}
	if from != nil {
		f.From = *from
	}
	if to != nil {
		f.Until = *to
	}
	return f
}

// Scope applies the filter to a gorm query. Time bounds are compared in UTC
// at second precision, the form in which timestamps are stored.
func (f Filter) Scope(db *gorm.DB) *gorm.DB {
	if f.City != "" {
		db = db.Where("city = ?", f.City)
	}
	if !f.From.IsZero() {
		db = db.Where("timestamp >= ?", Normalize(f.From))
	}
	if !f.Before.IsZero() {
		db = db.Where("timestamp < ?", Normalize(f.Before))
	}
	if !f.Until.IsZero() {
		db = db.Where("timestamp <= ?", Normalize(f.Until))
	}
	switch f.Order {
	case Oldest:
		db = db.Order("timestamp ASC").Order("id ASC")
	default:
		db = db.Order("timestamp DESC").Order("id DESC")
	}
	if f.Limit > 0 {
		db = db.Limit(f.Limit)
	}
	return db
}

// Normalize converts t to the stored representation: UTC, whole seconds.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
