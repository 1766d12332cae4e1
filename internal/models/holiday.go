package models

import "time"

// Holiday is a civil date excluded from working-day counting. Only the
// year, month and day of Date are meaningful. A Recurring holiday falls on
// the same month and day every year.
type Holiday struct {
	Date      time.Time `yaml:"date" json:"date"`
	Label     string    `yaml:"label" json:"label"`
	Recurring bool      `yaml:"recurring" json:"recurring"`
}
