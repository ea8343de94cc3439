// Package report models the calendar date a shipment report is fetched for.
package report

import (
	"fmt"
	"time"
)

const (
	displayLayout = "02/01/2006"
	compactLayout = "20060102"
)

// Date is the report's calendar day. Every textual representation is
// derived from the same value so the portal form fields and the file
// names can never disagree.
type Date struct {
	day time.Time
}

// New returns the date daysAgo days before now, truncated to the day in
// now's location.
func New(now time.Time, daysAgo int) Date {
	d := now.AddDate(0, 0, -daysAgo)
	return Date{day: time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())}
}

// Time returns the underlying day at midnight
func (d Date) Time() time.Time {
	return d.day
}

// Display renders the date for portal form fields (dd/mm/yyyy)
func (d Date) Display() string {
	return d.day.Format(displayLayout)
}

// Compact renders the date for file names (yyyymmdd)
func (d Date) Compact() string {
	return d.day.Format(compactLayout)
}

// StagingName is the canonical name of the downloaded export, e.g. GLS_20240131.xls
func (d Date) StagingName(ext string) string {
	return fmt.Sprintf("GLS_%s%s", d.Compact(), ext)
}

// CanonicalName is the name of the normalized spreadsheet, e.g. 20240131.xlsx
func (d Date) CanonicalName() string {
	return d.Compact() + ".xlsx"
}

// RawHTMLName is the name of the untouched HTML copy kept when normalization fails
func (d Date) RawHTMLName() string {
	return d.StagingName(".html")
}

func (d Date) String() string {
	return d.Compact()
}
