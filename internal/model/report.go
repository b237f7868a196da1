package model

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ProgramCount is the number of enrollments in one program.
type ProgramCount struct {
	ProgramID   uuid.UUID `json:"program_id" db:"program_id"`
	ProgramName string    `json:"program" db:"program_name"`
	Count       int       `json:"count" db:"count"`
}

// MonthCount is the number of enrollments dated within one calendar month.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// MonthKey identifies a calendar month.
type MonthKey struct {
	Year  int
	Month time.Month
}

func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// Label renders the month as "October 2026".
func (k MonthKey) Label() string {
	return k.Month.String() + " " + strconv.Itoa(k.Year)
}

// Start is the first day of the month in UTC.
func (k MonthKey) Start() time.Time {
	return time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Before reports whether k is an earlier month than o.
func (k MonthKey) Before(o MonthKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	return k.Month < o.Month
}

// Dashboard summarises the store for the management landing page.
type Dashboard struct {
	TotalClients     int              `json:"total_clients"`
	TotalPrograms    int              `json:"total_programs"`
	TotalEnrollments int              `json:"total_enrollments"`
	RecentClients    []*ClientView    `json:"recent_clients"`
	RecentPrograms   []*HealthProgram `json:"recent_programs"`
}

// EnrollmentReport is the management enrollment list with its aggregates.
type EnrollmentReport struct {
	Enrollments         []*EnrollmentDetail `json:"enrollments"`
	ProgramDistribution []ProgramCount      `json:"program_distribution"`
	MonthlyTimeline     []MonthCount        `json:"monthly_timeline"`
}
