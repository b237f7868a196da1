package model

import (
	"time"
)

// Gender is the enumerated client gender code.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "O"
)

// Valid reports whether g is one of the known codes.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Label is the display name of the gender code.
func (g Gender) Label() string {
	switch g {
	case GenderMale:
		return "Male"
	case GenderFemale:
		return "Female"
	case GenderOther:
		return "Other"
	}
	return ""
}

// Client is a person registered for health programs.
type Client struct {
	Base
	FirstName   string `json:"first_name" db:"first_name"`
	LastName    string `json:"last_name" db:"last_name"`
	DateOfBirth Date   `json:"date_of_birth" db:"date_of_birth"`
	Gender      Gender `json:"gender" db:"gender"`
	PhoneNumber string `json:"phone_number" db:"phone_number"`
	Email       string `json:"email" db:"email"`
	Address     string `json:"address" db:"address"`
	NationalID  string `json:"national_id" db:"national_id"`
}

// FullName joins first and last name.
func (c *Client) FullName() string {
	return c.FirstName + " " + c.LastName
}

// Age is the number of whole years between the date of birth and today.
// A birthday later in the year than today has not been reached yet.
func (c *Client) Age(today time.Time) int {
	dob := c.DateOfBirth
	age := today.Year() - dob.Year()
	if today.Month() < dob.Month() || (today.Month() == dob.Month() && today.Day() < dob.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// ClientView is the client representation exposed over the API.
type ClientView struct {
	*Client
	FullName string `json:"full_name"`
	Age      int    `json:"age"`
}

func NewClientView(c *Client, today time.Time) *ClientView {
	return &ClientView{
		Client:   c,
		FullName: c.FullName(),
		Age:      c.Age(today),
	}
}

// ClientViews maps clients to their API representation.
func ClientViews(clients []*Client, today time.Time) []*ClientView {
	views := make([]*ClientView, 0, len(clients))
	for _, c := range clients {
		views = append(views, NewClientView(c, today))
	}
	return views
}

// ClientDetail is a client with its enrollments, each embedding the program.
type ClientDetail struct {
	*ClientView
	Enrollments       []*EnrollmentDetail `json:"enrollments"`
	AvailablePrograms []*HealthProgram    `json:"available_programs,omitempty"`
}
