package model

// HealthProgram is a program clients can be enrolled in.
type HealthProgram struct {
	Base
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}

// ProgramDetail is a program with its enrollments, each embedding the client.
type ProgramDetail struct {
	*HealthProgram
	Enrollments []*EnrollmentDetail `json:"enrollments"`
}
