package model

import "time"

// User is the account timesheets are logged for.
type User struct {
	ID       int64
	Username string
	Alias    string
	Email    string
}

// Customer owns projects and the git repositories worked on for it.
type Customer struct {
	ID   int64
	Name string
}

// Project belongs to exactly one customer.
type Project struct {
	ID         int64
	CustomerID int64
	Name       string
	Customer   *Customer
}

// Activity classifies the work of a timesheet entry (e.g. "devel").
type Activity struct {
	ID   int64
	Name string
}

// CustomerRate is a billing rate configured for a customer.
type CustomerRate struct {
	ID           int64
	CustomerID   int64
	Rate         float64
	InternalRate float64
}

// Timesheet is a single logged work record.
type Timesheet struct {
	ID           int64
	User         User
	Project      Project
	Activity     Activity
	Begin        time.Time
	End          time.Time
	Duration     int64
	Description  string
	Rate         float64
	InternalRate float64
	FixedRate    float64
	HourlyRate   float64
	Billable     bool
	Category     string
}

// TimesheetQuery filters timesheets by user, customers and time window.
// An empty Customers slice means "all customers".
type TimesheetQuery struct {
	User      User
	Customers []int64
	Begin     time.Time
	End       time.Time
}

// Commit is a git commit extracted from a local clone. Date holds the
// commit time as printed by git (HH:MM).
type Commit struct {
	Repo    string
	Hash    string
	Author  string
	Date    string
	Message string
}
