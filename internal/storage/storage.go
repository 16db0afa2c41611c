package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pbaricco/kimai-cli/internal/model"
)

// ErrNotFound is returned when a single-row lookup matches nothing.
var ErrNotFound = errors.New("not found")

const (
	// migration queries
	createUsersTableSQL = `
  CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT NOT NULL UNIQUE,
  alias TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT ''
  )`

	createCustomersTableSQL = `
  CREATE TABLE IF NOT EXISTS customers (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL
  )`

	createProjectsTableSQL = `
  CREATE TABLE IF NOT EXISTS projects (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  customer_id INTEGER NOT NULL,
  name TEXT NOT NULL,
  FOREIGN KEY (customer_id) REFERENCES customers(id)
  )`

	createActivitiesTableSQL = `
  CREATE TABLE IF NOT EXISTS activities (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL
  )`

	createCustomerRatesTableSQL = `
  CREATE TABLE IF NOT EXISTS customer_rates (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  customer_id INTEGER NOT NULL,
  rate REAL NOT NULL DEFAULT 0,
  internal_rate REAL NOT NULL DEFAULT 0,
  FOREIGN KEY (customer_id) REFERENCES customers(id)
  )`

	createTimesheetsTableSQL = `
  CREATE TABLE IF NOT EXISTS timesheets (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL,
  project_id INTEGER NOT NULL,
  activity_id INTEGER NOT NULL,
  begin_ts INTEGER NOT NULL,
  end_ts INTEGER NOT NULL,
  duration INTEGER NOT NULL DEFAULT 0,
  description TEXT NOT NULL DEFAULT '',
  rate REAL NOT NULL DEFAULT 0,
  internal_rate REAL NOT NULL DEFAULT 0,
  fixed_rate REAL NOT NULL DEFAULT 0,
  hourly_rate REAL NOT NULL DEFAULT 0,
  billable INTEGER NOT NULL DEFAULT 1,
  category TEXT NOT NULL DEFAULT 'work',
  FOREIGN KEY (user_id) REFERENCES users(id),
  FOREIGN KEY (project_id) REFERENCES projects(id),
  FOREIGN KEY (activity_id) REFERENCES activities(id)
  )`

	createTimesheetsBeginIndexSQL = `CREATE INDEX IF NOT EXISTS idx_timesheets_user_begin ON timesheets (user_id, begin_ts)`

	// lookup queries
	getUserByNameSQL      = `SELECT id, username, alias, email FROM users WHERE username = ?`
	getActivityByIDSQL    = `SELECT id, name FROM activities WHERE id = ?`
	getRatesByCustomerSQL = `SELECT id, customer_id, rate, internal_rate FROM customer_rates WHERE customer_id = ? ORDER BY id`

	// insert queries
	createUserSQL         = `INSERT INTO users (username, alias, email) VALUES (?, ?, ?)`
	createCustomerSQL     = `INSERT INTO customers (name) VALUES (?)`
	createProjectSQL      = `INSERT INTO projects (customer_id, name) VALUES (?, ?)`
	createActivitySQL     = `INSERT INTO activities (name) VALUES (?)`
	createCustomerRateSQL = `INSERT INTO customer_rates (customer_id, rate, internal_rate) VALUES (?, ?, ?)`
	createTimesheetSQL    = `
  INSERT INTO timesheets (user_id, project_id, activity_id, begin_ts, end_ts, duration, description,
  rate, internal_rate, fixed_rate, hourly_rate, billable, category)
  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectTimesheetsSQL = `
  SELECT t.id, t.begin_ts, t.end_ts, t.duration, t.description,
  t.rate, t.internal_rate, t.fixed_rate, t.hourly_rate, t.billable, t.category,
  u.id, u.username, u.alias, u.email,
  p.id, p.name, c.id, c.name,
  a.id, a.name
  FROM timesheets t
  JOIN users u ON u.id = t.user_id
  JOIN projects p ON p.id = t.project_id
  JOIN customers c ON c.id = p.customer_id
  JOIN activities a ON a.id = t.activity_id`
)

// Store is the sqlite-backed repository for users, customers, projects,
// activities, customer rates and timesheets.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default database location (~/.kimai-cli/kimai.db).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".kimai-cli", "kimai.db"), nil
}

// Open opens (creating if needed) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("storage error creating directories: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("storage error opening %s: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage error pinging %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		createUsersTableSQL,
		createCustomersTableSQL,
		createProjectsTableSQL,
		createActivitiesTableSQL,
		createCustomerRatesTableSQL,
		createTimesheetsTableSQL,
		createTimesheetsBeginIndexSQL,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("storage error running migration: %w", err)
		}
	}
	return nil
}

// UserByName loads a user by username.
func (s *Store) UserByName(ctx context.Context, username string) (model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx, getUserByNameSQL, username).Scan(&u.ID, &u.Username, &u.Alias, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("storage error loading user %q: %w", username, err)
	}
	return u, nil
}

// CustomersByIDs returns the customers with the given ids in the order they
// were requested. Unknown ids are skipped.
func (s *Store) CustomersByIDs(ctx context.Context, ids []int64) ([]model.Customer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT id, name FROM customers WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := s.db.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("storage error loading customers: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]model.Customer, len(ids))
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("storage error scanning customer: %w", err)
		}
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage error loading customers: %w", err)
	}

	customers := make([]model.Customer, 0, len(byID))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			customers = append(customers, c)
		}
	}
	return customers, nil
}

// ProjectsForCustomers returns the projects of the given customers ordered by id.
func (s *Store) ProjectsForCustomers(ctx context.Context, customerIDs []int64) ([]model.Project, error) {
	if len(customerIDs) == 0 {
		return nil, nil
	}
	query := `SELECT p.id, p.customer_id, p.name, c.name FROM projects p
  JOIN customers c ON c.id = p.customer_id
  WHERE p.customer_id IN (` + placeholders(len(customerIDs)) + `) ORDER BY p.id`
	rows, err := s.db.QueryContext(ctx, query, int64Args(customerIDs)...)
	if err != nil {
		return nil, fmt.Errorf("storage error loading projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var p model.Project
		c := &model.Customer{}
		if err := rows.Scan(&p.ID, &p.CustomerID, &p.Name, &c.Name); err != nil {
			return nil, fmt.Errorf("storage error scanning project: %w", err)
		}
		c.ID = p.CustomerID
		p.Customer = c
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage error loading projects: %w", err)
	}
	return projects, nil
}

// ActivityByID loads a single activity.
func (s *Store) ActivityByID(ctx context.Context, id int64) (model.Activity, error) {
	var a model.Activity
	err := s.db.QueryRowContext(ctx, getActivityByIDSQL, id).Scan(&a.ID, &a.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Activity{}, fmt.Errorf("activity %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Activity{}, fmt.Errorf("storage error loading activity %d: %w", id, err)
	}
	return a, nil
}

// RatesForCustomer returns the rates configured for a customer ordered by id.
func (s *Store) RatesForCustomer(ctx context.Context, customerID int64) ([]model.CustomerRate, error) {
	rows, err := s.db.QueryContext(ctx, getRatesByCustomerSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("storage error loading rates: %w", err)
	}
	defer rows.Close()

	var rates []model.CustomerRate
	for rows.Next() {
		var r model.CustomerRate
		if err := rows.Scan(&r.ID, &r.CustomerID, &r.Rate, &r.InternalRate); err != nil {
			return nil, fmt.Errorf("storage error scanning rate: %w", err)
		}
		rates = append(rates, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage error loading rates: %w", err)
	}
	return rates, nil
}

// TimesheetsForQuery returns the timesheets matching q ordered by begin.
func (s *Store) TimesheetsForQuery(ctx context.Context, q model.TimesheetQuery) ([]model.Timesheet, error) {
	var (
		where []string
		args  []any
	)
	if q.User.ID != 0 {
		where = append(where, "t.user_id = ?")
		args = append(args, q.User.ID)
	}
	if len(q.Customers) > 0 {
		where = append(where, "p.customer_id IN ("+placeholders(len(q.Customers))+")")
		args = append(args, int64Args(q.Customers)...)
	}
	if !q.Begin.IsZero() {
		where = append(where, "t.begin_ts >= ?")
		args = append(args, q.Begin.Unix())
	}
	if !q.End.IsZero() {
		where = append(where, "t.begin_ts <= ?")
		args = append(args, q.End.Unix())
	}

	query := selectTimesheetsSQL
	if len(where) > 0 {
		query += "\n  WHERE " + strings.Join(where, " AND ")
	}
	query += "\n  ORDER BY t.begin_ts, t.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage error loading timesheets: %w", err)
	}
	defer rows.Close()

	var entries []model.Timesheet
	for rows.Next() {
		var (
			ts         model.Timesheet
			begin, end int64
			customer   model.Customer
		)
		err := rows.Scan(
			&ts.ID, &begin, &end, &ts.Duration, &ts.Description,
			&ts.Rate, &ts.InternalRate, &ts.FixedRate, &ts.HourlyRate, &ts.Billable, &ts.Category,
			&ts.User.ID, &ts.User.Username, &ts.User.Alias, &ts.User.Email,
			&ts.Project.ID, &ts.Project.Name, &customer.ID, &customer.Name,
			&ts.Activity.ID, &ts.Activity.Name,
		)
		if err != nil {
			return nil, fmt.Errorf("storage error scanning timesheet: %w", err)
		}
		ts.Begin = time.Unix(begin, 0).In(time.Local)
		ts.End = time.Unix(end, 0).In(time.Local)
		ts.Project.CustomerID = customer.ID
		ts.Project.Customer = &customer
		entries = append(entries, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage error loading timesheets: %w", err)
	}
	return entries, nil
}

// SaveTimesheet inserts a new timesheet, assigning its ID and End.
func (s *Store) SaveTimesheet(ctx context.Context, ts *model.Timesheet) error {
	ts.End = ts.Begin.Add(time.Duration(ts.Duration) * time.Second)
	res, err := s.db.ExecContext(ctx, createTimesheetSQL,
		ts.User.ID, ts.Project.ID, ts.Activity.ID,
		ts.Begin.Unix(), ts.End.Unix(), ts.Duration, ts.Description,
		ts.Rate, ts.InternalRate, ts.FixedRate, ts.HourlyRate, ts.Billable, ts.Category,
	)
	if err != nil {
		return fmt.Errorf("storage error saving timesheet: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("storage error reading timesheet id: %w", err)
	}
	ts.ID = id
	return nil
}

// CreateUser inserts a user and returns it with its ID.
func (s *Store) CreateUser(ctx context.Context, username, alias, email string) (model.User, error) {
	id, err := s.insert(ctx, createUserSQL, username, alias, email)
	if err != nil {
		return model.User{}, fmt.Errorf("storage error creating user %q: %w", username, err)
	}
	return model.User{ID: id, Username: username, Alias: alias, Email: email}, nil
}

// CreateCustomer inserts a customer.
func (s *Store) CreateCustomer(ctx context.Context, name string) (model.Customer, error) {
	id, err := s.insert(ctx, createCustomerSQL, name)
	if err != nil {
		return model.Customer{}, fmt.Errorf("storage error creating customer %q: %w", name, err)
	}
	return model.Customer{ID: id, Name: name}, nil
}

// CreateProject inserts a project for customerID.
func (s *Store) CreateProject(ctx context.Context, customerID int64, name string) (model.Project, error) {
	id, err := s.insert(ctx, createProjectSQL, customerID, name)
	if err != nil {
		return model.Project{}, fmt.Errorf("storage error creating project %q: %w", name, err)
	}
	return model.Project{ID: id, CustomerID: customerID, Name: name}, nil
}

// CreateActivity inserts an activity.
func (s *Store) CreateActivity(ctx context.Context, name string) (model.Activity, error) {
	id, err := s.insert(ctx, createActivitySQL, name)
	if err != nil {
		return model.Activity{}, fmt.Errorf("storage error creating activity %q: %w", name, err)
	}
	return model.Activity{ID: id, Name: name}, nil
}

// CreateCustomerRate inserts a rate for customerID.
func (s *Store) CreateCustomerRate(ctx context.Context, customerID int64, rate, internalRate float64) (model.CustomerRate, error) {
	id, err := s.insert(ctx, createCustomerRateSQL, customerID, rate, internalRate)
	if err != nil {
		return model.CustomerRate{}, fmt.Errorf("storage error creating rate: %w", err)
	}
	return model.CustomerRate{ID: id, CustomerID: customerID, Rate: rate, InternalRate: internalRate}, nil
}

func (s *Store) insert(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
