package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mhollis/appraisal-engine/internal/valuation"
)

var ErrNotFound = errors.New("appraisal not found")

// Appraisal is one persisted valuation run: the subject and comparables as
// submitted, the engine result, and an optional generated narrative.
type Appraisal struct {
	ID          string                   `json:"id"`
	CreatedAt   time.Time                `json:"created_at"`
	Subject     valuation.SubjectDetails `json:"subject"`
	Comparables []valuation.Comparable   `json:"comparables"`
	Result      *valuation.Result        `json:"result,omitempty"`
	Narrative   *Narrative               `json:"narrative,omitempty"`
}

type Narrative struct {
	Summary    string    `json:"summary"`
	KeyFactors []string  `json:"key_factors"`
	Caveats    []string  `json:"caveats"`
	Model      string    `json:"model"`
	CreatedAt  time.Time `json:"created_at"`
}

// Summary is the list-view projection of an appraisal.
type Summary struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	PropertyType  string    `json:"property_type"`
	Comparables   int       `json:"comparables"`
	ValuationLow  float64   `json:"valuation_low"`
	ValuationHigh float64   `json:"valuation_high"`
	Confidence    float64   `json:"valuation_confidence"`
}

// Store persists appraisals to SQLite. Structured payloads are written as
// JSON columns; the handful of fields the list and range queries need are
// broken out into typed columns.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS appraisals (
	id            TEXT PRIMARY KEY,
	created_at    TEXT NOT NULL,
	property_type TEXT NOT NULL DEFAULT '',
	subject       TEXT NOT NULL,
	comparables   TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS results (
	appraisal_id   TEXT PRIMARY KEY REFERENCES appraisals(id),
	valuation_low  REAL NOT NULL,
	valuation_high REAL NOT NULL,
	confidence     REAL NOT NULL,
	payload        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS narratives (
	appraisal_id TEXT PRIMARY KEY REFERENCES appraisals(id),
	summary      TEXT NOT NULL DEFAULT '',
	payload      TEXT NOT NULL,
	model        TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL
);
`

// Open opens (creating if necessary) the appraisal database at path.
// Pass ":memory:" for an ephemeral database in tests.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SetClock overrides the timestamp source; tests use it for stable output.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

func (s *Store) CreateAppraisal(subject valuation.SubjectDetails, comps []valuation.Comparable, result *valuation.Result) (Appraisal, error) {
	a := Appraisal{
		ID:          uuid.NewString(),
		CreatedAt:   s.now(),
		Subject:     subject,
		Comparables: comps,
		Result:      result,
	}

	subjectJSON, err := json.Marshal(a.Subject)
	if err != nil {
		return Appraisal{}, fmt.Errorf("marshal subject: %w", err)
	}
	compsJSON, err := json.Marshal(a.Comparables)
	if err != nil {
		return Appraisal{}, fmt.Errorf("marshal comparables: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Appraisal{}, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO appraisals (id, created_at, property_type, subject, comparables) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.CreatedAt.Format(time.RFC3339Nano), a.Subject.PropertyType, string(subjectJSON), string(compsJSON),
	); err != nil {
		return Appraisal{}, fmt.Errorf("insert appraisal: %w", err)
	}

	if a.Result != nil {
		resultJSON, err := json.Marshal(a.Result)
		if err != nil {
			return Appraisal{}, fmt.Errorf("marshal result: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO results (appraisal_id, valuation_low, valuation_high, confidence, payload) VALUES (?, ?, ?, ?, ?)`,
			a.ID, a.Result.ValuationLow, a.Result.ValuationHigh, a.Result.Confidence, string(resultJSON),
		); err != nil {
			return Appraisal{}, fmt.Errorf("insert result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Appraisal{}, err
	}
	return a, nil
}

func (s *Store) GetAppraisal(id string) (Appraisal, error) {
	var (
		createdAt   string
		subjectJSON string
		compsJSON   string
	)
	row := s.db.QueryRow(`SELECT created_at, subject, comparables FROM appraisals WHERE id = ?`, id)
	if err := row.Scan(&createdAt, &subjectJSON, &compsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Appraisal{}, ErrNotFound
		}
		return Appraisal{}, err
	}

	a := Appraisal{ID: id}
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if err := json.Unmarshal([]byte(subjectJSON), &a.Subject); err != nil {
		return Appraisal{}, fmt.Errorf("decode subject: %w", err)
	}
	if err := json.Unmarshal([]byte(compsJSON), &a.Comparables); err != nil {
		return Appraisal{}, fmt.Errorf("decode comparables: %w", err)
	}

	var resultJSON string
	err := s.db.QueryRow(`SELECT payload FROM results WHERE appraisal_id = ?`, id).Scan(&resultJSON)
	switch {
	case err == nil:
		var res valuation.Result
		if err := json.Unmarshal([]byte(resultJSON), &res); err != nil {
			return Appraisal{}, fmt.Errorf("decode result: %w", err)
		}
		a.Result = &res
	case errors.Is(err, sql.ErrNoRows):
	default:
		return Appraisal{}, err
	}

	var narrativeJSON string
	err = s.db.QueryRow(`SELECT payload FROM narratives WHERE appraisal_id = ?`, id).Scan(&narrativeJSON)
	switch {
	case err == nil:
		var n Narrative
		if err := json.Unmarshal([]byte(narrativeJSON), &n); err != nil {
			return Appraisal{}, fmt.Errorf("decode narrative: %w", err)
		}
		a.Narrative = &n
	case errors.Is(err, sql.ErrNoRows):
	default:
		return Appraisal{}, err
	}

	return a, nil
}

func (s *Store) ListAppraisals(limit, offset int) ([]Summary, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM appraisals`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.Query(`
		SELECT a.id, a.created_at, a.property_type, a.comparables,
		       COALESCE(r.valuation_low, 0), COALESCE(r.valuation_high, 0), COALESCE(r.confidence, 0)
		FROM appraisals a
		LEFT JOIN results r ON r.appraisal_id = a.id
		ORDER BY a.created_at DESC, a.id
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sm        Summary
			createdAt string
			compsJSON string
		)
		if err := rows.Scan(&sm.ID, &createdAt, &sm.PropertyType, &compsJSON, &sm.ValuationLow, &sm.ValuationHigh, &sm.Confidence); err != nil {
			return nil, 0, err
		}
		sm.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		var comps []valuation.Comparable
		_ = json.Unmarshal([]byte(compsJSON), &comps)
		sm.Comparables = len(comps)
		out = append(out, sm)
	}
	return out, total, rows.Err()
}

func (s *Store) DeleteAppraisal(id string) error {
	res, err := s.db.Exec(`DELETE FROM appraisals WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	_, _ = s.db.Exec(`DELETE FROM results WHERE appraisal_id = ?`, id)
	_, _ = s.db.Exec(`DELETE FROM narratives WHERE appraisal_id = ?`, id)
	return nil
}

// SaveNarrative attaches (or replaces) the generated narrative for an
// appraisal.
func (s *Store) SaveNarrative(id string, n Narrative) (Narrative, error) {
	var exists int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM appraisals WHERE id = ?`, id).Scan(&exists); err != nil {
		return Narrative{}, err
	}
	if exists == 0 {
		return Narrative{}, ErrNotFound
	}

	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return Narrative{}, fmt.Errorf("marshal narrative: %w", err)
	}
	if _, err := s.db.Exec(`
		INSERT INTO narratives (appraisal_id, summary, payload, model, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(appraisal_id) DO UPDATE SET
			summary = excluded.summary,
			payload = excluded.payload,
			model = excluded.model,
			created_at = excluded.created_at`,
		id, n.Summary, string(payload), n.Model, n.CreatedAt.Format(time.RFC3339Nano),
	); err != nil {
		return Narrative{}, err
	}
	return n, nil
}
