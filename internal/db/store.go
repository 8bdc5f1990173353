package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/backend/internal/dispatch"
	"github.com/fieldops/backend/internal/models"
)

// ErrAlreadyAssigned is returned when an assignment races another writer and
// reassignment was not requested.
var ErrAlreadyAssigned = errors.New("job already assigned")

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Migrate creates the schema when it does not exist yet. Safe to run on
// every startup.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			customer_name TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			lat DOUBLE PRECISION,
			lon DOUBLE PRECISION,
			requested_window_start TIMESTAMPTZ,
			requested_window_end TIMESTAMPTZ,
			required_skills TEXT[] NOT NULL DEFAULT '{}',
			status TEXT NOT NULL DEFAULT 'new',
			estimated_duration_minutes INT NOT NULL DEFAULT 0,
			assigned_technician_id TEXT,
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS technicians (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			skills TEXT[] NOT NULL DEFAULT '{}',
			status TEXT NOT NULL DEFAULT 'available',
			last_lat DOUBLE PRECISION,
			last_lon DOUBLE PRECISION,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS assignments (
			id TEXT PRIMARY KEY,
			job_id TEXT NOT NULL REFERENCES jobs(id),
			technician_id TEXT,
			score_breakdown JSONB,
			reason TEXT NOT NULL DEFAULT '',
			created_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS sla_actions (
			id TEXT PRIMARY KEY,
			job_id TEXT NOT NULL REFERENCES jobs(id),
			recommended_action TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			suggested_technician_id TEXT,
			risk_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			risk_level TEXT NOT NULL DEFAULT 'low',
			status TEXT NOT NULL DEFAULT 'pending',
			meta JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			applied_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
		CREATE INDEX IF NOT EXISTS idx_jobs_assigned_tech ON jobs(assigned_technician_id);
		CREATE INDEX IF NOT EXISTS idx_assignments_job ON assignments(job_id);
		CREATE INDEX IF NOT EXISTS idx_sla_actions_job_status ON sla_actions(job_id, status);
	`)
	return err
}

const jobColumns = `id, customer_name, address, lat, lon, requested_window_start, requested_window_end,
	required_skills, status, estimated_duration_minutes, assigned_technician_id, notes, created_at, updated_at`

func scanJob(row pgx.Row) (models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.CustomerName, &j.Address, &j.Lat, &j.Lon, &j.WindowStart, &j.WindowEnd,
		&j.RequiredSkills, &j.Status, &j.EstimatedDurationMinutes, &j.AssignedTechnicianID, &j.Notes, &j.CreatedAt, &j.UpdatedAt)
	return j, err
}

func (s *Store) CreateJob(ctx context.Context, j models.Job) (models.Job, error) {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Status == "" {
		j.Status = models.JobStatusNew
	}
	now := time.Now().UTC()
	j.CreatedAt = now
	j.UpdatedAt = now

	_, err := s.Pool.Exec(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, j.ID, j.CustomerName, j.Address, j.Lat, j.Lon, j.WindowStart, j.WindowEnd,
		j.RequiredSkills, j.Status, j.EstimatedDurationMinutes, j.AssignedTechnicianID, j.Notes, j.CreatedAt, j.UpdatedAt)
	return j, err
}

func (s *Store) GetJob(ctx context.Context, id string) (models.Job, error) {
	return scanJob(s.Pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
}

func (s *Store) ListJobs(ctx context.Context, status, q string, limit, offset int) ([]models.Job, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []any
	var wheres []string
	if status != "" {
		args = append(args, status)
		wheres = append(wheres, fmt.Sprintf("LOWER(status) = LOWER($%d)", len(args)))
	}
	if q != "" {
		args = append(args, "%"+q+"%")
		wheres = append(wheres, fmt.Sprintf("(customer_name ILIKE $%d OR address ILIKE $%d OR id ILIKE $%d)", len(args), len(args), len(args)))
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT $" + fmt.Sprint(len(args)+1) + " OFFSET $" + fmt.Sprint(len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *Store) UpdateJobStatus(ctx context.Context, id, status string) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE jobs SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) SetJobCoordinates(ctx context.Context, id string, lat, lon float64) error {
	_, err := s.Pool.Exec(ctx, `UPDATE jobs SET lat = $1, lon = $2, updated_at = NOW() WHERE id = $3`, lat, lon, id)
	return err
}

// ListAssignedJobs feeds the SLA sweep: active jobs with a technician,
// oldest window first so at-risk jobs surface within the batch limit.
func (s *Store) ListAssignedJobs(ctx context.Context, limit int) ([]models.Job, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE assigned_technician_id IS NOT NULL
		  AND LOWER(status) IN ('assigned', 'in_progress')
		ORDER BY requested_window_end ASC NULLS LAST
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *Store) ListActiveJobsByTechnician(ctx context.Context, techID string) ([]models.Job, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE assigned_technician_id = $1
		  AND LOWER(status) IN ('assigned', 'in_progress')
		ORDER BY requested_window_start ASC NULLS LAST
	`, techID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

const techColumns = `id, name, skills, status, last_lat, last_lon, updated_at`

func scanTechnician(row pgx.Row) (models.Technician, error) {
	var t models.Technician
	err := row.Scan(&t.ID, &t.Name, &t.Skills, &t.Status, &t.LastLat, &t.LastLon, &t.UpdatedAt)
	return t, err
}

func (s *Store) CreateTechnician(ctx context.Context, t models.Technician) (models.Technician, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = models.TechStatusAvailable
	}
	t.UpdatedAt = time.Now().UTC()
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO technicians (`+techColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, t.ID, t.Name, t.Skills, t.Status, t.LastLat, t.LastLon, t.UpdatedAt)
	return t, err
}

func (s *Store) ListTechnicians(ctx context.Context) ([]models.Technician, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+techColumns+` FROM technicians ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Technician
	for rows.Next() {
		t, err := scanTechnician(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTechnician(ctx context.Context, id string) (models.Technician, error) {
	return scanTechnician(s.Pool.QueryRow(ctx, `SELECT `+techColumns+` FROM technicians WHERE id = $1`, id))
}

func (s *Store) UpdateTechnicianPosition(ctx context.Context, id string, lat, lon float64, status string) (models.Technician, error) {
	query := `UPDATE technicians SET last_lat = $1, last_lon = $2, updated_at = NOW()`
	args := []any{lat, lon}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(", status = $%d", len(args))
	}
	args = append(args, id)
	query += fmt.Sprintf(" WHERE id = $%d RETURNING %s", len(args), techColumns)
	return scanTechnician(s.Pool.QueryRow(ctx, query, args...))
}

// WorkloadCounts aggregates, per technician, the number of currently active
// jobs and the number of assignment events since the given cutoff.
func (s *Store) WorkloadCounts(ctx context.Context, since time.Time) (map[string]dispatch.WorkloadCounts, error) {
	out := map[string]dispatch.WorkloadCounts{}

	rows, err := s.Pool.Query(ctx, `
		SELECT assigned_technician_id, COUNT(*) FROM jobs
		WHERE assigned_technician_id IS NOT NULL
		  AND LOWER(status) IN ('assigned', 'in_progress')
		GROUP BY assigned_technician_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		c := out[id]
		c.AssignedCount = n
		out[id] = c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	recent, err := s.Pool.Query(ctx, `
		SELECT technician_id, COUNT(*) FROM assignments
		WHERE technician_id IS NOT NULL AND created_at >= $1
		GROUP BY technician_id
	`, since)
	if err != nil {
		return nil, err
	}
	defer recent.Close()
	for recent.Next() {
		var id string
		var n int
		if err := recent.Scan(&id, &n); err != nil {
			return nil, err
		}
		c := out[id]
		c.RecentAssignmentCount = n
		out[id] = c
	}
	return out, recent.Err()
}

// AssignJob locks the job row, applies the assignment and writes an
// immutable audit record. Assigning an already-assigned job fails with
// ErrAlreadyAssigned unless allowReassign is set.
func (s *Store) AssignJob(ctx context.Context, jobID string, techID *string, breakdown []byte, reason, createdBy string, allowReassign bool) (models.Job, error) {
	var job models.Job
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		j, err := scanJob(tx.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, jobID))
		if err != nil {
			return err
		}
		if j.AssignedTechnicianID != nil && !allowReassign {
			return ErrAlreadyAssigned
		}

		status := models.JobStatusAssigned
		if techID == nil {
			status = models.JobStatusNew
		}
		j, err = scanJob(tx.QueryRow(ctx, `
			UPDATE jobs SET assigned_technician_id = $1, status = $2, updated_at = NOW()
			WHERE id = $3
			RETURNING `+jobColumns, techID, status, jobID))
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO assignments (id, job_id, technician_id, score_breakdown, reason, created_by, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,NOW())
		`, uuid.NewString(), jobID, techID, breakdown, reason, createdBy)
		if err != nil {
			return err
		}
		job = j
		return nil
	})
	return job, err
}

func (s *Store) ListAssignments(ctx context.Context, jobID string) ([]models.Assignment, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, job_id, technician_id, score_breakdown, reason, created_by, created_at
		FROM assignments WHERE job_id = $1 ORDER BY created_at ASC
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Assignment
	for rows.Next() {
		var a models.Assignment
		if err := rows.Scan(&a.ID, &a.JobID, &a.TechnicianID, &a.ScoreBreakdown, &a.Reason, &a.CreatedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const slaColumns = `id, job_id, recommended_action, reason, suggested_technician_id, risk_score, risk_level, status, meta, created_at, applied_at`

func scanSLAAction(row pgx.Row) (models.SLAAction, error) {
	var a models.SLAAction
	err := row.Scan(&a.ID, &a.JobID, &a.RecommendedAction, &a.Reason, &a.SuggestedTechnicianID,
		&a.RiskScore, &a.RiskLevel, &a.Status, &a.Meta, &a.CreatedAt, &a.AppliedAt)
	return a, err
}

// PendingSLAAction returns the pending action for a job, or nil when none
// exists.
func (s *Store) PendingSLAAction(ctx context.Context, jobID string) (*models.SLAAction, error) {
	a, err := scanSLAAction(s.Pool.QueryRow(ctx, `
		SELECT `+slaColumns+` FROM sla_actions
		WHERE job_id = $1 AND status = 'pending'
		ORDER BY created_at DESC LIMIT 1
	`, jobID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) GetSLAAction(ctx context.Context, id string) (models.SLAAction, error) {
	return scanSLAAction(s.Pool.QueryRow(ctx, `SELECT `+slaColumns+` FROM sla_actions WHERE id = $1`, id))
}

func (s *Store) ListPendingSLAActions(ctx context.Context, limit int) ([]models.SLAAction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+slaColumns+` FROM sla_actions
		WHERE status = 'pending'
		ORDER BY risk_score DESC, created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SLAAction
	for rows.Next() {
		a, err := scanSLAAction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CreateSLAAction(ctx context.Context, a models.SLAAction) (models.SLAAction, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = models.SLAStatusPending
	}
	a.CreatedAt = time.Now().UTC()
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO sla_actions (id, job_id, recommended_action, reason, suggested_technician_id, risk_score, risk_level, status, meta, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, a.ID, a.JobID, a.RecommendedAction, a.Reason, a.SuggestedTechnicianID, a.RiskScore, a.RiskLevel, a.Status, a.Meta, a.CreatedAt)
	return a, err
}

func (s *Store) EscalateSLAAction(ctx context.Context, id string, riskScore float64, level, recommendedAction string, suggested *string, meta []byte) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE sla_actions
		SET risk_score = $1, risk_level = $2, recommended_action = $3, suggested_technician_id = $4, meta = $5
		WHERE id = $6 AND status = 'pending'
	`, riskScore, level, recommendedAction, suggested, meta, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) MarkSLAActionApplied(ctx context.Context, id string, status string) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE sla_actions SET status = $1, applied_at = NOW()
		WHERE id = $2 AND status = 'pending'
	`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
