package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"zeusbolt/internal/types"
)

// projectColumns is the select list shared by the project read queries.
const projectColumns = `id, user_id, content, COALESCE(audience, ''),
	COALESCE(refinement_step_1, ''), COALESCE(refinement_step_2, ''), COALESCE(refinement_step_3, ''),
	COALESCE(refinement_step_4, ''), COALESCE(refinement_step_5, ''), COALESCE(refinement_step_6, ''),
	created_at, updated_at`

// listProjectsLimit caps the number of rows returned by ListByUser.
const listProjectsLimit = 20

// ProjectRepo manages user projects and their refinement steps.
// All queries are scoped by user_id so one user can never read or write
// another user's projects.
type ProjectRepo struct {
	db     DBTX
	logger *slog.Logger
}

// NewProjectRepo creates a new ProjectRepo backed by the given database
// connection (pool or transaction).
func NewProjectRepo(db DBTX, logger *slog.Logger) *ProjectRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectRepo{db: db, logger: logger}
}

// Create inserts a new project for the user and returns it with a generated id.
func (r *ProjectRepo) Create(ctx context.Context, userID, content, audience string) (*types.Project, error) {
	id := uuid.NewString()

	var project types.Project
	err := r.db.QueryRow(ctx,
		`INSERT INTO projects (id, user_id, content, audience, created_at, updated_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NOW(), NOW())
		 RETURNING id, user_id, content, COALESCE(audience, ''), created_at, updated_at`,
		id, userID, content, audience,
	).Scan(&project.ID, &project.UserID, &project.Content, &project.Audience, &project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to create project", err)
	}
	return &project, nil
}

// GetByID loads a single project owned by the user, including refinement
// steps. Returns a not-found AppError if no such project exists for the user.
func (r *ProjectRepo) GetByID(ctx context.Context, userID, projectID string) (*types.Project, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+projectColumns+`
		 FROM projects
		 WHERE id = $1 AND user_id = $2`,
		projectID, userID,
	)

	project, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundProject, "project not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load project", err)
	}
	return project, nil
}

// ListByUser returns the user's most recent projects, newest first.
func (r *ProjectRepo) ListByUser(ctx context.Context, userID string) ([]types.Project, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+projectColumns+`
		 FROM projects
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, listProjectsLimit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list projects", err)
	}
	defer rows.Close()

	projects := make([]types.Project, 0)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan project row", err)
		}
		projects = append(projects, *project)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate project rows", err)
	}
	return projects, nil
}

// ProjectRef is a lightweight project reference (id plus creation time) used
// by the count endpoint.
type ProjectRef struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// ListRefsByUser returns id/created_at pairs for all of the user's projects,
// newest first. Unlike ListByUser this is not capped; it backs the count
// endpoint and the rows are two columns wide.
func (r *ProjectRepo) ListRefsByUser(ctx context.Context, userID string) ([]ProjectRef, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, created_at
		 FROM projects
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list project refs", err)
	}
	defer rows.Close()

	refs := make([]ProjectRef, 0)
	for rows.Next() {
		var ref ProjectRef
		if err := rows.Scan(&ref.ID, &ref.CreatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan project ref", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate project refs", err)
	}
	return refs, nil
}

// CountByUser returns the number of projects the user owns. Used to enforce
// the free-tier project limit.
func (r *ProjectRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM projects WHERE user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count projects", err)
	}
	return count, nil
}

// UpdateRefinementStep writes one refinement slot (1-based) on a project
// owned by the user. The step index is validated by the handler; out-of-range
// values here are a programming error.
func (r *ProjectRepo) UpdateRefinementStep(ctx context.Context, userID, projectID string, step int, content string) error {
	if step < 1 || step > types.RefinementSteps {
		return types.NewAppError(types.ErrCodeValidationInvalidStep,
			fmt.Sprintf("refinement step must be between 1 and %d", types.RefinementSteps), nil)
	}

	// The column name is built from a validated integer, never user input.
	query := fmt.Sprintf(
		`UPDATE projects
		 SET refinement_step_%d = $1,
		     updated_at = NOW()
		 WHERE id = $2 AND user_id = $3`, step)

	tag, err := r.db.Exec(ctx, query, content, projectID, userID)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update refinement step", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundProject, "project not found", nil)
	}
	return nil
}

// scanProject scans a project row in projectColumns order.
func scanProject(row pgx.Row) (*types.Project, error) {
	var p types.Project
	err := row.Scan(
		&p.ID, &p.UserID, &p.Content, &p.Audience,
		&p.Refinement[0], &p.Refinement[1], &p.Refinement[2],
		&p.Refinement[3], &p.Refinement[4], &p.Refinement[5],
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
