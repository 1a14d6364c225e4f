package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/user"
)

const userColumns = `id, name, email, is_active, roles, password_hash, created_at, updated_at, last_login`

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Email        string         `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		IsActive:     usr.Active(),
		Roles:        pq.StringArray(usr.Roles),
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) user() user.User {
	usr := user.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Roles:        []string(r.Roles),
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time.UTC()
	}
	usr.SetActive(r.IsActive)
	return usr
}

type userRepository struct {
	base
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{base{db: db}}
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, exec ...core.DBExecutor) error {
	ext := repo.ext(exec)
	var exists bool
	q := ext.Rebind(`SELECT EXISTS (SELECT 1 FROM "user" WHERE lower(email) = lower(?))`)
	if err := sqlx.GetContext(ctx, ext, &exists, q, email); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	q := `INSERT INTO "user" (` + userColumns + `)
		VALUES (:id, :name, :email, :is_active, :roles, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := sqlx.NamedExecContext(ctx, repo.ext(exec), q, toUserRow(usr)); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	ext := repo.ext(exec)
	var (
		row userRow
		q   string
		arg interface{}
	)
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		q, arg = `SELECT `+userColumns+` FROM "user" WHERE id = ?`, filter.ID
	case filter.Email != "":
		q, arg = `SELECT `+userColumns+` FROM "user" WHERE lower(email) = lower(?)`, filter.Email
	default:
		return user.User{}, user.ErrNotFound
	}
	if err := sqlx.GetContext(ctx, ext, &row, ext.Rebind(q), arg); err != nil {
		return user.User{}, trapNoRows(err, user.ErrNotFound, "getting user")
	}
	return row.user(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	q := `UPDATE "user" SET name = :name, email = :email, is_active = :is_active, roles = :roles,
		password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.ext(exec), q, toUserRow(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) QueryGradeAssignments(ctx context.Context, userID string, exec ...core.DBExecutor) ([]user.GradeAssignment, error) {
	ext := repo.ext(exec)
	var out []user.GradeAssignment
	q := ext.Rebind(`SELECT user_id, grade_id, subject_id FROM grade_assignment WHERE user_id = ? ORDER BY grade_id`)
	if err := sqlx.SelectContext(ctx, ext, &out, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying grade assignments")
	}
	return out, nil
}

func (repo userRepository) CreateGradeAssignment(ctx context.Context, a user.GradeAssignment, exec ...core.DBExecutor) error {
	ext := repo.ext(exec)
	q := `SELECT EXISTS (SELECT 1 FROM grade_assignment WHERE user_id = ? AND grade_id = ? AND subject_id IS NULL)`
	args := []interface{}{a.UserID, a.GradeID}
	if a.SubjectID != nil {
		q = `SELECT EXISTS (SELECT 1 FROM grade_assignment WHERE user_id = ? AND grade_id = ? AND subject_id = ?)`
		args = append(args, *a.SubjectID)
	}
	var exists bool
	if err := sqlx.GetContext(ctx, ext, &exists, ext.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "checking grade assignment")
	}
	if exists {
		return nil
	}

	q = `INSERT INTO grade_assignment (user_id, grade_id, subject_id) VALUES (:user_id, :grade_id, :subject_id)`
	if _, err := sqlx.NamedExecContext(ctx, ext, q, a); err != nil {
		return errors.Wrap(err, "inserting grade assignment")
	}
	return nil
}
