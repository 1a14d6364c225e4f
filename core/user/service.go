package user

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/Bebdyshev/usp-backend/core"
)

var (
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
)

type Repository interface {
	CheckEmailUniqueness(ctx context.Context, email string, exec ...core.DBExecutor) error
	CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
	GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
	UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
	QueryGradeAssignments(ctx context.Context, userID string, exec ...core.DBExecutor) ([]GradeAssignment, error)
	CreateGradeAssignment(ctx context.Context, a GradeAssignment, exec ...core.DBExecutor) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	vala.BeginValidation().Validate(vala.IsNotNil(repo, "repo")).CheckAndPanic()
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(ctx context.Context, email string) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(true)
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// Authenticate returns the active user matching the credentials.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrNotFound
	}
	return usr, nil
}

func (svc *Service) ResetPassword(ctx context.Context, email, pwd string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

func (svc *Service) Assign(ctx context.Context, userID string, na NewAssignment) error {
	if _, err := svc.GetByID(ctx, userID); err != nil {
		return err
	}
	return svc.repo.CreateGradeAssignment(ctx, GradeAssignment{UserID: userID, GradeID: na.GradeID, SubjectID: na.SubjectID})
}

// GradeScope returns the grades usr may see: every grade for admins, the assigned grades otherwise.
func (svc *Service) GradeScope(ctx context.Context, usr User) (core.GradeScope, error) {
	if usr.IsAdmin() {
		return core.UnrestrictedScope(), nil
	}
	assignments, err := svc.repo.QueryGradeAssignments(ctx, usr.ID)
	if err != nil {
		return core.GradeScope{}, errors.Wrap(err, "querying grade assignments")
	}
	ids := make([]int, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.GradeID)
	}
	return core.NewGradeScope(ids...), nil
}
