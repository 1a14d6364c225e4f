package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/Bebdyshev/usp-backend/core"
)

// Roles
const (
	RoleAdmin   = "admin:"
	RoleCurator = "curator:"
	RoleTeacher = "teacher:"
)

var (
	AllRoles = []string{RoleAdmin, RoleCurator, RoleTeacher}

	rolePriorities = map[string]int{
		RoleAdmin:   30,
		RoleCurator: 20,
		RoleTeacher: 10,
	}

	Roles = []Role{
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Curator", Value: RoleCurator},
		{Name: "Admin", Value: RoleAdmin},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	IsActive     *bool     `json:"is_active"`
	Roles        []string  `json:"roles"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) SetActive(active bool) {
	u.IsActive = &active
}

func (u User) Active() bool {
	return u.IsActive == nil || *u.IsActive
}

func (u User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u User) IsAdmin() bool   { return u.RoleStartsWith(RoleAdmin) }
func (u User) IsCurator() bool { return u.RoleStartsWith(RoleCurator) }
func (u User) IsTeacher() bool { return u.RoleStartsWith(RoleTeacher) }

// GradeAssignment gives a curator or a teacher access to a grade, optionally for one subject.
type GradeAssignment struct {
	UserID    string `json:"user_id" db:"user_id"`
	GradeID   int    `json:"grade_id" db:"grade_id"`
	SubjectID *int   `json:"subject_id,omitempty" db:"subject_id"`
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string   `json:"name" validate:"required"`
	Email           string   `json:"email" validate:"required,email"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkUniqueness(ctx, nu.Email)
}

// NewAssignment is the payload for assigning a grade to a user.
type NewAssignment struct {
	GradeID   int  `json:"grade_id" validate:"required,gt=0"`
	SubjectID *int `json:"subject_id" validate:"omitempty,gt=0"`
}

type GetFilter struct {
	ID    string
	Email string
}
