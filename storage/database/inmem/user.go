package inmemdb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/user"
)

type userRepository struct {
	db *DB
}

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, _ ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.data.users {
		if strings.EqualFold(usr.Email, email) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	if err := repo.CheckEmailUniqueness(ctx, usr.Email); err != nil {
		return user.User{}, err
	}

	repo.db.Lock()
	defer repo.db.Unlock()

	usr.ID = uuid.New().String()
	repo.db.data.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.data.users[filter.ID]; ok {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.db.data.users {
		if filter.Email != "" && strings.EqualFold(usr.Email, filter.Email) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.data.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.data.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) QueryGradeAssignments(_ context.Context, userID string, _ ...core.DBExecutor) ([]user.GradeAssignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var out []user.GradeAssignment
	for _, a := range repo.db.data.assignments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (repo *userRepository) CreateGradeAssignment(_ context.Context, a user.GradeAssignment, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.data.assignments {
		if existing.UserID == a.UserID && existing.GradeID == a.GradeID && equalIntPtr(existing.SubjectID, a.SubjectID) {
			return nil
		}
	}
	repo.db.data.assignments = append(repo.db.data.assignments, a)
	return nil
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
