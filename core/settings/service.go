// Package settings manages the administrator-owned prediction weights and gradebook column aliases.
package settings

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/gradebook"
	"github.com/Bebdyshev/usp-backend/core/prediction"
)

var (
	ErrNotFound        = errors.New("weight set not found")
	ErrNoActiveWeights = errors.New("no active weight set")
	ErrNameExists      = errors.New("a weight set with this name already exists")
)

type Repository interface {
	QueryWeightSets(ctx context.Context, exec ...core.DBExecutor) ([]WeightSet, error)
	GetWeightSet(ctx context.Context, id int, exec ...core.DBExecutor) (WeightSet, error)
	// GetActiveWeightSet returns ErrNoActiveWeights when no set is active.
	GetActiveWeightSet(ctx context.Context, exec ...core.DBExecutor) (WeightSet, error)
	CreateWeightSet(ctx context.Context, ws WeightSet, exec ...core.DBExecutor) (WeightSet, error)
	// ActivateWeightSet deactivates every other set.
	ActivateWeightSet(ctx context.Context, id int, exec ...core.DBExecutor) error

	QueryColumnAliases(ctx context.Context, exec ...core.DBExecutor) ([]FieldAliases, error)
	SaveColumnAliases(ctx context.Context, fa FieldAliases, exec ...core.DBExecutor) error
	DeleteColumnAliases(ctx context.Context, exec ...core.DBExecutor) error
}

type Service struct {
	tx       core.TxRunner
	repo     Repository
	defaults prediction.Weights
}

// NewService returns a Service falling back to the configured weights while no set is active.
func NewService(tx core.TxRunner, repo Repository, conf *core.Config) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	return &Service{
		tx:   tx,
		repo: repo,
		defaults: prediction.Weights{
			PreviousClass: conf.Prediction.PreviousClass,
			Teacher:       conf.Prediction.Teacher,
			Quarters:      conf.Prediction.Quarters,
		},
	}
}

// ActiveWeights returns the weights of the active set, or the configured defaults.
func (svc *Service) ActiveWeights(ctx context.Context) (prediction.Weights, error) {
	ws, err := svc.repo.GetActiveWeightSet(ctx)
	if err != nil {
		if errors.Cause(err) == ErrNoActiveWeights {
			return svc.defaults, nil
		}
		return prediction.Weights{}, errors.Wrap(err, "getting active weight set")
	}
	return ws.Weights(), nil
}

func (svc *Service) WeightSets(ctx context.Context) ([]WeightSet, error) {
	return svc.repo.QueryWeightSets(ctx)
}

func (svc *Service) CreateWeightSet(ctx context.Context, nws NewWeightSet) (WeightSet, error) {
	now := time.Now().UTC()
	ws := WeightSet{
		Name:          nws.Name,
		PreviousClass: nws.PreviousClass,
		Teacher:       nws.Teacher,
		Quarters:      nws.Quarters,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if ws, err = svc.repo.CreateWeightSet(ctx, ws, exec); err != nil {
			if errors.Cause(err) == ErrNameExists {
				return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
			}
			return errors.Wrap(err, "creating weight set")
		}
		if nws.Activate {
			if err = svc.repo.ActivateWeightSet(ctx, ws.ID, exec); err != nil {
				return errors.Wrap(err, "activating weight set")
			}
			ws.IsActive = true
		}
		return nil
	})
	if err != nil {
		return WeightSet{}, err
	}
	return ws, nil
}

func (svc *Service) ActivateWeightSet(ctx context.Context, id int) (WeightSet, error) {
	var ws WeightSet
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if ws, err = svc.repo.GetWeightSet(ctx, id, exec); err != nil {
			return err
		}
		if err = svc.repo.ActivateWeightSet(ctx, id, exec); err != nil {
			return errors.Wrap(err, "activating weight set")
		}
		ws.IsActive = true
		return nil
	})
	if err != nil {
		return WeightSet{}, err
	}
	return ws, nil
}

// ColumnMapping returns the aliases to resolve gradebook columns with: defaults plus saved overrides.
func (svc *Service) ColumnMapping(ctx context.Context) (gradebook.ColumnMapping, error) {
	saved, err := svc.repo.QueryColumnAliases(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying column aliases")
	}
	overrides := make(gradebook.ColumnMapping, len(saved))
	for _, fa := range saved {
		overrides[fa.Field] = fa.Aliases
	}
	return gradebook.WithOverrides(overrides), nil
}

// ColumnAliases returns the effective mapping, one entry per canonical field in resolution order.
func (svc *Service) ColumnAliases(ctx context.Context) ([]FieldAliases, error) {
	mapping, err := svc.ColumnMapping(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]FieldAliases, 0, len(gradebook.Fields))
	for _, fld := range gradebook.Fields {
		out = append(out, FieldAliases{Field: fld, Aliases: mapping[fld]})
	}
	return out, nil
}

func (svc *Service) UpdateColumnMapping(ctx context.Context, ucm UpdateColumnMapping) ([]FieldAliases, error) {
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		for _, fa := range ucm.Fields {
			if err := svc.repo.SaveColumnAliases(ctx, fa, exec); err != nil {
				return errors.Wrapf(err, "saving aliases of %s", fa.Field)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return svc.ColumnAliases(ctx)
}

// ResetColumnMapping drops every override.
func (svc *Service) ResetColumnMapping(ctx context.Context) error {
	return svc.repo.DeleteColumnAliases(ctx)
}
