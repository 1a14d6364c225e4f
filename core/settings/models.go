package settings

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/gradebook"
	"github.com/Bebdyshev/usp-backend/core/prediction"
)

// WeightSet is a named set of prediction weights. At most one set is active.
type WeightSet struct {
	ID            int       `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	PreviousClass float64   `json:"previous_class" db:"previous_class"`
	Teacher       float64   `json:"teacher" db:"teacher"`
	Quarters      float64   `json:"quarters" db:"quarters"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

func (ws WeightSet) Weights() prediction.Weights {
	return prediction.Weights{PreviousClass: ws.PreviousClass, Teacher: ws.Teacher, Quarters: ws.Quarters}
}

// NewWeightSet contains information needed to create a WeightSet.
type NewWeightSet struct {
	Name          string  `json:"name" yaml:"name" validate:"required,max=64"`
	PreviousClass float64 `json:"previous_class" yaml:"previous_class" validate:"gte=0,lte=1"`
	Teacher       float64 `json:"teacher" yaml:"teacher" validate:"gte=0,lte=1"`
	Quarters      float64 `json:"quarters" yaml:"quarters" validate:"gte=0,lte=1"`
	Activate      bool    `json:"activate" yaml:"activate"`
}

func (nws *NewWeightSet) Validate(validate *validator.Validate) error {
	nws.Name = core.CleanString(nws.Name)
	return validate.Struct(nws)
}

// FieldAliases are the header fragments identifying the column of a canonical field.
type FieldAliases struct {
	Field   gradebook.Field `json:"field" yaml:"field" validate:"required,canonicalfield"`
	Aliases []string        `json:"aliases" yaml:"aliases" validate:"required,min=1,dive,required"`
}

// UpdateColumnMapping replaces the aliases of the listed fields; other fields are left untouched.
type UpdateColumnMapping struct {
	Fields []FieldAliases `json:"fields" yaml:"fields" validate:"required,min=1,dive"`
}

func (ucm *UpdateColumnMapping) Validate(ctx context.Context, validate *validator.Validate) error {
	for i := range ucm.Fields {
		fa := &ucm.Fields[i]
		fa.Field = gradebook.Field(core.CleanString(string(fa.Field), true /* lower */))
		aliases := make([]string, 0, len(fa.Aliases))
		for _, a := range fa.Aliases {
			if a = core.CleanString(a, true /* lower */); a != "" {
				aliases = append(aliases, a)
			}
		}
		fa.Aliases = aliases
	}
	return validate.StructCtx(ctx, ucm)
}
