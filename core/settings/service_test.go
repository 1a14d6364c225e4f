package settings_test

import (
	"context"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/gradebook"
	"github.com/Bebdyshev/usp-backend/core/prediction"
	"github.com/Bebdyshev/usp-backend/core/settings"
	inmemdb "github.com/Bebdyshev/usp-backend/storage/database/inmem"
)

func newService() *settings.Service {
	db := inmemdb.Open()
	return settings.NewService(inmemdb.NewTxRunner(db), inmemdb.NewSettingsRepository(db), core.NewTestConfig())
}

func newValidator() *validator.Validate {
	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	settings.InitValidators(validate, translator)
	return validate
}

func TestService_weightSets(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	w, err := svc.ActiveWeights(ctx)
	if err != nil {
		t.Fatalf("ActiveWeights() error = %v", err)
	}
	assert.Equal(t, prediction.Weights{PreviousClass: 0.3, Teacher: 0.2, Quarters: 0.5}, w, "configured defaults")

	first, err := svc.CreateWeightSet(ctx, settings.NewWeightSet{Name: "trend", PreviousClass: 0.1, Teacher: 0.1, Quarters: 0.8, Activate: true})
	if err != nil {
		t.Fatalf("CreateWeightSet() error = %v", err)
	}
	assert.True(t, first.IsActive)

	w, err = svc.ActiveWeights(ctx)
	if err != nil {
		t.Fatalf("ActiveWeights() error = %v", err)
	}
	assert.Equal(t, first.Weights(), w)

	second, err := svc.CreateWeightSet(ctx, settings.NewWeightSet{Name: "teacher-heavy", PreviousClass: 0.2, Teacher: 0.6, Quarters: 0.2})
	if err != nil {
		t.Fatalf("CreateWeightSet() error = %v", err)
	}
	assert.False(t, second.IsActive, "created inactive unless asked")

	_, err = svc.CreateWeightSet(ctx, settings.NewWeightSet{Name: "trend", PreviousClass: 1})
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("CreateWeightSet() error = %v, want a validation error", err)
	}
	assert.Equal(t, "name", vErr.Fields[0].Field)

	activated, err := svc.ActivateWeightSet(ctx, second.ID)
	if err != nil {
		t.Fatalf("ActivateWeightSet() error = %v", err)
	}
	assert.True(t, activated.IsActive)

	sets, err := svc.WeightSets(ctx)
	if err != nil {
		t.Fatalf("WeightSets() error = %v", err)
	}
	var active int
	for _, ws := range sets {
		if ws.IsActive {
			active++
			assert.Equal(t, second.ID, ws.ID)
		}
	}
	assert.Equal(t, 1, active, "exactly one active set")

	if _, err = svc.ActivateWeightSet(ctx, 999); errors.Cause(err) != settings.ErrNotFound {
		t.Errorf("ActivateWeightSet() error = %v, want ErrNotFound", err)
	}
}

func TestService_columnMapping(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	got, err := svc.ColumnAliases(ctx)
	if err != nil {
		t.Fatalf("ColumnAliases() error = %v", err)
	}
	assert.Len(t, got, len(gradebook.Fields))
	assert.Equal(t, gradebook.DefaultColumnMapping()[gradebook.FieldTeacher], got[len(got)-1].Aliases)

	got, err = svc.UpdateColumnMapping(ctx, settings.UpdateColumnMapping{Fields: []settings.FieldAliases{
		{Field: gradebook.FieldTeacher, Aliases: []string{"прогноз"}},
	}})
	if err != nil {
		t.Fatalf("UpdateColumnMapping() error = %v", err)
	}
	assert.Equal(t, []string{"прогноз"}, got[len(got)-1].Aliases)
	assert.Equal(t, gradebook.DefaultColumnMapping()[gradebook.FieldName], got[0].Aliases, "untouched fields keep defaults")

	mapping, err := svc.ColumnMapping(ctx)
	if err != nil {
		t.Fatalf("ColumnMapping() error = %v", err)
	}
	cols, err := gradebook.ResolveColumns([]string{"ФИО", "Прогноз учителя"}, mapping)
	if err != nil {
		t.Fatalf("ResolveColumns() error = %v", err)
	}
	assert.Equal(t, 1, cols[gradebook.FieldTeacher].Index)

	if err = svc.ResetColumnMapping(ctx); err != nil {
		t.Fatalf("ResetColumnMapping() error = %v", err)
	}
	mapping, err = svc.ColumnMapping(ctx)
	if err != nil {
		t.Fatalf("ColumnMapping() error = %v", err)
	}
	assert.Equal(t, gradebook.DefaultColumnMapping(), mapping)
}

func TestNewWeightSet_validation(t *testing.T) {
	validate := newValidator()

	tests := []struct {
		name    string
		nws     settings.NewWeightSet
		wantErr bool
	}{
		{name: "valid", nws: settings.NewWeightSet{Name: "default", PreviousClass: 0.3, Teacher: 0.2, Quarters: 0.5}},
		{name: "within tolerance", nws: settings.NewWeightSet{Name: "thirds", PreviousClass: 0.33, Teacher: 0.33, Quarters: 0.33}},
		{name: "does not add up", nws: settings.NewWeightSet{Name: "bad", PreviousClass: 0.5, Teacher: 0.5, Quarters: 0.5}, wantErr: true},
		{name: "negative", nws: settings.NewWeightSet{Name: "neg", PreviousClass: -0.5, Teacher: 1, Quarters: 0.5}, wantErr: true},
		{name: "blank name", nws: settings.NewWeightSet{Name: "  ", PreviousClass: 0.3, Teacher: 0.2, Quarters: 0.5}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.nws.Validate(validate); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUpdateColumnMapping_validation(t *testing.T) {
	validate := newValidator()

	tests := []struct {
		name    string
		ucm     settings.UpdateColumnMapping
		want    []settings.FieldAliases
		wantErr bool
	}{
		{
			name: "aliases are cleaned",
			ucm:  settings.UpdateColumnMapping{Fields: []settings.FieldAliases{{Field: " Teacher ", Aliases: []string{" Прогноз ", "", "FORECAST"}}}},
			want: []settings.FieldAliases{{Field: gradebook.FieldTeacher, Aliases: []string{"прогноз", "forecast"}}},
		},
		{
			name:    "unknown field",
			ucm:     settings.UpdateColumnMapping{Fields: []settings.FieldAliases{{Field: "grade", Aliases: []string{"класс"}}}},
			wantErr: true,
		},
		{
			name:    "only blank aliases",
			ucm:     settings.UpdateColumnMapping{Fields: []settings.FieldAliases{{Field: gradebook.FieldQ1, Aliases: []string{" "}}}},
			wantErr: true,
		},
		{name: "nothing to update", ucm: settings.UpdateColumnMapping{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ucm.Validate(context.Background(), validate)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				assert.Equal(t, tt.want, tt.ucm.Fields)
			}
		})
	}
}
