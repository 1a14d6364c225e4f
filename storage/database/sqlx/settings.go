package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/gradebook"
	"github.com/Bebdyshev/usp-backend/core/settings"
)

const weightSetColumns = `id, name, previous_class, teacher, quarters, is_active, created_at, updated_at`

type aliasRow struct {
	Field   string         `db:"field"`
	Aliases pq.StringArray `db:"aliases"`
}

type settingsRepository struct {
	base
}

var _ settings.Repository = (*settingsRepository)(nil) // interface compliance check

func NewSettingsRepository(db *sqlx.DB) *settingsRepository {
	return &settingsRepository{base{db: db}}
}

func (repo settingsRepository) QueryWeightSets(ctx context.Context, exec ...core.DBExecutor) ([]settings.WeightSet, error) {
	sets := make([]settings.WeightSet, 0)
	if err := sqlx.SelectContext(ctx, repo.ext(exec), &sets, `SELECT `+weightSetColumns+` FROM weight_set ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "querying weight sets")
	}
	return sets, nil
}

func (repo settingsRepository) GetWeightSet(ctx context.Context, id int, exec ...core.DBExecutor) (settings.WeightSet, error) {
	ext := repo.ext(exec)
	var ws settings.WeightSet
	if err := sqlx.GetContext(ctx, ext, &ws, ext.Rebind(`SELECT `+weightSetColumns+` FROM weight_set WHERE id = ?`), id); err != nil {
		return settings.WeightSet{}, trapNoRows(err, settings.ErrNotFound, "getting weight set")
	}
	return ws, nil
}

func (repo settingsRepository) GetActiveWeightSet(ctx context.Context, exec ...core.DBExecutor) (settings.WeightSet, error) {
	var ws settings.WeightSet
	if err := sqlx.GetContext(ctx, repo.ext(exec), &ws, `SELECT `+weightSetColumns+` FROM weight_set WHERE is_active`); err != nil {
		return settings.WeightSet{}, trapNoRows(err, settings.ErrNoActiveWeights, "getting active weight set")
	}
	return ws, nil
}

func (repo settingsRepository) CreateWeightSet(ctx context.Context, ws settings.WeightSet, exec ...core.DBExecutor) (settings.WeightSet, error) {
	ext := repo.ext(exec)
	var exists bool
	if err := sqlx.GetContext(ctx, ext, &exists, ext.Rebind(`SELECT EXISTS (SELECT 1 FROM weight_set WHERE name = ?)`), ws.Name); err != nil {
		return settings.WeightSet{}, errors.Wrap(err, "checking weight set name")
	}
	if exists {
		return settings.WeightSet{}, settings.ErrNameExists
	}

	ws.IsActive = false
	q, args, err := ext.BindNamed(`INSERT INTO weight_set (name, previous_class, teacher, quarters, is_active, created_at, updated_at)
		VALUES (:name, :previous_class, :teacher, :quarters, :is_active, :created_at, :updated_at) RETURNING id`, ws)
	if err != nil {
		return settings.WeightSet{}, errors.Wrap(err, "binding weight set")
	}
	if err = sqlx.GetContext(ctx, ext, &ws.ID, q, args...); err != nil {
		return settings.WeightSet{}, errors.Wrap(err, "inserting weight set")
	}
	return ws, nil
}

// ActivateWeightSet deactivates first: at most one row may be active at any time.
func (repo settingsRepository) ActivateWeightSet(ctx context.Context, id int, exec ...core.DBExecutor) error {
	ext := repo.ext(exec)
	if _, err := ext.ExecContext(ctx, ext.Rebind(`UPDATE weight_set SET is_active = ? WHERE is_active AND id <> ?`), false, id); err != nil {
		return errors.Wrap(err, "deactivating weight sets")
	}
	res, err := ext.ExecContext(ctx, ext.Rebind(`UPDATE weight_set SET is_active = ? WHERE id = ?`), true, id)
	if err != nil {
		return errors.Wrap(err, "activating weight set")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return settings.ErrNotFound
	}
	return nil
}

func (repo settingsRepository) QueryColumnAliases(ctx context.Context, exec ...core.DBExecutor) ([]settings.FieldAliases, error) {
	var rows []aliasRow
	if err := sqlx.SelectContext(ctx, repo.ext(exec), &rows, `SELECT field, aliases FROM column_alias`); err != nil {
		return nil, errors.Wrap(err, "querying column aliases")
	}

	byField := make(map[gradebook.Field][]string, len(rows))
	for _, row := range rows {
		byField[gradebook.Field(row.Field)] = []string(row.Aliases)
	}
	out := make([]settings.FieldAliases, 0, len(rows))
	for _, fld := range gradebook.Fields {
		if aliases, ok := byField[fld]; ok {
			out = append(out, settings.FieldAliases{Field: fld, Aliases: aliases})
		}
	}
	return out, nil
}

func (repo settingsRepository) SaveColumnAliases(ctx context.Context, fa settings.FieldAliases, exec ...core.DBExecutor) error {
	ext := repo.ext(exec)
	row := aliasRow{Field: string(fa.Field), Aliases: pq.StringArray(fa.Aliases)}
	q := `INSERT INTO column_alias (field, aliases) VALUES (:field, :aliases)
		ON CONFLICT (field) DO UPDATE SET aliases = excluded.aliases`
	if _, err := sqlx.NamedExecContext(ctx, ext, q, row); err != nil {
		return errors.Wrapf(err, "saving aliases of %s", fa.Field)
	}
	return nil
}

func (repo settingsRepository) DeleteColumnAliases(ctx context.Context, exec ...core.DBExecutor) error {
	if _, err := repo.ext(exec).ExecContext(ctx, `DELETE FROM column_alias`); err != nil {
		return errors.Wrap(err, "deleting column aliases")
	}
	return nil
}
