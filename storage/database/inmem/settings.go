package inmemdb

import (
	"context"
	"sort"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/gradebook"
	"github.com/Bebdyshev/usp-backend/core/settings"
)

type settingsRepository struct {
	db *DB
}

func NewSettingsRepository(db *DB) settings.Repository {
	return &settingsRepository{db: db}
}

func (repo *settingsRepository) QueryWeightSets(_ context.Context, _ ...core.DBExecutor) ([]settings.WeightSet, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	out := make([]settings.WeightSet, 0, len(repo.db.data.weightSets))
	for _, ws := range repo.db.data.weightSets {
		out = append(out, ws)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (repo *settingsRepository) GetWeightSet(_ context.Context, id int, _ ...core.DBExecutor) (settings.WeightSet, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ws, ok := repo.db.data.weightSets[id]; ok {
		return ws, nil
	}
	return settings.WeightSet{}, settings.ErrNotFound
}

func (repo *settingsRepository) GetActiveWeightSet(_ context.Context, _ ...core.DBExecutor) (settings.WeightSet, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, ws := range repo.db.data.weightSets {
		if ws.IsActive {
			return ws, nil
		}
	}
	return settings.WeightSet{}, settings.ErrNoActiveWeights
}

func (repo *settingsRepository) CreateWeightSet(_ context.Context, ws settings.WeightSet, _ ...core.DBExecutor) (settings.WeightSet, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.data.weightSets {
		if existing.Name == ws.Name {
			return settings.WeightSet{}, settings.ErrNameExists
		}
	}
	ws.ID = repo.db.nextPK()
	ws.IsActive = false
	repo.db.data.weightSets[ws.ID] = ws
	return ws, nil
}

func (repo *settingsRepository) ActivateWeightSet(_ context.Context, id int, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.data.weightSets[id]; !ok {
		return settings.ErrNotFound
	}
	for k, ws := range repo.db.data.weightSets {
		ws.IsActive = k == id
		repo.db.data.weightSets[k] = ws
	}
	return nil
}

func (repo *settingsRepository) QueryColumnAliases(_ context.Context, _ ...core.DBExecutor) ([]settings.FieldAliases, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	out := make([]settings.FieldAliases, 0, len(repo.db.data.aliases))
	for _, fld := range gradebook.Fields {
		if aliases, ok := repo.db.data.aliases[fld]; ok {
			out = append(out, settings.FieldAliases{Field: fld, Aliases: append([]string(nil), aliases...)})
		}
	}
	return out, nil
}

func (repo *settingsRepository) SaveColumnAliases(_ context.Context, fa settings.FieldAliases, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.data.aliases[fa.Field] = append([]string(nil), fa.Aliases...)
	return nil
}

func (repo *settingsRepository) DeleteColumnAliases(_ context.Context, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.data.aliases = make(map[gradebook.Field][]string)
	return nil
}
