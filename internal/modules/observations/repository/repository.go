package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Fellisss/Weather1/internal/modules/observations/query"
	"github.com/Fellisss/Weather1/internal/modules/observations/types"
)

// ErrNotFound is returned when no observation has the requested id.
var ErrNotFound = errors.New("observation not found")

type ObservationRepository interface {
	Create(ctx context.Context, o *types.Observation) error
	Get(ctx context.Context, id int64) (types.Observation, error)
	Update(ctx context.Context, o types.Observation) error
	Delete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, f query.Filter) ([]types.Observation, error)
	First(ctx context.Context, f query.Filter) (types.Observation, bool, error)
	Count(ctx context.Context) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) ObservationRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Create(ctx context.Context, o *types.Observation) error {
	row := *o
	row.ID = 0
	row.Timestamp = query.Normalize(o.Timestamp)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	o.ID = row.ID
	return nil
}

func (r *repositoryImpl) Get(ctx context.Context, id int64) (types.Observation, error) {
	var o types.Observation
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.Observation{}, ErrNotFound
	}
	if err != nil {
		return types.Observation{}, fmt.Errorf("get observation %d: %w", id, err)
	}
	return o, nil
}

// Update replaces every column except id. It reports ErrNotFound when the row
// no longer exists, including when it was deleted after the caller read it.
func (r *repositoryImpl) Update(ctx context.Context, o types.Observation) error {
	res := r.db.WithContext(ctx).
		Model(&types.Observation{}).
		Where("id = ?", o.ID).
		Updates(map[string]any{
			"city":          o.City,
			"timestamp":     query.Normalize(o.Timestamp),
			"precipitation": o.Precipitation,
			"temperature":   o.Temperature,
			"humidity":      o.Humidity,
			"wind_speed":    o.WindSpeed,
		})
	if res.Error != nil {
		return fmt.Errorf("update observation %d: %w", o.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the row and reports whether it existed.
func (r *repositoryImpl) Delete(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&types.Observation{})
	if res.Error != nil {
		return false, fmt.Errorf("delete observation %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *repositoryImpl) List(ctx context.Context, f query.Filter) ([]types.Observation, error) {
	out := []types.Observation{}
	if err := r.db.WithContext(ctx).Scopes(f.Scope).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	return out, nil
}

func (r *repositoryImpl) First(ctx context.Context, f query.Filter) (types.Observation, bool, error) {
	f.Limit = 1
	rows, err := r.List(ctx, f)
	if err != nil {
		return types.Observation{}, false, err
	}
	if len(rows) == 0 {
		return types.Observation{}, false, nil
	}
	return rows[0], true, nil
}

func (r *repositoryImpl) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&types.Observation{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count observations: %w", err)
	}
	return n, nil
}
