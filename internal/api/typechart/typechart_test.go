package typechart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-pokedex-api/config"
	"github.com/FACorreiaa/go-pokedex-api/internal/api"
	"github.com/FACorreiaa/go-pokedex-api/internal/types"
)

var typeColumns = []string{"id", "name", "icon", "color"}

func TestPostgresRepository(t *testing.T) {
	ctx := context.Background()
	color := "#EE8130"

	t.Run("all in id order", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT id, name, icon, color FROM types ORDER BY id`).
			WillReturnRows(pgxmock.NewRows(typeColumns).AddRow(1, "Normal", nil, nil).AddRow(2, "Fire", nil, &color))

		list, err := NewPostgresRepository(mock, slog.Default()).All(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Fire", list[1].Name)
		assert.Equal(t, color, *list[1].Color)
		assert.Nil(t, list[0].Icon)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("by name ignores case", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`WHERE lower\(name\) = lower\(\$1\)`).WithArgs("fire").
			WillReturnRows(pgxmock.NewRows(typeColumns).AddRow(2, "Fire", nil, &color))
		mock.ExpectQuery(`WHERE id = \$1`).WithArgs(99).
			WillReturnRows(pgxmock.NewRows(typeColumns))
		mock.ExpectQuery(`WHERE id = \$1`).WithArgs(3).
			WillReturnError(errors.New("connection refused"))

		repo := NewPostgresRepository(mock, slog.Default())
		fire, err := repo.GetByName(ctx, "fire")
		require.NoError(t, err)
		assert.Equal(t, 2, fire.ID)

		_, err = repo.GetByID(ctx, 99)
		assert.ErrorIs(t, err, api.ErrNotFound)

		_, err = repo.GetByID(ctx, 3)
		assert.ErrorIs(t, err, api.ErrStorage)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) All(ctx context.Context) ([]types.CreatureType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.CreatureType), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id int) (*types.CreatureType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.CreatureType), args.Error(1)
}

func (m *MockRepository) GetByName(ctx context.Context, name string) (*types.CreatureType, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.CreatureType), args.Error(1)
}

func testCacheConfig() config.CacheConfig {
	return config.CacheConfig{TTL: time.Minute, Cleanup: 2 * time.Minute}
}

func TestServiceCachesReads(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(repo, testCacheConfig(), slog.Default())

	repo.On("All", mock.Anything).Return([]types.CreatureType{{ID: 1, Name: "Normal"}}, nil).Once()
	repo.On("GetByName", mock.Anything, "Fire").Return(&types.CreatureType{ID: 2, Name: "Fire"}, nil).Once()
	repo.On("GetByID", mock.Anything, 2).Return(&types.CreatureType{ID: 2, Name: "Fire"}, nil).Once()

	for i := 0; i < 3; i++ {
		list, err := svc.All(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		fire, err := svc.GetByName(ctx, "Fire")
		require.NoError(t, err)
		assert.Equal(t, 2, fire.ID)

		byID, err := svc.GetByID(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "Fire", byID.Name)
	}

	// "fire" shares the cache entry of "Fire"
	_, err := svc.GetByName(ctx, "fire")
	require.NoError(t, err)

	repo.AssertExpectations(t)
	repo.AssertNumberOfCalls(t, "All", 1)
	repo.AssertNumberOfCalls(t, "GetByName", 1)
}

func TestServiceDoesNotCacheFailures(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(repo, testCacheConfig(), slog.Default())

	repo.On("GetByID", mock.Anything, 42).Return(nil, fmt.Errorf("type 42: %w", api.ErrNotFound)).Twice()

	for i := 0; i < 2; i++ {
		_, err := svc.GetByID(ctx, 42)
		assert.ErrorIs(t, err, api.ErrNotFound)
	}
	repo.AssertExpectations(t)
}

func TestTypeHandler(t *testing.T) {
	repo := new(MockRepository)
	h := NewTypeHandler(NewService(repo, testCacheConfig(), slog.Default()), slog.Default())

	r := chi.NewRouter()
	r.Get("/types", h.ListTypes)
	r.Get("/types/{id}", h.GetType)
	r.Get("/types/name/{name}", h.GetTypeByName)

	repo.On("All", mock.Anything).Return([]types.CreatureType{{ID: 1, Name: "Normal"}}, nil)
	repo.On("GetByID", mock.Anything, 7).Return(nil, api.ErrNotFound)
	repo.On("GetByName", mock.Anything, "Water").Return(&types.CreatureType{ID: 3, Name: "Water"}, nil)

	tests := []struct {
		target string
		want   int
	}{
		{"/types", http.StatusOK},
		{"/types/7", http.StatusNotFound},
		{"/types/seven", http.StatusBadRequest},
		{"/types/name/Water", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}
