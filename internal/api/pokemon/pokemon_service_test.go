package pokemon

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-pokedex-api/internal/api"
	"github.com/FACorreiaa/go-pokedex-api/internal/types"
)

type MockAggregateRepository struct {
	mock.Mock
}

func (m *MockAggregateRepository) Create(ctx context.Context, params types.CreateCreatureParams) (int, error) {
	args := m.Called(ctx, params)
	return args.Int(0), args.Error(1)
}

func (m *MockAggregateRepository) Update(ctx context.Context, id int, params types.UpdateCreatureParams) error {
	return m.Called(ctx, id, params).Error(0)
}

func (m *MockAggregateRepository) Delete(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockAggregateRepository) AddEvolution(ctx context.Context, originID int, params types.AddEvolutionParams) (*types.Evolution, error) {
	args := m.Called(ctx, originID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Evolution), args.Error(1)
}

func (m *MockAggregateRepository) SetImageURL(ctx context.Context, id int, url *string) error {
	return m.Called(ctx, id, url).Error(0)
}

func (m *MockAggregateRepository) View(ctx context.Context, id int) (*types.CreatureView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.CreatureView), args.Error(1)
}

func (m *MockAggregateRepository) ViewByNumber(ctx context.Context, number int) (*types.CreatureView, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.CreatureView), args.Error(1)
}

func (m *MockAggregateRepository) views(args mock.Arguments) ([]types.CreatureView, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.CreatureView), args.Error(1)
}

func (m *MockAggregateRepository) List(ctx context.Context) ([]types.CreatureView, error) {
	return m.views(m.Called(ctx))
}

func (m *MockAggregateRepository) SearchByName(ctx context.Context, fragment string) ([]types.CreatureView, error) {
	return m.views(m.Called(ctx, fragment))
}

func (m *MockAggregateRepository) ListByGeneration(ctx context.Context, generation int) ([]types.CreatureView, error) {
	return m.views(m.Called(ctx, generation))
}

func (m *MockAggregateRepository) ListByType(ctx context.Context, typeName string) ([]types.CreatureView, error) {
	return m.views(m.Called(ctx, typeName))
}

func (m *MockAggregateRepository) ExistsByNumber(ctx context.Context, number int) (bool, error) {
	args := m.Called(ctx, number)
	return args.Bool(0), args.Error(1)
}

func pikachuView() *types.CreatureView {
	return &types.CreatureView{
		Creature:   types.Creature{ID: 7, Number: 25, Name: "Pikachu", Generation: 1},
		Types:      []string{"Electric"},
		Evolutions: []types.EvolutionView{},
	}
}

func TestCatalogServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the stored view", func(t *testing.T) {
		repo := new(MockAggregateRepository)
		svc := NewCatalogService(repo, slog.Default())
		params := pikachuParams()

		repo.On("Create", mock.Anything, params).Return(7, nil).Once()
		repo.On("View", mock.Anything, 7).Return(pikachuView(), nil).Once()

		view, err := svc.Create(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, "Pikachu", view.Name)
		repo.AssertExpectations(t)
	})

	t.Run("keeps the error class", func(t *testing.T) {
		repo := new(MockAggregateRepository)
		svc := NewCatalogService(repo, slog.Default())

		repo.On("Create", mock.Anything, mock.Anything).Return(0, api.ErrDuplicateNumber).Once()

		_, err := svc.Create(ctx, pikachuParams())
		assert.ErrorIs(t, err, api.ErrDuplicateNumber)
		assert.ErrorIs(t, err, api.ErrConflict)
		repo.AssertNotCalled(t, "View", mock.Anything, mock.Anything)
	})
}

func TestCatalogServiceUpdate(t *testing.T) {
	repo := new(MockAggregateRepository)
	svc := NewCatalogService(repo, slog.Default())
	name := "Pikachu"
	patch := types.UpdateCreatureParams{Name: &name}

	repo.On("Update", mock.Anything, 7, patch).Return(nil).Once()
	repo.On("View", mock.Anything, 7).Return(pikachuView(), nil).Once()
	repo.On("Update", mock.Anything, 8, patch).Return(fmt.Errorf("creature 8: %w", api.ErrNotFound)).Once()

	view, err := svc.Update(context.Background(), 7, patch)
	require.NoError(t, err)
	assert.Equal(t, 7, view.ID)

	_, err = svc.Update(context.Background(), 8, patch)
	assert.ErrorIs(t, err, api.ErrNotFound)
	repo.AssertExpectations(t)
}

func TestCatalogServiceReadValidation(t *testing.T) {
	repo := new(MockAggregateRepository)
	svc := NewCatalogService(repo, slog.Default())
	ctx := context.Background()

	_, err := svc.Search(ctx, "   ")
	assert.ErrorIs(t, err, api.ErrInvalidInput)

	for _, generation := range []int{0, 10} {
		_, err = svc.ListByGeneration(ctx, generation)
		assert.ErrorIs(t, err, api.ErrInvalidGeneration)
	}
	repo.AssertNotCalled(t, "SearchByName", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "ListByGeneration", mock.Anything, mock.Anything)

	repo.On("SearchByName", mock.Anything, "pika").Return([]types.CreatureView{*pikachuView()}, nil).Once()
	views, err := svc.Search(ctx, " pika ")
	require.NoError(t, err)
	assert.Len(t, views, 1)

	repo.On("ListByGeneration", mock.Anything, 9).Return([]types.CreatureView{}, nil).Once()
	views, err = svc.ListByGeneration(ctx, 9)
	require.NoError(t, err)
	assert.Empty(t, views)
	repo.AssertExpectations(t)
}

func TestCatalogServiceEvolutionAndDelete(t *testing.T) {
	repo := new(MockAggregateRepository)
	svc := NewCatalogService(repo, slog.Default())
	ctx := context.Background()
	params := types.AddEvolutionParams{DestinationID: 26}

	repo.On("AddEvolution", mock.Anything, 25, params).Return(&types.Evolution{ID: 1, OriginID: 25, DestinationID: 26}, nil).Once()
	repo.On("AddEvolution", mock.Anything, 26, types.AddEvolutionParams{DestinationID: 26}).Return(nil, api.ErrSelfEvolution).Once()
	repo.On("Delete", mock.Anything, 25).Return(nil).Once()

	evo, err := svc.AddEvolution(ctx, 25, params)
	require.NoError(t, err)
	assert.Equal(t, 26, evo.DestinationID)

	_, err = svc.AddEvolution(ctx, 26, types.AddEvolutionParams{DestinationID: 26})
	assert.ErrorIs(t, err, api.ErrSelfEvolution)

	require.NoError(t, svc.Delete(ctx, 25))
	repo.AssertExpectations(t)
}
