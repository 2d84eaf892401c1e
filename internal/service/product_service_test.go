package service

import (
	"context"
	"errors"
	"testing"

	"marketim/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductService_GetAll(t *testing.T) {
	ctx := context.Background()

	t.Run("clamps pagination", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo, zerolog.Nop())

		repo.On("GetAll", ctx, DefaultPageSize, 0).Return([]model.Product{}, nil).Once()
		_, err := svc.GetAll(ctx, 0, -5)
		require.NoError(t, err)

		repo.On("GetAll", ctx, MaxPageSize, 10).Return([]model.Product{}, nil).Once()
		_, err = svc.GetAll(ctx, 1000, 10)
		require.NoError(t, err)

		repo.AssertExpectations(t)
	})

	t.Run("nil result becomes empty slice", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo, zerolog.Nop())

		repo.On("GetAll", ctx, 10, 0).Return(nil, nil)
		products, err := svc.GetAll(ctx, 10, 0)
		require.NoError(t, err)
		assert.NotNil(t, products)
		assert.Empty(t, products)
	})

	t.Run("repository error is wrapped", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo, zerolog.Nop())

		repo.On("GetAll", ctx, 10, 0).Return(nil, errors.New("connection refused"))
		_, err := svc.GetAll(ctx, 10, 0)
		assert.ErrorContains(t, err, "failed to get products")
	})
}

func TestProductService_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo, zerolog.Nop())

		repo.On("GetByID", ctx, int64(1)).Return(testProduct(1, "40.00", 5), nil)
		product, err := svc.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), product.ID)
	})

	t.Run("missing product is a domain error", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo, zerolog.Nop())

		repo.On("GetByID", ctx, int64(42)).Return(nil, nil)
		_, err := svc.GetByID(ctx, 42)
		assertDomainCode(t, err, model.ErrCodeProductNotFound)
	})

	t.Run("repository error is not a domain error", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo, zerolog.Nop())

		repo.On("GetByID", ctx, int64(1)).Return(nil, errors.New("connection refused"))
		_, err := svc.GetByID(ctx, 1)
		require.Error(t, err)

		var domainErr *model.DomainError
		assert.False(t, errors.As(err, &domainErr))
	})
}
