package settings

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSettingRepository is a mock implementation of SettingRepository.
type MockSettingRepository struct {
	mock.Mock
}

func (m *MockSettingRepository) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockSettingRepository) Upsert(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func TestProvider_ReadThroughCache(t *testing.T) {
	ctx := context.Background()
	repo := new(MockSettingRepository)
	provider := NewProvider(repo, zerolog.Nop())

	// The repository is hit exactly once for repeated reads of the same key.
	repo.On("Get", ctx, KeyMinOrderAmount).Return("50.00", true, nil).Once()

	for i := 0; i < 3; i++ {
		value, err := provider.GetDecimal(ctx, KeyMinOrderAmount, decimal.Zero)
		require.NoError(t, err)
		assert.Equal(t, "50", value.String())
	}

	repo.AssertExpectations(t)
}

func TestProvider_MissingKeyReturnsDefault(t *testing.T) {
	ctx := context.Background()
	repo := new(MockSettingRepository)
	provider := NewProvider(repo, zerolog.Nop())

	// Missing keys are not negatively cached, so each read goes to the
	// repository until a value appears.
	repo.On("Get", ctx, KeyDeliveryFeeFixed).Return("", false, nil).Twice()

	def := decimal.RequireFromString("10")
	for i := 0; i < 2; i++ {
		value, err := provider.GetDecimal(ctx, KeyDeliveryFeeFixed, def)
		require.NoError(t, err)
		assert.Equal(t, "10", value.String())
	}

	repo.AssertExpectations(t)
}

func TestProvider_UnparsableDecimalReturnsDefault(t *testing.T) {
	ctx := context.Background()
	repo := new(MockSettingRepository)
	provider := NewProvider(repo, zerolog.Nop())

	repo.On("Get", ctx, KeyMinOrderAmount).Return("not-a-number", true, nil).Once()

	value, err := provider.GetDecimal(ctx, KeyMinOrderAmount, decimal.RequireFromString("25"))
	require.NoError(t, err)
	assert.Equal(t, "25", value.String())
}

func TestProvider_WriteInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	repo := new(MockSettingRepository)
	provider := NewProvider(repo, zerolog.Nop())

	repo.On("Get", ctx, KeyOrderAcceptingEnabled).Return("true", true, nil).Once()
	value, err := provider.GetBool(ctx, KeyOrderAcceptingEnabled, false)
	require.NoError(t, err)
	assert.True(t, value)

	// The write drops the cache, so the next read hits the repository and
	// sees the new value.
	repo.On("Upsert", ctx, KeyOrderAcceptingEnabled, "false").Return(nil).Once()
	require.NoError(t, provider.SetBool(ctx, KeyOrderAcceptingEnabled, false))

	repo.On("Get", ctx, KeyOrderAcceptingEnabled).Return("false", true, nil).Once()
	value, err = provider.GetBool(ctx, KeyOrderAcceptingEnabled, true)
	require.NoError(t, err)
	assert.False(t, value)

	repo.AssertExpectations(t)
}

func TestProvider_SetDecimalRejectsNegative(t *testing.T) {
	repo := new(MockSettingRepository)
	provider := NewProvider(repo, zerolog.Nop())

	err := provider.SetDecimal(context.Background(), KeyMinOrderAmount, decimal.RequireFromString("-1"))
	assert.Error(t, err)
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
}

func TestProvider_GetBoolLiterals(t *testing.T) {
	ctx := context.Background()
	repo := new(MockSettingRepository)
	provider := NewProvider(repo, zerolog.Nop())

	repo.On("Get", ctx, KeyWorkingHoursEnabled).Return("TRUE", true, nil).Once()
	value, err := provider.GetBool(ctx, KeyWorkingHoursEnabled, false)
	require.NoError(t, err)
	assert.True(t, value)

	repo.On("Get", ctx, KeyPaymentOnDeliveryEnabled).Return("yes", true, nil).Once()
	value, err = provider.GetBool(ctx, KeyPaymentOnDeliveryEnabled, true)
	require.NoError(t, err)
	assert.False(t, value, "only the literal true counts")
}
