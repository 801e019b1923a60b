/*
File: internal/platform/persistence/adapters_test.go
Description: Unit test for the persistence adapters.
*/
package persistence_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/EngDotorDaSilva/doafacil-sub000/internal/platform/persistence"
	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/realtime"
)

// --- Mocks ---

type mockStringFetcher[V any] struct {
	mock.Mock
}

func (m *mockStringFetcher[V]) Fetch(ctx context.Context, key string) (V, error) {
	args := m.Called(ctx, key)
	var result V
	if val, ok := args.Get(0).(V); ok {
		result = val
	}
	return result, args.Error(1)
}

func (m *mockStringFetcher[V]) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Tests ---

func TestDeviceTokenAdapter(t *testing.T) {
	ctx := context.Background()
	testTokens := []realtime.DeviceToken{{Token: "test-token", Platform: "android"}}
	testDoc := persistence.DeviceTokenDoc{Tokens: testTokens}
	testErr := errors.New("not found")

	t.Run("Success", func(t *testing.T) {
		// Arrange
		docFetcher := new(mockStringFetcher[persistence.DeviceTokenDoc])
		adapter := &persistence.DeviceTokenAdapter{DocFetcher: docFetcher}
		docFetcher.On("Fetch", ctx, "donor-1").Return(testDoc, nil)

		// Act
		tokens, err := adapter.Fetch(ctx, "donor-1")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, testTokens, tokens)
		docFetcher.AssertExpectations(t)
	})

	t.Run("Failure", func(t *testing.T) {
		// Arrange
		docFetcher := new(mockStringFetcher[persistence.DeviceTokenDoc])
		adapter := &persistence.DeviceTokenAdapter{DocFetcher: docFetcher}
		docFetcher.On("Fetch", ctx, "donor-1").Return(persistence.DeviceTokenDoc{}, testErr)

		// Act
		tokens, err := adapter.Fetch(ctx, "donor-1")

		// Assert
		require.Error(t, err)
		assert.Equal(t, testErr, err)
		assert.Nil(t, tokens)
		docFetcher.AssertExpectations(t)
	})

	t.Run("Close delegates to the doc fetcher", func(t *testing.T) {
		docFetcher := new(mockStringFetcher[persistence.DeviceTokenDoc])
		adapter := &persistence.DeviceTokenAdapter{DocFetcher: docFetcher}
		docFetcher.On("Close").Return(nil)

		require.NoError(t, adapter.Close())
		docFetcher.AssertExpectations(t)
	})
}
