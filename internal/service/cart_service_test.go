package service_test

import (
	"context"
	"testing"

	"storefront/internal/service"
	"storefront/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddItemIncrementsExistingLine(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemStore()
	svc := service.NewCartService(mem, mem)

	productID := seedProduct(t, mem, "Widget", 1000, 10)

	require.NoError(t, svc.AddItem(ctx, 1, productID, 2))
	require.NoError(t, svc.AddItem(ctx, 1, productID, 3))

	lines, err := svc.Lines(ctx, 1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
}

func TestAddItemValidation(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemStore()
	svc := service.NewCartService(mem, mem)

	productID := seedProduct(t, mem, "Widget", 1000, 10)

	var validationErr *service.ValidationError
	assert.ErrorAs(t, svc.AddItem(ctx, 1, productID, 0), &validationErr)

	// unknown products cannot be added
	assert.Error(t, svc.AddItem(ctx, 1, 9999, 1))
}

func TestUpdateAndRemoveItem(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemStore()
	svc := service.NewCartService(mem, mem)

	productID := seedProduct(t, mem, "Widget", 1000, 10)
	require.NoError(t, svc.AddItem(ctx, 1, productID, 2))

	require.NoError(t, svc.UpdateItemQuantity(ctx, 1, productID, 7))
	lines, err := svc.Lines(ctx, 1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 7, lines[0].Quantity)

	require.NoError(t, svc.RemoveItem(ctx, 1, productID))
	lines, err = svc.Lines(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestCartsAreIsolatedPerUser(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemStore()
	svc := service.NewCartService(mem, mem)

	productID := seedProduct(t, mem, "Widget", 1000, 10)
	require.NoError(t, svc.AddItem(ctx, 1, productID, 2))
	require.NoError(t, svc.AddItem(ctx, 2, productID, 4))

	lines1, err := svc.Lines(ctx, 1)
	require.NoError(t, err)
	lines2, err := svc.Lines(ctx, 2)
	require.NoError(t, err)

	require.Len(t, lines1, 1)
	require.Len(t, lines2, 1)
	assert.Equal(t, 2, lines1[0].Quantity)
	assert.Equal(t, 4, lines2[0].Quantity)
}
