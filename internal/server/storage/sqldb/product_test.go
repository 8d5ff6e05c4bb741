package sqldb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/inventory/internal/models"
	"github.com/iudanet/inventory/internal/server/storage"
)

func createTestOwner(t *testing.T, ctx context.Context, s *Storage) string {
	t.Helper()
	user := newTestUser("owner_" + uuid.New().String()[:8] + "@example.com")
	require.NoError(t, s.CreateUser(ctx, user))
	return user.ID
}

func newTestProduct(owner, name string, createdAt time.Time) *models.Product {
	return &models.Product{
		ID:          uuid.New().String(),
		Name:        name,
		Description: "description of " + name,
		Price:       9.99,
		Quantity:    3,
		CreatedBy:   owner,
		CreatedAt:   createdAt,
	}
}

func TestProductStorage_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	owner := createTestOwner(t, ctx, s)
	p := newTestProduct(owner, "Laptop", time.Now())
	require.NoError(t, s.CreateProduct(ctx, p))

	got, err := s.GetProduct(ctx, owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Description, got.Description)
	assert.InDelta(t, p.Price, got.Price, 0.0001)
	assert.Equal(t, p.Quantity, got.Quantity)
	assert.Equal(t, owner, got.CreatedBy)

	// Чужой товар не виден
	other := createTestOwner(t, ctx, s)
	_, err = s.GetProduct(ctx, other, p.ID)
	assert.ErrorIs(t, err, storage.ErrProductNotFound)
}

func TestProductStorage_List(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	owner := createTestOwner(t, ctx, s)
	other := createTestOwner(t, ctx, s)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	names := []string{"Apple", "Banana", "Green apple", "Cherry", "Pineapple"}
	for i, name := range names {
		require.NoError(t, s.CreateProduct(ctx, newTestProduct(owner, name, base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, s.CreateProduct(ctx, newTestProduct(other, "Apple of other user", base)))

	tests := []struct {
		name      string
		filter    models.ProductFilter
		wantNames []string
		wantTotal int64
	}{
		{
			name:      "first page newest first",
			filter:    models.ProductFilter{Page: 1, Limit: 2},
			wantNames: []string{"Pineapple", "Cherry"},
			wantTotal: 5,
		},
		{
			name:      "last page",
			filter:    models.ProductFilter{Page: 3, Limit: 2},
			wantNames: []string{"Apple"},
			wantTotal: 5,
		},
		{
			name:      "page beyond the end",
			filter:    models.ProductFilter{Page: 10, Limit: 2},
			wantNames: []string{},
			wantTotal: 5,
		},
		{
			name:      "case-insensitive search",
			filter:    models.ProductFilter{Page: 1, Limit: 10, Search: "APPLE"},
			wantNames: []string{"Pineapple", "Green apple", "Apple"},
			wantTotal: 3,
		},
		{
			name:      "like wildcards are literal",
			filter:    models.ProductFilter{Page: 1, Limit: 10, Search: "%"},
			wantNames: []string{},
			wantTotal: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, total, err := s.ListProducts(ctx, owner, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)

			got := make([]string, 0, len(products))
			for _, p := range products {
				got = append(got, p.Name)
			}
			assert.Equal(t, tt.wantNames, got)
		})
	}
}

func TestProductStorage_Update(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	owner := createTestOwner(t, ctx, s)
	p := newTestProduct(owner, "Mouse", time.Now())
	require.NoError(t, s.CreateProduct(ctx, p))

	p.Name = "Wireless mouse"
	p.Price = 19.5
	p.Quantity = 0
	require.NoError(t, s.UpdateProduct(ctx, p))

	got, err := s.GetProduct(ctx, owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Wireless mouse", got.Name)
	assert.InDelta(t, 19.5, got.Price, 0.0001)
	assert.Equal(t, int64(0), got.Quantity)

	// Обновление чужого товара
	foreign := *p
	foreign.CreatedBy = createTestOwner(t, ctx, s)
	assert.ErrorIs(t, s.UpdateProduct(ctx, &foreign), storage.ErrProductNotFound)
}

func TestProductStorage_Delete(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	owner := createTestOwner(t, ctx, s)
	p := newTestProduct(owner, "Keyboard", time.Now())
	require.NoError(t, s.CreateProduct(ctx, p))

	other := createTestOwner(t, ctx, s)
	assert.ErrorIs(t, s.DeleteProduct(ctx, other, p.ID), storage.ErrProductNotFound)

	require.NoError(t, s.DeleteProduct(ctx, owner, p.ID))
	assert.ErrorIs(t, s.DeleteProduct(ctx, owner, p.ID), storage.ErrProductNotFound)

	_, err := s.GetProduct(ctx, owner, p.ID)
	assert.ErrorIs(t, err, storage.ErrProductNotFound)
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"50%", `50\%`},
		{"a_b", `a\_b`},
		{`c:\dir`, `c:\\dir`},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, escapeLike(tt.in))
		})
	}
}
