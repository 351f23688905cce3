package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func newProductTestFixture(t *testing.T) (*ProductRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	repo := NewProductRepository(mock)
	return repo, mock
}

func sampleProduct() *domain.Product {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Product{
		ID:          "p-1",
		Name:        "Mechanical Keyboard",
		Description: "Tenkeyless, brown switches.",
		Category:    "peripherals",
		Price:       9900,
		Quantity:    25,
		Sold:        7,
		ImageURL:    "https://example.com/kb.png",
		Shipping:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func productColumns() []string {
	return []string{
		"id", "name", "description", "category", "price",
		"quantity", "sold", "image_url", "shipping", "created_at", "updated_at",
	}
}

func productRows(products ...*domain.Product) *pgxmock.Rows {
	rows := pgxmock.NewRows(productColumns())
	for _, p := range products {
		rows.AddRow(
			p.ID, p.Name, p.Description, p.Category, p.Price,
			p.Quantity, p.Sold, p.ImageURL, p.Shipping, p.CreatedAt, p.UpdatedAt,
		)
	}
	return rows
}

func TestProductRepository_Create_Success(t *testing.T) {
	repo, mock := newProductTestFixture(t)
	defer mock.Close()

	p := sampleProduct()

	mock.ExpectExec("INSERT INTO products").
		WithArgs(
			p.ID, p.Name, p.Description, p.Category, p.Price,
			p.Quantity, p.Sold, p.ImageURL, p.Shipping, p.CreatedAt, p.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), p)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_Success(t *testing.T) {
	repo, mock := newProductTestFixture(t)
	defer mock.Close()

	p := sampleProduct()

	mock.ExpectQuery("SELECT .+ FROM products WHERE id =").
		WithArgs(p.ID).
		WillReturnRows(productRows(p))

	got, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Sold, got.Sold)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newProductTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM products WHERE id =").
		WithArgs("missing-id").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByID(context.Background(), "missing-id")
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_List_SortBySold(t *testing.T) {
	repo, mock := newProductTestFixture(t)
	defer mock.Close()

	p := sampleProduct()

	mock.ExpectQuery("SELECT .+ FROM products ORDER BY sold DESC LIMIT").
		WithArgs(8).
		WillReturnRows(productRows(p))

	got, err := repo.List(context.Background(), repository.ProductListFilter{
		SortBy: domain.ProductSortSold,
		Order:  "desc",
		Limit:  8,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_List_DefaultsToCreatedAt(t *testing.T) {
	repo, mock := newProductTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM products ORDER BY created_at DESC LIMIT").
		WithArgs(8).
		WillReturnRows(productRows())

	got, err := repo.List(context.Background(), repository.ProductListFilter{
		SortBy: domain.ProductSortCreatedAt,
		Limit:  8,
	})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_ListRelated_ExcludesSelf(t *testing.T) {
	repo, mock := newProductTestFixture(t)
	defer mock.Close()

	related := sampleProduct()
	related.ID = "p-2"

	mock.ExpectQuery("SELECT .+ FROM products WHERE category = .+ AND id !=").
		WithArgs("peripherals", "p-1", 6).
		WillReturnRows(productRows(related))

	got, err := repo.ListRelated(context.Background(), "peripherals", "p-1", 6)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p-2", got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
