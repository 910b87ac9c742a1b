package service

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/statement/internal/product/domain"
	"github.com/smallbiznis/statement/internal/product/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", regexp.MustCompile(`\W`).ReplaceAllString(t.Name(), "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Product{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{DB: db, Log: zap.NewNop(), GenID: node, Repo: repository.Provide()})
}

func TestCreateAndGetProduct(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRequest{
		Name:           " 不鏽鋼螺絲 ",
		Unit:           "盒",
		ListPrice:      decimal.RequireFromString("125.50"),
		Specifications: []string{"M3", " M4 ", "", "M3"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "不鏽鋼螺絲", created.Name)
	assert.True(t, created.Active)
	assert.Equal(t, []string{"M3", "M4"}, created.Specifications)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("125.5").Equal(got.ListPrice))
	assert.Equal(t, []string{"M3", "M4"}, got.Specifications)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateRequest{Name: ""})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(context.Background(), domain.CreateRequest{Name: "x", ListPrice: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidListPrice)
}

func TestUpdateArchiveAndList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	bolt, err := svc.Create(ctx, domain.CreateRequest{Name: "Bolt", ListPrice: decimal.NewFromInt(10)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{Name: "Nut", ListPrice: decimal.NewFromInt(3)})
	require.NoError(t, err)

	price := decimal.NewFromInt(12)
	updated, err := svc.Update(ctx, domain.UpdateRequest{ID: bolt.ID, ListPrice: &price})
	require.NoError(t, err)
	assert.True(t, price.Equal(updated.ListPrice))

	archived, err := svc.Archive(ctx, bolt.ID)
	require.NoError(t, err)
	assert.False(t, archived.Active)

	active := true
	items, err := svc.List(ctx, domain.ListRequest{Active: &active})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Nut", items[0].Name)

	all, err := svc.List(ctx, domain.ListRequest{SortBy: "name", OrderBy: "asc"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Bolt", all[0].Name)

	_, err = svc.Archive(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Get(ctx, "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
