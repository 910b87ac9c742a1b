package service

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/statement/internal/customer/domain"
	"github.com/smallbiznis/statement/internal/customer/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", regexp.MustCompile(`\W`).ReplaceAllString(t.Name(), "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Customer{}))
	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS invoices (id TEXT PRIMARY KEY, customer_id TEXT)`).Error)

	svc := New(Params{DB: db, Log: zap.NewNop(), Repo: repository.Provide()}).(*Service)
	return svc, db
}

func ptr(v string) *string { return &v }

func TestCreateAssignsIDAndEffectiveTier(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateCustomerRequest{
		Name:          "  大同五金  ",
		Email:         "buyer@example.com",
		PriceCategory: ptr("industry"),
	})
	require.NoError(t, err)
	assert.Len(t, created.ID, customerIDLength)
	assert.Regexp(t, `^[a-z0-9]+$`, created.ID)
	assert.Equal(t, "大同五金", created.Name)
	assert.Equal(t, domain.TierIndustry, created.CustomerTier)

	got, err := svc.GetByID(ctx, domain.GetCustomerRequest{ID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.TierIndustry, got.CustomerTier)
	require.NotNil(t, got.PriceCategory)
	assert.Equal(t, "industry", *got.PriceCategory)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{Name: "A", Email: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{Name: "A", CustomerTier: ptr("gold")})
	assert.ErrorIs(t, err, domain.ErrInvalidTier)
}

func TestUpdateCustomer(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, domain.TierGeneral, created.CustomerTier)

	updated, err := svc.Update(ctx, domain.UpdateCustomerRequest{
		ID:           created.ID,
		CustomerTier: ptr("kangshiting"),
		Phone:        ptr(" 02-1234 "),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TierKangshiting, updated.CustomerTier)
	assert.Equal(t, "02-1234", updated.Phone)
	assert.Equal(t, "Acme", updated.Name)

	_, err = svc.Update(ctx, domain.UpdateCustomerRequest{ID: created.ID, CustomerTier: ptr("gold")})
	assert.ErrorIs(t, err, domain.ErrInvalidTier)

	_, err = svc.Update(ctx, domain.UpdateCustomerRequest{ID: "missing", Name: ptr("x")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetByIDErrors(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetByID(context.Background(), domain.GetCustomerRequest{ID: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = svc.GetByID(context.Background(), domain.GetCustomerRequest{ID: "nope"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteRejectedWhenCustomerHasInvoices(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	withInvoice, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Busy"})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`INSERT INTO invoices (id, customer_id) VALUES (?, ?)`, "inv-1", withInvoice.ID).Error)

	err = svc.Delete(ctx, withInvoice.ID)
	assert.ErrorIs(t, err, domain.ErrHasInvoices)

	idle, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Idle"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, idle.ID))

	_, err = svc.GetByID(ctx, domain.GetCustomerRequest{ID: idle.ID})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, idle.ID), domain.ErrNotFound)
}

func TestListFiltersAndPaginates(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	for i, tier := range []domain.Tier{domain.TierGeneral, domain.TierIndustry, domain.TierIndustry, domain.TierGeneral} {
		c := domain.Customer{
			ID:           fmt.Sprintf("c%d", i),
			Name:         fmt.Sprintf("Shop %d", i),
			CustomerTier: tier,
			CreatedAt:    base.Add(time.Duration(i) * time.Hour),
			UpdatedAt:    base,
		}
		require.NoError(t, db.Create(&c).Error)
	}

	industry, err := svc.List(ctx, domain.ListCustomerRequest{Tier: "industry"})
	require.NoError(t, err)
	require.Len(t, industry.Customers, 2)
	assert.Equal(t, "c2", industry.Customers[0].ID)

	first, err := svc.List(ctx, domain.ListCustomerRequest{PageSize: 3})
	require.NoError(t, err)
	require.Len(t, first.Customers, 3)
	assert.True(t, first.HasMore)
	require.NotEmpty(t, first.NextPageToken)

	second, err := svc.List(ctx, domain.ListCustomerRequest{PageSize: 3, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Customers, 1)
	assert.Equal(t, "c0", second.Customers[0].ID)
	assert.False(t, second.HasMore)

	byName, err := svc.List(ctx, domain.ListCustomerRequest{Name: "SHOP 3"})
	require.NoError(t, err)
	require.Len(t, byName.Customers, 1)

	_, err = svc.List(ctx, domain.ListCustomerRequest{Tier: "gold"})
	assert.ErrorIs(t, err, domain.ErrInvalidTier)
}
