package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/statement/internal/clock"
	"github.com/smallbiznis/statement/internal/config"
	customerdomain "github.com/smallbiznis/statement/internal/customer/domain"
	customerrepo "github.com/smallbiznis/statement/internal/customer/repository"
	"github.com/smallbiznis/statement/internal/invoice/domain"
	"github.com/smallbiznis/statement/internal/invoice/repository"
	pricingdomain "github.com/smallbiznis/statement/internal/pricingrule/domain"
	pricingrepo "github.com/smallbiznis/statement/internal/pricingrule/repository"
	pricingsvc "github.com/smallbiznis/statement/internal/pricingrule/service"
	productdomain "github.com/smallbiznis/statement/internal/product/domain"
	productrepo "github.com/smallbiznis/statement/internal/product/repository"
	"github.com/smallbiznis/statement/internal/providers/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingPDF struct {
	statements []pdf.StatementData
}

func (r *recordingPDF) GenerateStatement(ctx context.Context, data pdf.StatementData) (io.Reader, error) {
	r.statements = append(r.statements, data)
	return strings.NewReader("%PDF-fake"), nil
}

func (r *recordingPDF) GenerateReport(ctx context.Context, data pdf.ReportData) (io.Reader, error) {
	return strings.NewReader("%PDF-fake"), nil
}

type fixture struct {
	svc     domain.Service
	pricing pricingdomain.Service
	db      *gorm.DB
	clock   *clock.FakeClock
	pdf     *recordingPDF
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	return newFixtureWithRepo(t, repository.Provide())
}

func newFixtureWithRepo(t *testing.T, repo domain.Repository) fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", regexp.MustCompile(`\W`).ReplaceAllString(t.Name(), "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&customerdomain.Customer{},
		&productdomain.Product{},
		&pricingdomain.PricingRule{},
		&pricingdomain.PricingTier{},
		&domain.Invoice{},
		&domain.InvoiceItem{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	now := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&productdomain.Product{ID: "P1", Name: "Bolt", ListPrice: decimal.NewFromInt(150), Active: true, CreatedAt: now, UpdatedAt: now}).Error)
	require.NoError(t, db.Create(&productdomain.Product{ID: "P2", Name: "Nut", ListPrice: decimal.NewFromInt(10), Active: true, CreatedAt: now, UpdatedAt: now}).Error)
	require.NoError(t, db.Create(&customerdomain.Customer{ID: "acme-1", Name: "Acme Ltd", ContactPerson: "Lin", CustomerTier: customerdomain.TierIndustry, CreatedAt: now, UpdatedAt: now}).Error)
	require.NoError(t, db.Create(&customerdomain.Customer{ID: "acme-2", Name: "Acme Retail", CustomerTier: customerdomain.TierIndustry, CreatedAt: now, UpdatedAt: now}).Error)
	require.NoError(t, db.Create(&customerdomain.Customer{ID: "c1", Name: "Corner Shop", CustomerTier: customerdomain.TierGeneral, CreatedAt: now, UpdatedAt: now}).Error)

	pricing := pricingsvc.New(pricingsvc.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Repo:      pricingrepo.Provide(),
		Customers: customerrepo.Provide(),
		Products:  productrepo.Provide(),
	})

	fakeClock := clock.NewFakeClock(now)
	renderer := &recordingPDF{}
	svc := NewService(ServiceParam{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fakeClock,
		Repo:      repo,
		Customers: customerrepo.Provide(),
		Products:  productrepo.Provide(),
		Pricing:   pricing,
		PDF:       renderer,
		Profile:   config.NewStaticProfileHolder(config.DefaultProfile()),
	})

	return fixture{svc: svc, pricing: pricing, db: db, clock: fakeClock, pdf: renderer}
}

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func strPtr(v string) *string { return &v }

func signaturePNG(t *testing.T) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 40, 10))
	img.Set(5, 5, color.Black)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestCreateAssignsSequentialSerials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, domain.CreateRequest{CustomerID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "CPC10000001", first.SerialNumber)
	assert.Equal(t, domain.StatusDraft, first.Status)

	second, err := f.svc.Create(ctx, domain.CreateRequest{CustomerID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "CPC10000002", second.SerialNumber)

	industry, err := f.svc.Create(ctx, domain.CreateRequest{CustomerID: "acme-1"})
	require.NoError(t, err)
	assert.Equal(t, "TCACME00001", industry.SerialNumber)
}

func TestCreateSharesSequenceAcrossCollidingCustomerCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, domain.CreateRequest{CustomerID: "acme-1"})
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, domain.CreateRequest{CustomerID: "acme-2"})
	require.NoError(t, err)

	assert.Equal(t, "TCACME00001", first.SerialNumber)
	assert.Equal(t, "TCACME00002", second.SerialNumber)
}

func TestCreateSkipsGapsAndMalformedSerials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := f.clock.Now()

	for i, serial := range []string{"CPC10000007", "CPC100000X9"} {
		require.NoError(t, f.db.Create(&domain.Invoice{
			ID: fmt.Sprintf("legacy-%d", i), SerialNumber: serial, CustomerID: "c1", CustomerName: "Corner Shop",
			InvoiceDate: now, Status: domain.StatusPending, CreatedAt: now, UpdatedAt: now,
		}).Error)
	}

	invoice, err := f.svc.Create(ctx, domain.CreateRequest{CustomerID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "CPC10000008", invoice.SerialNumber)
}

func TestCreateFailsWhenSequenceExhausted(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()
	require.NoError(t, f.db.Create(&domain.Invoice{
		ID: "last", SerialNumber: "CPC10099999", CustomerID: "c1", CustomerName: "Corner Shop",
		InvoiceDate: now, Status: domain.StatusPending, CreatedAt: now, UpdatedAt: now,
	}).Error)

	_, err := f.svc.Create(context.Background(), domain.CreateRequest{CustomerID: "c1"})
	assert.ErrorIs(t, err, domain.ErrSerialExhausted)
}

// laggingRepo serves a stale serial snapshot for the first staleReads scans,
// the way a concurrent writer's row is invisible to a racing transaction.
type laggingRepo struct {
	domain.Repository
	staleReads int
	scans      int
	inserts    int
}

func (r *laggingRepo) ListSerialsWithPrefix(ctx context.Context, db *gorm.DB, prefix string) ([]string, error) {
	r.scans++
	if r.scans <= r.staleReads {
		return nil, nil
	}
	return r.Repository.ListSerialsWithPrefix(ctx, db, prefix)
}

func (r *laggingRepo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	r.inserts++
	return r.Repository.Insert(ctx, db, invoice)
}

func seedTakenSerial(t *testing.T, f fixture, serial string) {
	t.Helper()
	now := f.clock.Now()
	require.NoError(t, f.db.Create(&domain.Invoice{
		ID: "taken", SerialNumber: serial, CustomerID: "c1", CustomerName: "Corner Shop",
		InvoiceDate: now, Status: domain.StatusPending, CreatedAt: now, UpdatedAt: now,
	}).Error)
}

func TestCreateRecomputesSerialAfterDuplicateKey(t *testing.T) {
	repo := &laggingRepo{Repository: repository.Provide(), staleReads: 1}
	f := newFixtureWithRepo(t, repo)
	seedTakenSerial(t, f, "CPC10000001")

	invoice, err := f.svc.Create(context.Background(), domain.CreateRequest{CustomerID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "CPC10000002", invoice.SerialNumber)
	assert.Equal(t, 2, repo.inserts)

	var count int64
	require.NoError(t, f.db.Model(&domain.Invoice{}).Where("customer_id = ?", "c1").Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestCreateGivesUpAfterRepeatedSerialConflicts(t *testing.T) {
	repo := &laggingRepo{Repository: repository.Provide(), staleReads: 100}
	f := newFixtureWithRepo(t, repo)
	seedTakenSerial(t, f, "CPC10000001")

	_, err := f.svc.Create(context.Background(), domain.CreateRequest{CustomerID: "c1"})
	assert.ErrorIs(t, err, domain.ErrSerialConflict)
	assert.Equal(t, maxSerialAttempts, repo.inserts)

	var count int64
	require.NoError(t, f.db.Model(&domain.Invoice{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateRejectsUnknownCustomer(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), domain.CreateRequest{CustomerID: "nobody"})
	assert.ErrorIs(t, err, domain.ErrInvalidCustomer)

	_, err = f.svc.Create(context.Background(), domain.CreateRequest{CustomerID: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidCustomer)
}

func TestCreateDefaultsInvoiceDateToLocalToday(t *testing.T) {
	f := newFixture(t)

	invoice, err := f.svc.Create(context.Background(), domain.CreateRequest{CustomerID: "c1"})
	require.NoError(t, err)
	// 20:00 UTC is already the next day in Asia/Taipei.
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), invoice.InvoiceDate)
}

func TestCreatePricesItemsThroughRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.pricing.Create(ctx, pricingdomain.RuleRequest{
		Name:          "industry",
		ProductID:     "P1",
		PriceCategory: strPtr("industry"),
		BasePrice:     decimal.NewFromInt(120),
		Tiers: []pricingdomain.TierInput{
			{MinQuantity: 1, MaxQuantity: int64PtrOf(9), Price: decimal.NewFromInt(120)},
			{MinQuantity: 10, Price: decimal.NewFromInt(100)},
		},
	})
	require.NoError(t, err)

	invoice, err := f.svc.Create(ctx, domain.CreateRequest{
		CustomerID: "acme-1",
		Items: []domain.ItemInput{
			{ProductID: "P1", Quantity: 12},
			{ProductID: "P2", Quantity: 3},
			{Description: "Delivery", Quantity: 1, UnitPrice: decPtr(200)},
		},
	})
	require.NoError(t, err)
	require.Len(t, invoice.Items, 3)

	assert.Equal(t, "Bolt", invoice.Items[0].Description)
	assert.True(t, decimal.NewFromInt(100).Equal(invoice.Items[0].UnitPrice))
	assert.True(t, decimal.NewFromInt(1200).Equal(invoice.Items[0].Amount))
	assert.Equal(t, pricingdomain.SourceRule, invoice.Items[0].PriceSource)
	require.NotNil(t, invoice.Items[0].RuleID)

	assert.Equal(t, pricingdomain.SourceCatalog, invoice.Items[1].PriceSource)
	assert.True(t, decimal.NewFromInt(30).Equal(invoice.Items[1].Amount))

	assert.Equal(t, PriceSourceManual, invoice.Items[2].PriceSource)
	assert.Nil(t, invoice.Items[2].ProductID)

	assert.True(t, decimal.NewFromInt(1430).Equal(invoice.TotalAmount))
}

func int64PtrOf(v int64) *int64 { return &v }

func TestCreateRejectsInvalidItems(t *testing.T) {
	cases := []struct {
		name string
		item domain.ItemInput
		err  error
	}{
		{"zero quantity", domain.ItemInput{ProductID: "P1", Quantity: 0}, domain.ErrInvalidQuantity},
		{"negative price", domain.ItemInput{Description: "x", Quantity: 1, UnitPrice: decPtr(-1)}, domain.ErrInvalidUnitPrice},
		{"no product no price", domain.ItemInput{Description: "x", Quantity: 1}, domain.ErrInvalidItem},
		{"unknown product", domain.ItemInput{ProductID: "missing", Description: "x", Quantity: 1}, domain.ErrInvalidItem},
		{"no description", domain.ItemInput{Quantity: 1, UnitPrice: decPtr(5)}, domain.ErrInvalidItem},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Create(context.Background(), domain.CreateRequest{CustomerID: "c1", Items: []domain.ItemInput{tc.item}})
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestSaveMovesDraftToPendingAndReplacesItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, domain.CreateRequest{
		CustomerID: "c1",
		Items:      []domain.ItemInput{{ProductID: "P1", Quantity: 1}},
	})
	require.NoError(t, err)

	date := time.Date(2024, 4, 15, 9, 0, 0, 0, time.UTC)
	saved, err := f.svc.Save(ctx, created.ID, domain.SaveRequest{
		InvoiceDate: &date,
		Note:        strPtr("  monthly  "),
		Items:       []domain.ItemInput{{ProductID: "P2", Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, saved.Status)
	assert.Equal(t, "monthly", saved.Note)
	assert.Equal(t, time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC), saved.InvoiceDate)
	assert.Equal(t, created.SerialNumber, saved.SerialNumber)

	reloaded, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 1)
	assert.Equal(t, "Nut", reloaded.Items[0].Description)
	assert.True(t, decimal.NewFromInt(40).Equal(reloaded.TotalAmount))
}

func TestSignLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sig := signaturePNG(t)

	created, err := f.svc.Create(ctx, domain.CreateRequest{CustomerID: "c1"})
	require.NoError(t, err)

	_, err = f.svc.Sign(ctx, created.ID, domain.SignRequest{Signature: sig})
	assert.ErrorIs(t, err, domain.ErrInvoiceNotSaved)

	_, err = f.svc.Save(ctx, created.ID, domain.SaveRequest{})
	require.NoError(t, err)

	signed, err := f.svc.Sign(ctx, created.ID, domain.SignRequest{Signature: sig})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, signed.Status)
	require.NotNil(t, signed.SignedAt)
	firstSignedAt := *signed.SignedAt

	f.clock.Advance(time.Hour)
	resigned, err := f.svc.Sign(ctx, created.ID, domain.SignRequest{Signature: sig})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, resigned.Status)
	assert.True(t, firstSignedAt.Equal(*resigned.SignedAt))

	_, err = f.svc.Save(ctx, created.ID, domain.SaveRequest{})
	assert.ErrorIs(t, err, domain.ErrInvoiceCompleted)
	assert.ErrorIs(t, f.svc.Delete(ctx, created.ID), domain.ErrInvoiceCompleted)
}

func TestSignRejectsBadSignature(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Sign(context.Background(), "any", domain.SignRequest{Signature: "not-an-image"})
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestBatchSignReportsPerInvoiceOutcome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft, err := f.svc.Create(ctx, domain.CreateRequest{CustomerID: "c1"})
	require.NoError(t, err)
	pending, err := f.svc.Create(ctx, domain.CreateRequest{CustomerID: "c1"})
	require.NoError(t, err)
	_, err = f.svc.Save(ctx, pending.ID, domain.SaveRequest{})
	require.NoError(t, err)

	result, err := f.svc.BatchSign(ctx, domain.BatchSignRequest{
		IDs:       []string{pending.ID, draft.ID, pending.ID, "missing"},
		Signature: signaturePNG(t),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.BatchID)
	assert.Equal(t, []string{pending.ID}, result.Signed)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, draft.ID, result.Failed[0].ID)
	assert.Equal(t, domain.ErrInvoiceNotSaved.Error(), result.Failed[0].Error)
	assert.Equal(t, domain.ErrNotFound.Error(), result.Failed[1].Error)

	reloaded, err := f.svc.Get(ctx, pending.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.SignatureBatchID)
	assert.Equal(t, result.BatchID, *reloaded.SignatureBatchID)

	_, err = f.svc.BatchSign(ctx, domain.BatchSignRequest{IDs: []string{" "}, Signature: signaturePNG(t)})
	assert.ErrorIs(t, err, domain.ErrEmptyBatch)
}

func TestListFiltersAndPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(ctx, domain.CreateRequest{CustomerID: "c1"})
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}
	_, err := f.svc.Create(ctx, domain.CreateRequest{CustomerID: "acme-1"})
	require.NoError(t, err)

	page, err := f.svc.List(ctx, domain.ListRequest{CustomerID: "c1", PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Invoices, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "CPC10000003", page.Invoices[0].SerialNumber)

	next, err := f.svc.List(ctx, domain.ListRequest{CustomerID: "c1", PageSize: 2, PageToken: page.NextPageToken})
	require.NoError(t, err)
	require.Len(t, next.Invoices, 1)
	assert.False(t, next.HasMore)

	byPrefix, err := f.svc.List(ctx, domain.ListRequest{SerialPrefix: "tc"})
	require.NoError(t, err)
	require.Len(t, byPrefix.Invoices, 1)

	_, err = f.svc.List(ctx, domain.ListRequest{Status: "archived"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestDeleteRemovesDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, domain.CreateRequest{CustomerID: "c1", Items: []domain.ItemInput{{ProductID: "P1", Quantity: 1}}})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, created.ID))

	_, err = f.svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var items int64
	require.NoError(t, f.db.Model(&domain.InvoiceItem{}).Where("invoice_id = ?", created.ID).Count(&items).Error)
	assert.Zero(t, items)
}

func TestNextSerialPreviewDoesNotConsume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	preview, err := f.svc.NextSerialPreview(ctx, "acme-1")
	require.NoError(t, err)
	assert.Equal(t, "TCACME", preview.Prefix)
	assert.Equal(t, "TCACME00001", preview.SerialNumber)

	again, err := f.svc.NextSerialPreview(ctx, "acme-1")
	require.NoError(t, err)
	assert.Equal(t, preview.SerialNumber, again.SerialNumber)
}

func TestRenderPDFBuildsStatementData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, domain.CreateRequest{
		CustomerID: "acme-1",
		Items:      []domain.ItemInput{{ProductID: "P1", Quantity: 2}},
	})
	require.NoError(t, err)
	_, err = f.svc.Save(ctx, created.ID, domain.SaveRequest{Items: []domain.ItemInput{{ProductID: "P1", Quantity: 2}}})
	require.NoError(t, err)
	_, err = f.svc.Sign(ctx, created.ID, domain.SignRequest{Signature: signaturePNG(t)})
	require.NoError(t, err)

	doc, err := f.svc.RenderPDF(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "TCACME00001-acme-ltd.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, bytes.HasPrefix(doc.Content, []byte("%PDF")))

	require.Len(t, f.pdf.statements, 1)
	data := f.pdf.statements[0]
	assert.Equal(t, "Lin", data.CustomerContact)
	assert.Equal(t, "NT$ 300.00", data.Total)
	require.Len(t, data.Items, 1)
	assert.Equal(t, "NT$ 150.00", data.Items[0].UnitPrice)
	assert.NotEmpty(t, data.Signature)
	assert.Equal(t, "2024-03-02 04:00", data.SignedAt)
}
