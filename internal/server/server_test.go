package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/statement/internal/audit/domain"
	authdomain "github.com/smallbiznis/statement/internal/auth/domain"
	"github.com/smallbiznis/statement/internal/authorization"
	"github.com/smallbiznis/statement/internal/config"
	customerdomain "github.com/smallbiznis/statement/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/statement/internal/invoice/domain"
	"github.com/smallbiznis/statement/internal/observability"
	obsmetrics "github.com/smallbiznis/statement/internal/observability/metrics"
	reportdomain "github.com/smallbiznis/statement/internal/report/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	adminToken = "admin-token"
	staffToken = "staff-token"
)

type fakeAuthService struct {
	authdomain.Service
}

func (f *fakeAuthService) Login(ctx context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	if req.Username != "admin" || req.Password != "secret123" {
		return nil, authdomain.ErrInvalidCredentials
	}
	return &authdomain.LoginResult{
		AccessToken: adminToken,
		TokenType:   "Bearer",
		ExpiresAt:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		User:        &authdomain.User{ID: "1", Username: "admin", Role: authdomain.RoleAdmin},
	}, nil
}

func (f *fakeAuthService) Authenticate(ctx context.Context, raw string) (*authdomain.Principal, error) {
	switch raw {
	case adminToken:
		return &authdomain.Principal{UserID: "1", Username: "admin", Role: authdomain.RoleAdmin}, nil
	case staffToken:
		return &authdomain.Principal{UserID: "2", Username: "clerk", Role: authdomain.RoleStaff}, nil
	default:
		return nil, authdomain.ErrInvalidToken
	}
}

type fakeCustomerService struct {
	customerdomain.Service
	deleted []string
}

func (f *fakeCustomerService) Delete(ctx context.Context, id string) error {
	if id == "busy" {
		return customerdomain.ErrHasInvoices
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeInvoiceService struct {
	invoicedomain.Service
	created []invoicedomain.CreateRequest
	listed  []invoicedomain.ListRequest
}

func (f *fakeInvoiceService) Create(ctx context.Context, req invoicedomain.CreateRequest) (*invoicedomain.Invoice, error) {
	f.created = append(f.created, req)
	return &invoicedomain.Invoice{
		ID:           "inv-1",
		SerialNumber: "TCACME00001",
		CustomerID:   req.CustomerID,
		Status:       invoicedomain.StatusDraft,
		TotalAmount:  decimal.NewFromInt(300),
	}, nil
}

func (f *fakeInvoiceService) Sign(ctx context.Context, id string, req invoicedomain.SignRequest) (*invoicedomain.Invoice, error) {
	if id == "draft" {
		return nil, invoicedomain.ErrInvoiceNotSaved
	}
	return &invoicedomain.Invoice{ID: id, Status: invoicedomain.StatusCompleted}, nil
}

func (f *fakeInvoiceService) List(ctx context.Context, req invoicedomain.ListRequest) (*invoicedomain.ListResponse, error) {
	f.listed = append(f.listed, req)
	return &invoicedomain.ListResponse{Invoices: []invoicedomain.Invoice{}}, nil
}

func (f *fakeInvoiceService) Get(ctx context.Context, id string) (*invoicedomain.Invoice, error) {
	return nil, invoicedomain.ErrNotFound
}

func (f *fakeInvoiceService) RenderPDF(ctx context.Context, id string) (*invoicedomain.Document, error) {
	return &invoicedomain.Document{
		Filename:    "TCACME00001-acme-ltd.pdf",
		ContentType: "application/pdf",
		Content:     []byte("%PDF-fake"),
	}, nil
}

type fakeReportService struct {
	reportdomain.Service
}

func (f *fakeReportService) Revenue(ctx context.Context, req reportdomain.RevenueRequest) (*reportdomain.RevenueReport, error) {
	period, err := reportdomain.ParsePeriod(req.PeriodType, req.Key)
	if err != nil {
		return nil, err
	}
	return &reportdomain.RevenueReport{Period: period, TotalRevenue: decimal.NewFromInt(1070)}, nil
}

func (f *fakeReportService) Export(ctx context.Context, req reportdomain.ExportRequest) (*reportdomain.Document, error) {
	if req.Format != string(reportdomain.FormatCSV) {
		return nil, reportdomain.ErrInvalidFormat
	}
	return &reportdomain.Document{
		Filename:    "revenue-2024-03.csv",
		ContentType: "text/csv; charset=utf-8",
		Content:     []byte("\ufeffDate,Invoices,Revenue\n"),
	}, nil
}

type auditEntry struct {
	actor      auditdomain.Actor
	action     string
	targetType string
	targetID   string
}

type fakeAuditService struct {
	entries []auditEntry
	listed  []auditdomain.ListAuditLogRequest
}

func (f *fakeAuditService) AuditLog(ctx context.Context, actor auditdomain.Actor, action string, targetType string, targetID *string, metadata map[string]any) error {
	entry := auditEntry{actor: actor, action: action, targetType: targetType}
	if targetID != nil {
		entry.targetID = *targetID
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditService) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	f.listed = append(f.listed, req)
	return auditdomain.ListAuditLogResponse{AuditLogs: []auditdomain.AuditLog{}}, nil
}

type testServer struct {
	engine    *gin.Engine
	customers *fakeCustomerService
	invoices  *fakeInvoiceService
	audits    *fakeAuditService
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)

	engine := NewEngine(observability.Config{Environment: "production"}, obsmetrics.NewHTTPMetricsWith(prometheus.NewRegistry()))
	customers := &fakeCustomerService{}
	invoices := &fakeInvoiceService{}
	audits := &fakeAuditService{}

	NewServer(ServerParams{
		Gin:         engine,
		Cfg:         config.Config{},
		Profile:     config.NewStaticProfileHolder(config.DefaultProfile()),
		Log:         zap.NewNop(),
		Authsvc:     &fakeAuthService{},
		AuthzSvc:    authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer}),
		CustomerSvc: customers,
		InvoiceSvc:  invoices,
		ReportSvc:   &fakeReportService{},
		AuditSvc:    audits,
	})

	return testServer{engine: engine, customers: customers, invoices: invoices, audits: audits}
}

func (ts testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/auth/login", "", gin.H{"username": "admin", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data authdomain.LoginResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, adminToken, resp.Data.AccessToken)

	rec = ts.do(http.MethodPost, "/auth/login", "", gin.H{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Type)
}

func TestLoginReportsMissingFields(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/auth/login", "", gin.H{"username": "admin"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "password", payload.Errors[0].Field)
}

func TestAPIRequiresBearerToken(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/invoices", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/invoices", "forged", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/invoices", staffToken, nil).Code)
}

func TestMe(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/auth/me", staffToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"clerk"`)
}

func TestCustomerDeleteNeedsAdmin(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodDelete, "/api/customers/acme", staffToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, ts.customers.deleted)

	rec = ts.do(http.MethodDelete, "/api/customers/acme", adminToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"acme"}, ts.customers.deleted)

	rec = ts.do(http.MethodDelete, "/api/customers/busy", adminToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "customer has statements", decodeError(t, rec).Message)

	require.Len(t, ts.audits.entries, 1)
	entry := ts.audits.entries[0]
	assert.Equal(t, "customer.delete", entry.action)
	assert.Equal(t, "acme", entry.targetID)
	assert.Equal(t, "1", entry.actor.UserID)
	assert.Equal(t, "admin", entry.actor.Username)
}

func TestLoginIsAudited(t *testing.T) {
	ts := newTestServer(t)

	ts.do(http.MethodPost, "/auth/login", "", gin.H{"username": "admin", "password": "nope"})
	assert.Empty(t, ts.audits.entries)

	rec := ts.do(http.MethodPost, "/auth/login", "", gin.H{"username": "admin", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ts.audits.entries, 1)
	assert.Equal(t, "auth.login", ts.audits.entries[0].action)
	assert.Equal(t, "1", ts.audits.entries[0].actor.UserID)
}

func TestListAuditLogsNeedsAdmin(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/audit-logs?action=invoice.sign", staffToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, ts.audits.listed)

	rec = ts.do(http.MethodGet, "/api/audit-logs?action=invoice.sign&start_at=2024-03-01&page_size=20", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ts.audits.listed, 1)
	req := ts.audits.listed[0]
	assert.Equal(t, "invoice.sign", req.Action)
	assert.Equal(t, int32(20), req.PageSize)
	require.NotNil(t, req.StartAt)
	assert.Equal(t, time.Date(2024, 2, 29, 16, 0, 0, 0, time.UTC), req.StartAt.UTC())

	rec = ts.do(http.MethodGet, "/api/audit-logs?start_at=yesterday", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateInvoiceReadsDateInReportTimezone(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/invoices", staffToken, gin.H{
		"customer_id":  "acme",
		"invoice_date": "2024-03-02",
		"items": []gin.H{
			{"product_id": "P1", "quantity": 2},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, ts.invoices.created, 1)

	taipei, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)
	got := ts.invoices.created[0]
	assert.True(t, got.InvoiceDate.Equal(time.Date(2024, 3, 2, 0, 0, 0, 0, taipei)))
	assert.Equal(t, int64(2), got.Items[0].Quantity)
	assert.Contains(t, rec.Body.String(), "TCACME00001")
}

func TestCreateInvoiceRejectsBadInput(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/invoices", staffToken, gin.H{"items": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "customer_id", decodeError(t, rec).Errors[0].Field)

	rec = ts.do(http.MethodPost, "/api/invoices", staffToken, gin.H{
		"customer_id":  "acme",
		"invoice_date": "March 2nd",
		"items":        []gin.H{{"description": "x", "quantity": 1, "unit_price": "5"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_invoice_date", decodeError(t, rec).Errors[0].Code)
	assert.Empty(t, ts.invoices.created)
}

func TestCreateInvoiceWithoutItemsStartsDraft(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/invoices", staffToken, gin.H{"customer_id": "acme", "note": "to be filled"})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, ts.invoices.created, 1)
	assert.Empty(t, ts.invoices.created[0].Items)
	assert.Equal(t, "to be filled", ts.invoices.created[0].Note)
}

func TestSignUnsavedInvoiceConflicts(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/invoices/draft/sign", staffToken, gin.H{"signature": "data"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPost, "/api/invoices/pending/sign", staffToken, gin.H{"signature": "data"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetMissingInvoice(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/invoices/missing", staffToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListInvoicesDateRangeIsInclusive(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/invoices?date_from=2024-03-01&date_to=2024-03-31&status=pending", staffToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ts.invoices.listed, 1)

	got := ts.invoices.listed[0]
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *got.DateFrom)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), *got.DateTo)
	assert.Equal(t, "pending", got.Status)
}

func TestInvoicePDFDownload(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/invoices/inv-1/pdf", staffToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="TCACME00001-acme-ltd.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-fake", rec.Body.String())
}

func TestRevenueReport(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/reports/revenue?period=monthly&key=2024-03", staffToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_revenue":"1070"`)

	rec = ts.do(http.MethodGet, "/api/reports/revenue?period=monthly&key=2024-13", staffToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_period", decodeError(t, rec).Errors[0].Code)

	rec = ts.do(http.MethodGet, "/api/reports/revenue?period=monthly&key=2024-03&format=csv", staffToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodGet, "/api/reports/revenue?period=monthly&key=2024-03&format=csv", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))

	rec = ts.do(http.MethodGet, "/api/reports/revenue?period=monthly&key=2024-03&format=docx", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{invoicedomain.ErrSerialExhausted, http.StatusConflict, "conflict"},
		{invoicedomain.ErrInvalidItem, http.StatusBadRequest, "validation_error"},
		{customerdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{authorization.ErrForbidden, http.StatusForbidden, "forbidden"},
		{ErrTooManyRequests, http.StatusTooManyRequests, "rate_limited"},
		{context.DeadlineExceeded, http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, payload := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.kind, payload.Type, tc.err.Error())
	}
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc "))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken("abc"))
}
