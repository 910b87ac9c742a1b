package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/statement/internal/clock"
	"github.com/smallbiznis/statement/internal/config"
	customerdomain "github.com/smallbiznis/statement/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/statement/internal/invoice/domain"
	"github.com/smallbiznis/statement/internal/observability/metrics"
	pricingdomain "github.com/smallbiznis/statement/internal/pricingrule/domain"
	productdomain "github.com/smallbiznis/statement/internal/product/domain"
	"github.com/smallbiznis/statement/internal/providers/pdf"
	"github.com/smallbiznis/statement/internal/ratelimit"
	"github.com/smallbiznis/statement/pkg/db"
	"github.com/smallbiznis/statement/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxSerialAttempts bounds how often a serial is recomputed after another
// writer took the same number.
const maxSerialAttempts = 3

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      invoicedomain.Repository
	Customers customerdomain.Repository
	Products  productdomain.Repository
	Pricing   pricingdomain.Service
	PDF       pdf.Provider
	Profile   *config.ProfileHolder
	Metrics   *metrics.Metrics  `optional:"true"`
	Locker    *ratelimit.Locker `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID     *snowflake.Node
	clock     clock.Clock
	repo      invoicedomain.Repository
	customers customerdomain.Repository
	products  productdomain.Repository
	pricing   pricingdomain.Service
	pdf       pdf.Provider
	profile   *config.ProfileHolder
	metrics   *metrics.Metrics
	locker    *ratelimit.Locker
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("invoice.service"),

		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		customers: p.Customers,
		products:  p.Products,
		pricing:   p.Pricing,
		pdf:       p.PDF,
		profile:   p.Profile,
		metrics:   p.Metrics,
		locker:    p.Locker,
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateRequest) (*invoicedomain.Invoice, error) {
	customer, err := s.loadCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	invoiceDate := req.InvoiceDate
	if invoiceDate.IsZero() {
		invoiceDate = s.clock.Now()
	}

	invoiceID := s.genID.Generate().String()
	items, total, err := s.priceItems(ctx, customer.ID, invoiceID, req.Items)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	invoice := &invoicedomain.Invoice{
		ID:           invoiceID,
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		InvoiceDate:  s.calendarDate(invoiceDate),
		Items:        items,
		TotalAmount:  total,
		Status:       invoicedomain.StatusDraft,
		Note:         strings.TrimSpace(req.Note),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	unlock := s.lockSerialPrefix(ctx, invoicedomain.SerialPrefix(customer.ID, string(customer.CustomerTier)))
	defer unlock()

	for attempt := 1; ; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			serial, err := s.nextSerial(ctx, tx, customer)
			if err != nil {
				return err
			}
			invoice.SerialNumber = serial
			return s.repo.Insert(ctx, tx, invoice)
		})
		if err == nil {
			break
		}
		if !db.IsDuplicateKeyErr(err) {
			return nil, err
		}
		s.metrics.RecordSerialRetry(ctx)
		s.log.Warn("serial number taken, recomputing",
			zap.String("customer_id", customer.ID),
			zap.String("serial_number", invoice.SerialNumber),
			zap.Int("attempt", attempt),
		)
		if attempt == maxSerialAttempts {
			return nil, invoicedomain.ErrSerialConflict
		}
	}

	s.metrics.RecordSerialIssued(ctx, invoice.SerialNumber[:2])
	s.log.Info("invoice created",
		zap.String("invoice_id", invoice.ID),
		zap.String("serial_number", invoice.SerialNumber),
		zap.String("customer_id", customer.ID),
	)
	return invoice, nil
}

func (s *Service) Save(ctx context.Context, id string, req invoicedomain.SaveRequest) (*invoicedomain.Invoice, error) {
	current, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == invoicedomain.StatusCompleted {
		return nil, invoicedomain.ErrInvoiceCompleted
	}

	items, total, err := s.priceItems(ctx, current.CustomerID, current.ID, req.Items)
	if err != nil {
		return nil, err
	}

	var saved *invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByIDForUpdate(ctx, tx, current.ID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}
		if invoice.Status == invoicedomain.StatusCompleted {
			return invoicedomain.ErrInvoiceCompleted
		}

		if req.InvoiceDate != nil && !req.InvoiceDate.IsZero() {
			invoice.InvoiceDate = s.calendarDate(*req.InvoiceDate)
		}
		if req.Note != nil {
			invoice.Note = strings.TrimSpace(*req.Note)
		}
		invoice.TotalAmount = total
		invoice.Status = invoicedomain.StatusPending
		invoice.UpdatedAt = s.clock.Now()

		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			return err
		}
		if err := s.repo.ReplaceItems(ctx, tx, invoice.ID, items); err != nil {
			return err
		}
		invoice.Items = items
		saved = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *Service) Get(ctx context.Context, id string) (*invoicedomain.Invoice, error) {
	return s.find(ctx, id)
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListRequest) (*invoicedomain.ListResponse, error) {
	filter := invoicedomain.ListFilter{
		CustomerID:   strings.TrimSpace(req.CustomerID),
		SerialPrefix: strings.ToUpper(strings.TrimSpace(req.SerialPrefix)),
		DateFrom:     req.DateFrom,
		DateTo:       req.DateTo,
	}
	if status := strings.ToLower(strings.TrimSpace(req.Status)); status != "" {
		filter.Status = invoicedomain.Status(status)
		if !filter.Status.Valid() {
			return nil, invoicedomain.ErrInvalidStatus
		}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return nil, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(invoice *invoicedomain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        invoice.ID,
			CreatedAt: invoice.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}

	resp := &invoicedomain.ListResponse{Invoices: invoices}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	invoice, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if invoice.Status == invoicedomain.StatusCompleted {
		return invoicedomain.ErrInvoiceCompleted
	}
	if err := s.repo.Delete(ctx, s.db, invoice.ID); err != nil {
		return err
	}
	s.log.Info("invoice deleted", zap.String("invoice_id", invoice.ID), zap.String("serial_number", invoice.SerialNumber))
	return nil
}

// NextSerialPreview reports the serial the next Create would assign. Another
// writer may still take it first.
func (s *Service) NextSerialPreview(ctx context.Context, customerID string) (*invoicedomain.SerialPreview, error) {
	customer, err := s.loadCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	serial, err := s.nextSerial(ctx, s.db, customer)
	if err != nil {
		return nil, err
	}
	return &invoicedomain.SerialPreview{
		CustomerID:   customer.ID,
		Prefix:       invoicedomain.SerialPrefix(customer.ID, string(customer.CustomerTier)),
		SerialNumber: serial,
	}, nil
}

// nextSerial scans every serial sharing the customer's prefix, including
// those of other customers whose ids produce the same code, so the result
// never collides with an existing row.
func (s *Service) nextSerial(ctx context.Context, tx *gorm.DB, customer *customerdomain.Customer) (string, error) {
	tier := string(customer.CustomerTier)
	prefix := invoicedomain.SerialPrefix(customer.ID, tier)

	prior, err := s.repo.ListSerialsWithPrefix(ctx, tx, prefix)
	if err != nil {
		return "", err
	}

	legacyStart := ""
	if customer.StartSerialNumber != nil {
		legacyStart = *customer.StartSerialNumber
	}
	serial := invoicedomain.NextSerial(customer.ID, tier, legacyStart, prior)
	if invoicedomain.ParseSequence(serial) == 0 || len(serial) != len(prefix)+5 {
		return "", invoicedomain.ErrSerialExhausted
	}
	return serial, nil
}

// lockSerialPrefix serialises serial assignment per prefix across instances
// when redis is available. The unique index still guards when it is not.
func (s *Service) lockSerialPrefix(ctx context.Context, prefix string) func() {
	if s.locker == nil {
		return func() {}
	}
	release, ok, err := s.locker.LockSerialPrefix(ctx, prefix)
	if err != nil || !ok {
		s.log.Debug("serial lock not acquired", zap.String("prefix", prefix), zap.Error(err))
	}
	return func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("serial lock release failed", zap.String("prefix", prefix), zap.Error(err))
		}
	}
}

func (s *Service) loadCustomer(ctx context.Context, customerID string) (*customerdomain.Customer, error) {
	id := strings.TrimSpace(customerID)
	if id == "" {
		return nil, invoicedomain.ErrInvalidCustomer
	}
	customer, err := s.customers.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, invoicedomain.ErrInvalidCustomer
	}
	return customer, nil
}

func (s *Service) find(ctx context.Context, id string) (*invoicedomain.Invoice, error) {
	invoiceID := strings.TrimSpace(id)
	if invoiceID == "" {
		return nil, invoicedomain.ErrInvalidID
	}
	invoice, err := s.repo.FindByID(ctx, s.db, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrNotFound
	}
	return invoice, nil
}

// calendarDate keeps the calendar day of t as seen in the report timezone,
// stored as midnight UTC.
func (s *Service) calendarDate(t time.Time) time.Time {
	local := t.In(s.location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Service) location() *time.Location {
	if s.profile == nil {
		return time.UTC
	}
	return s.profile.Get().Report.Location()
}
