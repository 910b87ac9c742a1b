package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/statement/internal/customer/domain"
	"github.com/smallbiznis/statement/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const customerIDLength = 20

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("customer.service"),
		repo: p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		return domain.Customer{}, domain.ErrInvalidEmail
	}

	if req.CustomerTier != nil && strings.TrimSpace(*req.CustomerTier) != "" {
		if _, ok := domain.ParseTier(*req.CustomerTier); !ok {
			return domain.Customer{}, domain.ErrInvalidTier
		}
	}

	now := time.Now().UTC()
	customer := domain.Customer{
		ID:            NewCustomerID(),
		Name:          name,
		ContactPerson: strings.TrimSpace(req.ContactPerson),
		Phone:         strings.TrimSpace(req.Phone),
		Email:         email,
		Address:       strings.TrimSpace(req.Address),
		TaxID:         strings.TrimSpace(req.TaxID),
		CustomerTier:  domain.EffectiveTier(req.CustomerTier, req.PriceCategory),
		PriceCategory: trimmed(req.PriceCategory),
		Metadata:      datatypes.JSONMap(req.Metadata),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if customer.Metadata == nil {
		customer.Metadata = datatypes.JSONMap{}
	}

	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		return domain.Customer{}, err
	}

	s.log.Info("customer created",
		zap.String("customer_id", customer.ID),
		zap.String("customer_tier", string(customer.CustomerTier)),
	)
	return customer, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCustomerRequest) (domain.Customer, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	customer, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if customer == nil {
		return domain.Customer{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Customer{}, domain.ErrInvalidName
		}
		customer.Name = name
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email != "" && !strings.Contains(email, "@") {
			return domain.Customer{}, domain.ErrInvalidEmail
		}
		customer.Email = email
	}
	if req.CustomerTier != nil {
		tier, ok := domain.ParseTier(*req.CustomerTier)
		if !ok {
			return domain.Customer{}, domain.ErrInvalidTier
		}
		customer.CustomerTier = tier
	}
	if req.ContactPerson != nil {
		customer.ContactPerson = strings.TrimSpace(*req.ContactPerson)
	}
	if req.Phone != nil {
		customer.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		customer.Address = strings.TrimSpace(*req.Address)
	}
	if req.TaxID != nil {
		customer.TaxID = strings.TrimSpace(*req.TaxID)
	}
	if req.Metadata != nil {
		customer.Metadata = datatypes.JSONMap(req.Metadata)
	}
	customer.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, customer); err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	filter := domain.ListCustomerFilter{
		Name: strings.ToLower(strings.TrimSpace(req.Name)),
	}
	if strings.TrimSpace(req.Tier) != "" {
		tier, ok := domain.ParseTier(req.Tier)
		if !ok {
			return domain.ListCustomerResponse{}, domain.ErrInvalidTier
		}
		filter.Tier = tier
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
		return domain.ListCustomerResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(customer *domain.Customer) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        customer.ID,
			CreatedAt: customer.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	customers := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		customers = append(customers, *item)
	}

	resp := domain.ListCustomerResponse{Customers: customers}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCustomerRequest) (domain.Customer, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}

		count, err := s.repo.CountInvoices(ctx, tx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrHasInvoices
		}
		return s.repo.Delete(ctx, tx, id)
	})
}

// NewCustomerID returns a random 20 character alphanumeric id.
func NewCustomerID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:customerIDLength]
}

func parseID(value string) (string, error) {
	id := strings.TrimSpace(value)
	if id == "" {
		return "", domain.ErrInvalidID
	}
	return id, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
