package service

import (
	"context"
	"errors"
	"strings"

	"github.com/oklog/ulid/v2"
	invoicedomain "github.com/smallbiznis/statement/internal/invoice/domain"
	"github.com/smallbiznis/statement/internal/signature"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	signModeSingle = "single"
	signModeBatch  = "batch"
)

// Sign attaches the customer's signature. A pending statement becomes
// completed; signing a completed statement again only replaces the image.
func (s *Service) Sign(ctx context.Context, id string, req invoicedomain.SignRequest) (*invoicedomain.Invoice, error) {
	encoded, err := signature.Normalize(req.Signature)
	if err != nil {
		return nil, invoicedomain.ErrInvalidSignature
	}

	invoice, err := s.sign(ctx, id, encoded, nil)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordInvoiceSigned(ctx, signModeSingle)
	return invoice, nil
}

// BatchSign applies one signature to several statements. Each statement is
// signed in its own transaction and failures are reported per id.
func (s *Service) BatchSign(ctx context.Context, req invoicedomain.BatchSignRequest) (*invoicedomain.BatchSignResult, error) {
	ids := dedupeIDs(req.IDs)
	if len(ids) == 0 {
		return nil, invoicedomain.ErrEmptyBatch
	}

	encoded, err := signature.Normalize(req.Signature)
	if err != nil {
		return nil, invoicedomain.ErrInvalidSignature
	}

	batchID := ulid.Make().String()
	result := &invoicedomain.BatchSignResult{
		BatchID: batchID,
		Signed:  []string{},
		Failed:  []invoicedomain.BatchSignFailure{},
	}
	for _, id := range ids {
		if _, err := s.sign(ctx, id, encoded, &batchID); err != nil {
			result.Failed = append(result.Failed, invoicedomain.BatchSignFailure{ID: id, Error: err.Error()})
			continue
		}
		result.Signed = append(result.Signed, id)
		s.metrics.RecordInvoiceSigned(ctx, signModeBatch)
	}

	s.log.Info("batch signed",
		zap.String("batch_id", batchID),
		zap.Int("signed", len(result.Signed)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func (s *Service) sign(ctx context.Context, id, encoded string, batchID *string) (*invoicedomain.Invoice, error) {
	invoiceID := strings.TrimSpace(id)
	if invoiceID == "" {
		return nil, invoicedomain.ErrInvalidID
	}

	var signed *invoicedomain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByIDForUpdate(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}

		now := s.clock.Now()
		switch invoice.Status {
		case invoicedomain.StatusDraft:
			return invoicedomain.ErrInvoiceNotSaved
		case invoicedomain.StatusPending:
			invoice.Status = invoicedomain.StatusCompleted
			invoice.SignedAt = &now
		case invoicedomain.StatusCompleted:
		default:
			return invoicedomain.ErrInvalidStatus
		}

		invoice.Signature = &encoded
		invoice.SignatureBatchID = batchID
		invoice.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			return err
		}
		signed = invoice
		return nil
	})
	if err != nil {
		if !errors.Is(err, invoicedomain.ErrNotFound) && !errors.Is(err, invoicedomain.ErrInvoiceNotSaved) {
			s.log.Error("sign invoice failed", zap.String("invoice_id", invoiceID), zap.Error(err))
		}
		return nil, err
	}
	return signed, nil
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
