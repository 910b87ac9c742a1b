package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gosimple/slug"
	customerdomain "github.com/smallbiznis/statement/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/statement/internal/invoice/domain"
	"github.com/smallbiznis/statement/internal/providers/pdf"
	"github.com/smallbiznis/statement/internal/signature"
	"github.com/smallbiznis/statement/pkg/money"
	"go.uber.org/zap"
)

const (
	contentTypePDF = "application/pdf"
	dateLayout     = "2006-01-02"
)

// RenderPDF produces the printable statement for id.
func (s *Service) RenderPDF(ctx context.Context, id string) (*invoicedomain.Document, error) {
	invoice, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	customer, err := s.customers.FindByID(ctx, s.db, invoice.CustomerID)
	if err != nil {
		return nil, err
	}

	data := s.statementData(invoice, customer)
	reader, err := s.pdf.GenerateStatement(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("render statement %s: %w", invoice.SerialNumber, err)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	return &invoicedomain.Document{
		Filename:    statementFilename(invoice),
		ContentType: contentTypePDF,
		Content:     content,
	}, nil
}

func (s *Service) statementData(invoice *invoicedomain.Invoice, customer *customerdomain.Customer) pdf.StatementData {
	profile := s.profile.Get()
	symbol := profile.Report.CurrencySymbol

	data := pdf.StatementData{
		CompanyName:    profile.Company.Name,
		CompanyAddress: profile.Company.Address,
		CompanyPhone:   profile.Company.Phone,
		CompanyEmail:   profile.Company.Email,
		CompanyTaxID:   profile.Company.TaxID,
		Footer:         profile.Company.Footer,

		SerialNumber: invoice.SerialNumber,
		InvoiceDate:  invoice.InvoiceDate.Format(dateLayout),
		Status:       string(invoice.Status),
		CustomerName: invoice.CustomerName,

		Total: money.Format(invoice.TotalAmount, symbol),
		Note:  invoice.Note,
	}
	if customer != nil {
		data.CustomerContact = customer.ContactPerson
		data.CustomerPhone = customer.Phone
		data.CustomerAddress = customer.Address
		data.CustomerTaxID = customer.TaxID
	}

	data.Items = make([]pdf.StatementItem, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		data.Items = append(data.Items, pdf.StatementItem{
			Description:   item.Description,
			Specification: item.Specification,
			Quantity:      item.Quantity,
			UnitPrice:     money.Format(item.UnitPrice, symbol),
			Amount:        money.Format(item.Amount, symbol),
		})
	}

	if invoice.Signature != nil && *invoice.Signature != "" {
		image, err := signature.Decode(*invoice.Signature)
		if err != nil {
			s.log.Warn("stored signature unreadable",
				zap.String("invoice_id", invoice.ID),
				zap.Error(err),
			)
		} else {
			data.Signature = image
		}
	}
	if invoice.SignedAt != nil {
		data.SignedAt = invoice.SignedAt.In(profile.Report.Location()).Format("2006-01-02 15:04")
	}
	return data
}

func statementFilename(invoice *invoicedomain.Invoice) string {
	name := strings.TrimSpace(slug.Make(invoice.CustomerName))
	if name == "" {
		return invoice.SerialNumber + ".pdf"
	}
	return invoice.SerialNumber + "-" + name + ".pdf"
}
