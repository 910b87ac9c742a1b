package pdf

import (
	"bytes"
	"context"
	"io"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type StatementData struct {
	CompanyName    string
	CompanyAddress string
	CompanyPhone   string
	CompanyEmail   string
	CompanyTaxID   string
	Footer         string

	SerialNumber string
	InvoiceDate  string
	Status       string

	CustomerName    string
	CustomerContact string
	CustomerPhone   string
	CustomerAddress string
	CustomerTaxID   string

	Items []StatementItem
	Total string
	Note  string

	// Signature is a PNG image; empty when unsigned.
	Signature []byte
	SignedAt  string
}

type StatementItem struct {
	Description   string
	Specification string
	Quantity      int64
	UnitPrice     string
	Amount        string
}

func (p *PDFProvider) GenerateStatement(ctx context.Context, data StatementData) (io.Reader, error) {
	m := maroto.New(p.newConfig())

	m.AddRow(10,
		text.NewCol(12, data.CompanyName, props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Center,
		}),
	)
	m.AddRow(12,
		col.New(12).Add(
			text.New(data.CompanyAddress, props.Text{Size: 8, Align: align.Center}),
			text.New(joinNonEmpty("  ", labelled("Tel", data.CompanyPhone), data.CompanyEmail, labelled("Tax ID", data.CompanyTaxID)), props.Text{Size: 8, Align: align.Center, Top: 4}),
		),
	)
	m.AddRow(10,
		text.NewCol(12, "Statement of Account", props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Align: align.Center,
		}),
	)

	m.AddRow(24,
		col.New(7).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.New(data.CustomerName, props.Text{Top: 5, Size: 9}),
			text.New(joinNonEmpty("  ", data.CustomerContact, data.CustomerPhone), props.Text{Top: 9, Size: 8}),
			text.New(data.CustomerAddress, props.Text{Top: 13, Size: 8}),
			text.New(labelled("Tax ID", data.CustomerTaxID), props.Text{Top: 17, Size: 8}),
		),
		col.New(5).Add(
			text.New("Serial number: "+data.SerialNumber, props.Text{Size: 9, Align: align.Right}),
			text.New("Date: "+data.InvoiceDate, props.Text{Top: 5, Size: 9, Align: align.Right}),
			text.New("Status: "+data.Status, props.Text{Top: 10, Size: 9, Align: align.Right}),
		),
	)

	m.AddRow(8,
		text.NewCol(4, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Specification", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))

	for _, item := range data.Items {
		m.AddRow(7,
			text.NewCol(4, item.Description, props.Text{Size: 9}),
			text.NewCol(2, item.Specification, props.Text{Size: 9}),
			text.NewCol(2, strconv.FormatInt(item.Quantity, 10), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.UnitPrice, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(2, line.NewCol(12))
	m.AddRow(9,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(2, data.Total, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)

	if data.Note != "" {
		m.AddRow(12, text.NewCol(12, "Note: "+data.Note, props.Text{Size: 8, Top: 2}))
	}
	if data.Footer != "" {
		m.AddRow(10, text.NewCol(12, data.Footer, props.Text{Size: 8, Style: fontstyle.Italic, Top: 2}))
	}

	if len(data.Signature) > 0 {
		m.AddRow(6,
			col.New(8),
			text.NewCol(4, "Customer signature", props.Text{Size: 8, Style: fontstyle.Bold}),
		)
		m.AddRow(30,
			col.New(8),
			image.NewFromBytesCol(4, data.Signature, extension.Png, props.Rect{Percent: 90}),
		)
		m.AddRow(6,
			col.New(8),
			text.NewCol(4, "Signed at "+data.SignedAt, props.Text{Size: 7}),
		)
	} else {
		m.AddRow(20,
			col.New(8),
			text.NewCol(4, "Customer signature: ____________", props.Text{Size: 8, Top: 12}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}
