package pdf

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	appconfig "github.com/smallbiznis/statement/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newProvider() Provider {
	return New(appconfig.NewStaticProfileHolder(appconfig.DefaultProfile()), zap.NewNop())
}

func signaturePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 120, 40))
	for x := 0; x < 120; x++ {
		img.Set(x, 20, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func readAll(t *testing.T, r io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return b
}

func TestGenerateStatement(t *testing.T) {
	data := StatementData{
		CompanyName:  "Acme Supplies",
		SerialNumber: "CPABCD00001",
		InvoiceDate:  "2024-03-05",
		Status:       "completed",
		CustomerName: "Corner Shop",
		Items: []StatementItem{
			{Description: "Bolt", Specification: "M4", Quantity: 10, UnitPrice: "12.00", Amount: "120.00"},
		},
		Total:     "120.00",
		Note:      "Deliver before noon",
		Signature: signaturePNG(t),
		SignedAt:  "2024-03-06 10:00",
	}

	r, err := newProvider().GenerateStatement(context.Background(), data)
	require.NoError(t, err)
	out := readAll(t, r)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestGenerateStatementWithoutSignature(t *testing.T) {
	r, err := newProvider().GenerateStatement(context.Background(), StatementData{CompanyName: "Acme", SerialNumber: "TCABCD00002"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(readAll(t, r), []byte("%PDF")))
}

func TestGenerateReport(t *testing.T) {
	data := ReportData{
		CompanyName: "Acme Supplies",
		Title:       "Revenue 2024-Q1",
		Summary:     []SummaryLine{{Label: "Total revenue", Value: "1,200.00"}},
		Tables: []Table{{
			Heading: "By customer",
			Columns: []string{"Customer", "Invoices", "Revenue"},
			Rows:    [][]string{{"Corner Shop", "3", "1,200.00"}},
			Footer:  []string{"Total", "3", "1,200.00"},
		}},
	}
	r, err := newProvider().GenerateReport(context.Background(), data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(readAll(t, r), []byte("%PDF")))
}

func TestColumnWidths(t *testing.T) {
	assert.Equal(t, []int{4, 4, 4}, columnWidths(Table{Columns: []string{"a", "b", "c"}}))
	assert.Equal(t, []int{4, 2, 2, 2, 2}, columnWidths(Table{Columns: []string{"a", "b", "c", "d", "e"}}))
	assert.Equal(t, []int{6, 6}, columnWidths(Table{Columns: []string{"a", "b"}, Widths: []int{6, 6}}))
}
