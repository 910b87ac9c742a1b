package pdf

import (
	"context"
	"io"
	"strings"

	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core/entity"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/johnfercher/maroto/v2/pkg/repository"
	appconfig "github.com/smallbiznis/statement/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("pdf", fx.Provide(New))

type Provider interface {
	GenerateStatement(ctx context.Context, data StatementData) (io.Reader, error)
	GenerateReport(ctx context.Context, data ReportData) (io.Reader, error)
}

const customFontFamily = "statement-cjk"

type PDFProvider struct {
	profile *appconfig.ProfileHolder
	log     *zap.Logger
}

func New(profile *appconfig.ProfileHolder, log *zap.Logger) Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &PDFProvider{profile: profile, log: log.Named("pdf.provider")}
}

// newConfig builds the document config. When the profile names a TTF font it
// becomes the default family so CJK text renders.
func (p *PDFProvider) newConfig() *entity.Config {
	builder := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		})

	if fontFile := p.fontFile(); fontFile != "" {
		fonts, err := repository.New().
			AddUTF8Font(customFontFamily, fontstyle.Normal, fontFile).
			AddUTF8Font(customFontFamily, fontstyle.Bold, fontFile).
			AddUTF8Font(customFontFamily, fontstyle.Italic, fontFile).
			AddUTF8Font(customFontFamily, fontstyle.BoldItalic, fontFile).
			Load()
		if err != nil {
			p.log.Warn("custom font not loaded, using built-in font", zap.String("font_file", fontFile), zap.Error(err))
		} else {
			builder = builder.
				WithCustomFonts(fonts).
				WithDefaultFont(&props.Font{Family: customFontFamily})
		}
	}

	return builder.Build()
}

func (p *PDFProvider) fontFile() string {
	if p.profile == nil {
		return ""
	}
	return strings.TrimSpace(p.profile.Get().Report.FontFile)
}

type NoOpProvider struct{}

func (p *NoOpProvider) GenerateStatement(ctx context.Context, data StatementData) (io.Reader, error) {
	return strings.NewReader(""), nil
}

func (p *NoOpProvider) GenerateReport(ctx context.Context, data ReportData) (io.Reader, error) {
	return strings.NewReader(""), nil
}
