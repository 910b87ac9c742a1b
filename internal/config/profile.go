package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Profile is the operator-editable part of the configuration: the company
// block printed on statements and report presentation settings.
type Profile struct {
	Company CompanyProfile `mapstructure:"company"`
	Report  ReportSettings `mapstructure:"report"`
}

type CompanyProfile struct {
	Name    string `mapstructure:"name"`
	Address string `mapstructure:"address"`
	Phone   string `mapstructure:"phone"`
	Email   string `mapstructure:"email"`
	TaxID   string `mapstructure:"taxId"`
	Footer  string `mapstructure:"footer"`
}

type ReportSettings struct {
	CurrencySymbol string `mapstructure:"currencySymbol"`
	Timezone       string `mapstructure:"timezone"`
	// FontFile is a TTF with CJK coverage used for PDF output. Without it
	// PDFs fall back to the built-in Latin font.
	FontFile string `mapstructure:"fontFile"`
}

func DefaultProfile() Profile {
	return Profile{
		Company: CompanyProfile{
			Name:   "Statement of Account",
			Footer: "Please verify the items above and sign to confirm.",
		},
		Report: ReportSettings{
			CurrencySymbol: "NT$",
			Timezone:       "Asia/Taipei",
		},
	}
}

// Location returns the report timezone, falling back to UTC.
func (r ReportSettings) Location() *time.Location {
	name := strings.TrimSpace(r.Timezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

type ProfileHolder struct {
	current atomic.Value // holds Profile
}

// NewProfileHolder reads statement.yml from the usual locations and keeps it
// reloaded on change. A missing file yields the defaults.
func NewProfileHolder(log *zap.Logger) (*ProfileHolder, error) {
	v := viper.New()

	v.SetConfigName("statement")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/statement/config") // Volume-mounted config
	v.AddConfigPath("/etc/statement")            // System config
	v.AddConfigPath(".")                         // Current directory (dev mode)

	v.SetEnvPrefix("STATEMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return newProfileHolder(v, log)
}

// NewStaticProfileHolder wraps a fixed profile, for tools and tests.
func NewStaticProfileHolder(p Profile) *ProfileHolder {
	holder := &ProfileHolder{}
	holder.current.Store(p)
	return holder
}

func newProfileHolder(v *viper.Viper, log *zap.Logger) (*ProfileHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.profile")

	defaults := DefaultProfile()
	v.SetDefault("statement.company.name", defaults.Company.Name)
	v.SetDefault("statement.company.footer", defaults.Company.Footer)
	v.SetDefault("statement.report.currencySymbol", defaults.Report.CurrencySymbol)
	v.SetDefault("statement.report.timezone", defaults.Report.Timezone)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	var profile Profile
	if err := v.UnmarshalKey("statement", &profile); err != nil {
		return nil, err
	}
	if err := validateProfile(profile); err != nil {
		return nil, err
	}

	holder := NewStaticProfileHolder(profile)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Profile
		if err := v.UnmarshalKey("statement", &updated); err != nil {
			log.Warn("profile reload failed", zap.Error(err))
			return
		}
		if err := validateProfile(updated); err != nil {
			log.Warn("invalid profile ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("profile reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *ProfileHolder) Get() Profile {
	return h.current.Load().(Profile)
}

func validateProfile(p Profile) error {
	if strings.TrimSpace(p.Company.Name) == "" {
		return errors.New("statement.company.name cannot be empty")
	}
	if tz := strings.TrimSpace(p.Report.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return errors.New("statement.report.timezone is not a valid location")
		}
	}
	return nil
}
