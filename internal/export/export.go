package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/snapcount/internal/clock"
	ledgerdomain "github.com/smallbiznis/snapcount/internal/ledger/domain"
	obslogger "github.com/smallbiznis/snapcount/internal/observability/logger"
	profiledomain "github.com/smallbiznis/snapcount/internal/profile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrNoProfile = errors.New("profile_not_found")

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var Module = fx.Module("export",
	fx.Provide(New),
)

// Report is the day the export renders.
type Report struct {
	Date    time.Time
	Profile profiledomain.Profile
	Summary ledgerdomain.Summary
}

// Document is a rendered report ready to be served as a download.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Params struct {
	fx.In

	Profiles profiledomain.Service
	Ledger   ledgerdomain.Service
	Clock    clock.Clock
	Log      *zap.Logger
}

type Service struct {
	profiles profiledomain.Service
	ledger   ledgerdomain.Service
	clock    clock.Clock
	log      *zap.Logger
}

func New(p Params) *Service {
	return &Service{
		profiles: p.Profiles,
		ledger:   p.Ledger,
		clock:    p.Clock,
		log:      p.Log.Named("export.service"),
	}
}

// Build collects today's summary. The ledger read applies the day rollover.
func (s *Service) Build(ctx context.Context) (Report, error) {
	profile := s.profiles.Get(ctx)
	if profile == nil {
		return Report{}, ErrNoProfile
	}
	return Report{
		Date:    s.clock.Now(),
		Profile: *profile,
		Summary: s.ledger.Summary(ctx, profile.DailyCalorieGoal),
	}, nil
}

func (s *Service) PDF(ctx context.Context) (Document, error) {
	return s.render(ctx, "pdf", ContentTypePDF, RenderPDF)
}

func (s *Service) XLSX(ctx context.Context) (Document, error) {
	return s.render(ctx, "xlsx", ContentTypeXLSX, RenderXLSX)
}

func (s *Service) render(ctx context.Context, ext, contentType string, fn func(Report) ([]byte, error)) (Document, error) {
	report, err := s.Build(ctx)
	if err != nil {
		return Document{}, err
	}
	data, err := fn(report)
	if err != nil {
		obslogger.WithContext(ctx, s.log).Error("failed to render day report",
			zap.String("format", ext),
			zap.Error(err),
		)
		return Document{}, fmt.Errorf("render %s: %w", ext, err)
	}
	obslogger.WithContext(ctx, s.log).Info("day report exported",
		zap.String("format", ext),
		zap.Int("entries", len(report.Summary.Entries)),
		zap.Int("bytes", len(data)),
	)
	return Document{
		Filename:    fmt.Sprintf("snapcount_%s.%s", report.Date.Format("20060102"), ext),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func entryTime(e ledgerdomain.FoodEntry) string {
	return time.UnixMilli(e.Timestamp).Local().Format("15:04")
}

func formatGrams(v float64) string {
	return fmt.Sprintf("%.1f g", v)
}
