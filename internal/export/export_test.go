package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/snapcount/internal/clock"
	ledgerdomain "github.com/smallbiznis/snapcount/internal/ledger/domain"
	profiledomain "github.com/smallbiznis/snapcount/internal/profile/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type stubProfiles struct {
	profiledomain.Service
	profile *profiledomain.Profile
}

func (s stubProfiles) Get(context.Context) *profiledomain.Profile { return s.profile }

type stubLedger struct {
	ledgerdomain.Service
	entries []ledgerdomain.FoodEntry
}

func (s stubLedger) Summary(_ context.Context, goal int) ledgerdomain.Summary {
	return ledgerdomain.Summarize(goal, s.entries)
}

var day = time.Date(2026, 5, 4, 12, 0, 0, 0, time.Local)

func sampleEntries() []ledgerdomain.FoodEntry {
	return []ledgerdomain.FoodEntry{
		{ID: 2, Timestamp: day.UnixMilli(), FoodName: "Caesar Salad with dressing", OriginalName: "Salad", Calories: 480, Protein: 12, Carbs: 20, Fat: 38, Sugar: 4, Source: ledgerdomain.SourceImage},
		{ID: 1, Timestamp: day.Add(-2 * time.Hour).UnixMilli(), FoodName: "Apple", Calories: 95, Protein: 0.5, Carbs: 25, Fat: 0.3, Sugar: 19, Source: ledgerdomain.SourceManual},
	}
}

func newService(profile *profiledomain.Profile, entries []ledgerdomain.FoodEntry) *Service {
	return New(Params{
		Profiles: stubProfiles{profile: profile},
		Ledger:   stubLedger{entries: entries},
		Clock:    clock.NewFakeClock(day),
		Log:      zap.NewNop(),
	})
}

func TestBuildRequiresProfile(t *testing.T) {
	_, err := newService(nil, nil).Build(context.Background())
	assert.ErrorIs(t, err, ErrNoProfile)

	_, err = newService(nil, nil).PDF(context.Background())
	assert.ErrorIs(t, err, ErrNoProfile)
}

func TestPDFDocument(t *testing.T) {
	svc := newService(&profiledomain.Profile{DailyCalorieGoal: 2594}, sampleEntries())

	doc, err := svc.PDF(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "snapcount_20260504.pdf", doc.Filename)
	assert.Equal(t, ContentTypePDF, doc.ContentType)
	assert.True(t, bytes.HasPrefix(doc.Data, []byte("%PDF")))
}

func TestPDFWithoutEntries(t *testing.T) {
	data, err := RenderPDF(Report{Date: day, Summary: ledgerdomain.Summarize(2000, nil)})

	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestXLSXDocument(t *testing.T) {
	svc := newService(&profiledomain.Profile{DailyCalorieGoal: 2594}, sampleEntries())

	doc, err := svc.XLSX(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "snapcount_20260504.xlsx", doc.Filename)
	assert.Equal(t, ContentTypeXLSX, doc.ContentType)

	f, err := excelize.OpenReader(bytes.NewReader(doc.Data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetEntries)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, entryHeaders, rows[0])
	assert.Equal(t, "Caesar Salad with dressing", rows[1][1])
	assert.Equal(t, "Salad", rows[1][2])
	assert.Equal(t, "image", rows[1][3])
	assert.Equal(t, "480", rows[1][4])
	assert.Equal(t, "Apple", rows[2][1])

	total, err := f.GetCellValue(sheetSummary, "B3")
	require.NoError(t, err)
	assert.Equal(t, "575", total)
	remaining, err := f.GetCellValue(sheetSummary, "B4")
	require.NoError(t, err)
	assert.Equal(t, "2019", remaining)

	assert.NotContains(t, f.GetSheetList(), "Sheet1")
}

func TestRemainingLine(t *testing.T) {
	assert.Equal(t, "Remaining: 100 kcal", remainingLine(100))
	assert.Equal(t, "Over goal by 50 kcal", remainingLine(-50))
}
