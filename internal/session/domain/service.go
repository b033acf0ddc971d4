package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/snapcount/internal/ledger/domain"
	profiledomain "github.com/smallbiznis/snapcount/internal/profile/domain"
)

// Service drives one device's session. Every mutation returns the snapshot
// after it has been applied and persisted.
type Service interface {
	Snapshot(ctx context.Context) Snapshot
	CompleteSetup(ctx context.Context, b profiledomain.Biometrics) (Snapshot, error)
	EditProfile(ctx context.Context) Snapshot
	StartLogging(ctx context.Context) (Snapshot, error)
	Back(ctx context.Context) Snapshot

	UploadImage(ctx context.Context, data []byte, mimeType string) (Snapshot, error)
	ClearImage(ctx context.Context) Snapshot
	Analyze(ctx context.Context) (Snapshot, error)
	ShowManualInput(ctx context.Context) Snapshot
	SubmitDescription(ctx context.Context, description string) (Snapshot, error)
	Recalculate(ctx context.Context, newName string) (Snapshot, error)

	AddToLog(ctx context.Context) (Snapshot, ledgerdomain.FoodEntry, error)
	DeleteEntry(ctx context.Context, id snowflake.ID) Snapshot
	Reset(ctx context.Context) Snapshot

	// Refresh re-evaluates the ledger and publishes the snapshot to subscribers.
	Refresh(ctx context.Context) Snapshot
}

var (
	ErrEstimationInFlight = errors.New("estimation_in_flight")
	ErrNoProfile          = errors.New("profile_required")
	ErrNoDraft            = errors.New("no_estimate_to_log")
	ErrNoImage            = errors.New("no_image_uploaded")
	ErrWrongView          = errors.New("wrong_view")
	ErrEmptyDescription   = errors.New("empty_description")
)
