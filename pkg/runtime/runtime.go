package runtime

import (
	"context"
	"errors"

	"github.com/Layr-Labs/delegate-tracker/internal/config"
	"github.com/Layr-Labs/delegate-tracker/pkg/storage"
	"go.uber.org/zap"
	"golang.org/x/mod/semver"
	"gorm.io/gorm"
)

type TrackerRuntime struct {
	grm          *gorm.DB
	store        storage.EventStore
	globalConfig *config.Config
	logger       *zap.Logger
}

func NewTrackerRuntime(grm *gorm.DB, store storage.EventStore, globalConfig *config.Config, l *zap.Logger) *TrackerRuntime {
	return &TrackerRuntime{
		grm:          grm,
		store:        store,
		globalConfig: globalConfig,
		logger:       l,
	}
}

func (r *TrackerRuntime) GetRecentlyLaunchedTrackerVersion() (*TrackerVersions, error) {
	var tv TrackerVersions
	res := r.grm.Model(&TrackerVersions{}).Order("id desc").First(&tv)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, res.Error
	}
	return &tv, nil
}

// ValidateAndUpdateTrackerVersion refuses to run a binary older than the last one
// that wrote to the store and records the version when it is new.
func (r *TrackerRuntime) ValidateAndUpdateTrackerVersion(ctx context.Context, version string) error {
	if version == "" {
		return errors.New("empty version")
	}

	if version == "unknown" {
		r.logger.Sugar().Warnw("runtime version is unknown, not inserting into tracker_versions", zap.String("version", version))
		return nil
	}

	lastSeenVersion, err := r.GetRecentlyLaunchedTrackerVersion()
	if err != nil {
		return err
	}

	if lastSeenVersion != nil {
		// new version should be >= last seen version
		cmp := semver.Compare(version, lastSeenVersion.Version)
		if cmp < 0 {
			return errors.New("runtime version is older than last seen version")
		}
		if cmp == 0 {
			r.logger.Sugar().Infow("runtime version is the same as the last seen version", zap.String("version", version))
			return nil
		}
	}

	eventCount, err := r.store.CountDelegationEvents(ctx)
	if err != nil {
		return err
	}

	res := r.grm.Model(&TrackerVersions{}).Create(&TrackerVersions{
		Version:        version,
		EventsAtLaunch: eventCount,
	})
	return res.Error
}
