package runtime

import "time"

// TrackerVersions holds one row per binary version that has written to the event store.
type TrackerVersions struct {
	Id             uint64 `gorm:"type:serial"`
	Version        string
	EventsAtLaunch uint64
	CreatedAt      *time.Time
}

func (TrackerVersions) TableName() string {
	return "tracker_versions"
}
