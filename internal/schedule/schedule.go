package schedule

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Weekday buckets used as keys of the schedule file.
const (
	BucketMonThu = "mon_thu"
	BucketFriday = "friday"
)

// Config maps a weekday bucket to the scheduled time of each action key.
// A nil time means the action does not run in that bucket.
type Config map[string]map[string]*string

// LoadSchedule reads the schedule JSON object. A missing file is logged and
// yields an empty config.
func LoadSchedule(fsys afero.Fs, path string, log *zap.Logger) (Config, error) {
	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("Schedule file not found; using an empty schedule.", zap.String("path", path))
		return Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read schedule %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse schedule %s: %w", path, err)
	}
	if cfg == nil {
		cfg = Config{}
	}
	return cfg, nil
}

// Bucket returns the schedule bucket for t.
func Bucket(t time.Time) string {
	if t.Weekday() == time.Friday {
		return BucketFriday
	}
	return BucketMonThu
}

// Lookup returns the scheduled time for key in bucket and whether one is set.
func (c Config) Lookup(bucket, key string) (string, bool) {
	day, ok := c[bucket]
	if !ok {
		return "", false
	}
	at := day[key]
	if at == nil {
		return "", false
	}
	return *at, true
}
