package infra

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

const DefaultWatchInterval = 5 * time.Second

// WatchFile closes the returned channel once the file at path is modified,
// removed, or ctx is done. A file that cannot be stat'ed at start is not
// watched and the channel only closes with ctx.
func WatchFile(ctx context.Context, path string, interval time.Duration) <-chan struct{} {
	changed := make(chan struct{})
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	entry := log.WithFields(log.Fields{"object": "WatchFile", "path": path})

	stat, err := os.Stat(path)
	if err != nil {
		entry.WithField("error", err.Error()).Warn("cant stat watched file")
		go func() {
			<-ctx.Done()
			close(changed)
		}()
		return changed
	}
	modTime, size := stat.ModTime(), stat.Size()

	go func() {
		defer close(changed)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stat, err := os.Stat(path)
				if os.IsNotExist(err) {
					entry.Info("watched file removed")
					return
				}
				if err != nil {
					entry.WithField("error", err.Error()).Debug("cant stat watched file")
					continue
				}
				if !stat.ModTime().Equal(modTime) || stat.Size() != size {
					entry.Info("watched file modified")
					return
				}
			}
		}
	}()
	return changed
}
