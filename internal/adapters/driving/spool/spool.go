// Package spool publishes patches dropped as files into a directory.
//
// Any "*.json" file appearing in the spool directory is decoded as a
// patch and handed to the publisher. Published files are removed; files
// that fail to decode or publish are renamed with a ".rejected" suffix.
// Hidden files are ignored, so writers can stage a file under a dot name
// and rename it into place.
package spool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/custodia-labs/scenesync/internal/core/domain"
	"github.com/custodia-labs/scenesync/internal/core/ports/driving"
	"github.com/custodia-labs/scenesync/internal/logger"
)

const (
	patchExt    = ".json"
	rejectedExt = ".rejected"
)

// Watcher feeds spooled patch files to a publisher.
type Watcher struct {
	dir       string
	publisher driving.Publisher
}

// New creates a Watcher over dir.
func New(dir string, publisher driving.Publisher) *Watcher {
	return &Watcher{dir: dir, publisher: publisher}
}

// Dir returns the spool directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Run processes files already in the spool, then watches for new ones
// until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0700); err != nil {
		return fmt.Errorf("creating spool directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	if err := w.Drain(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("spool: watcher error: %v", err)
		}
	}
}

// Drain processes every patch file currently in the spool, oldest name first.
func (w *Watcher) Drain(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("reading spool: %w", err)
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil
		}
		if entry.IsDir() || !isPatchFile(entry.Name()) {
			continue
		}
		w.process(ctx, filepath.Join(w.dir, entry.Name()))
	}
	return nil
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !isPatchFile(filepath.Base(event.Name)) {
		return
	}
	w.process(ctx, event.Name)
}

// process publishes one file. A file that has already been consumed is
// skipped silently.
func (w *Watcher) process(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("spool: reading %s: %v", path, err)
		}
		return
	}

	patch, err := domain.DecodePatch(data)
	if err == nil {
		var result *driving.PublishResult
		result, err = w.publisher.Publish(ctx, patch)
		if err == nil {
			logger.Info("spool: published %s v=%d as seq %d", result.Name, result.Version, result.Seq)
			if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				logger.Warn("spool: removing %s: %v", path, rmErr)
			}
			return
		}
	}

	logger.Error("spool: rejecting %s: %v", filepath.Base(path), err)
	if mvErr := os.Rename(path, path+rejectedExt); mvErr != nil && !errors.Is(mvErr, os.ErrNotExist) {
		logger.Warn("spool: moving %s aside: %v", path, mvErr)
	}
}

// Enqueue atomically places a patch file into dir and returns its path.
func Enqueue(dir string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("creating spool directory: %w", err)
	}

	base := strconv.FormatInt(time.Now().UnixNano(), 10) + "-" + uuid.NewString()[:8]
	staging := filepath.Join(dir, "."+base+".tmp")
	final := filepath.Join(dir, base+patchExt)

	if err := os.WriteFile(staging, data, 0600); err != nil {
		return "", fmt.Errorf("writing spool file: %w", err)
	}
	if err := os.Rename(staging, final); err != nil {
		_ = os.Remove(staging)
		return "", fmt.Errorf("moving spool file into place: %w", err)
	}
	return final, nil
}

func isPatchFile(name string) bool {
	return !strings.HasPrefix(name, ".") && strings.HasSuffix(name, patchExt)
}
