package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// ErrFollowedFileGone is returned when a followed file is removed or renamed.
var ErrFollowedFileGone = errors.New("followed file removed")

// Follow calls fn for every complete line of path, first for the existing
// content and then for lines appended later, until ctx is cancelled.
// Cancellation is a normal stop and returns nil. fn runs on the calling
// goroutine, one line at a time.
func Follow(ctx context.Context, path string, fn func(line string)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	r := bufio.NewReader(f)
	var partial strings.Builder
	drain := func() error {
		for {
			chunk, err := r.ReadString('\n')
			partial.WriteString(chunk)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			fn(strings.TrimRight(partial.String(), "\r\n"))
			partial.Reset()
		}
	}

	if err := drain(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write != 0 {
				if err := drain(); err != nil {
					return err
				}
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				log.Info().Str("path", path).Msg("Followed file removed")
				return ErrFollowedFileGone
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Str("path", path).Msg("Watcher error")
		}
	}
}
