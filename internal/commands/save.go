package commands

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/svgview/internal/host"
	"github.com/starford/svgview/internal/storage"
)

const pngDataPrefix = "data:image/png;base64,"

// Resolver maps a path to an absolute path the server may write.
type Resolver interface {
	Resolve(path string) (string, error)
}

// Saver writes PNG data URLs posted by export panels.
type Saver struct {
	paths    Resolver
	notifier host.Notifier
	logger   *slog.Logger
}

// NewSaver returns a saver restricted to the paths resolver accepts.
func NewSaver(paths Resolver, notifier host.Notifier, logger *slog.Logger) *Saver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Saver{paths: paths, notifier: notifier, logger: logger}
}

// Save decodes a data:image/png;base64 URL and writes it to output
// atomically. The user is notified of the outcome.
func (s *Saver) Save(ctx context.Context, dataURL, output string) error {
	err := s.save(ctx, dataURL, output)
	if err != nil {
		s.notifier.Error(err.Error())
		return err
	}
	s.notifier.Info("export done. " + output)
	return nil
}

func (s *Saver) save(ctx context.Context, dataURL, output string) error {
	if !strings.HasPrefix(dataURL, pngDataPrefix) {
		return fmt.Errorf("commands: save: not a PNG data URL")
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, pngDataPrefix))
	if err != nil {
		return fmt.Errorf("commands: save: decode: %w", err)
	}
	abs, err := s.paths.Resolve(output)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := storage.WriteFileAtomic(abs, data); err != nil {
		return err
	}
	s.logger.Info("commands: png saved", slog.String("output", abs), slog.Int("bytes", len(data)))
	return nil
}
