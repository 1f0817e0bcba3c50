package framesink

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/eleven-am/burst-camera/internal/camera"
)

const timestampLayout = "20060102_150405"

type Config struct {
	Folder string
	Now    func() time.Time
	Log    *slog.Logger
}

// Sink persists burst frames into a single destination folder. It is not
// safe for concurrent use; the session worker owns it.
type Sink struct {
	folder string
	now    func() time.Time
	log    *slog.Logger
}

func New(cfg Config) *Sink {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Sink{
		folder: cfg.Folder,
		now:    cfg.Now,
		log:    cfg.Log.With("component", "frame_sink", "folder", cfg.Folder),
	}
}

func (s *Sink) Folder() string {
	return s.folder
}

// Filename builds frame_<yyyyMMdd_HHmmss>_<index>.<ext>.
func Filename(ts time.Time, index int, format camera.PixelFormat) string {
	return "frame_" + ts.Format(timestampLayout) + "_" + strconv.Itoa(index) + "." + format.Extension()
}

// Write copies the frame bytes to disk. The image is closed before Write
// returns whatever the outcome.
func (s *Sink) Write(img camera.Image, index int) (string, error) {
	defer func() {
		if err := img.Close(); err != nil {
			s.log.Debug("image close failed", "index", index, "error", err)
		}
	}()

	data := bytes.Clone(img.Bytes())
	path := filepath.Join(s.folder, Filename(s.now(), index, img.Format()))

	if err := writeNew(path, data); err != nil {
		s.log.Error("frame write failed", "index", index, "path", path, "error", err)
		return "", fmt.Errorf("%w: %s: %v", camera.ErrIOFailure, path, err)
	}

	s.log.Debug("frame written", "index", index, "path", path, "bytes", len(data))
	return path, nil
}

// writeNew refuses to replace an existing frame; file names only carry
// second resolution.
func writeNew(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// EnsureFolder creates the destination folder if needed.
func EnsureFolder(folder string) error {
	if folder == "" {
		return fmt.Errorf("%w: empty path", camera.ErrInvalidFolder)
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("%w: %v", camera.ErrInvalidFolder, err)
	}
	info, err := os.Stat(folder)
	if err != nil {
		return fmt.Errorf("%w: %v", camera.ErrInvalidFolder, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", camera.ErrInvalidFolder, folder)
	}
	return nil
}
