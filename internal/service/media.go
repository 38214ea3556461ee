package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"messenger/internal/config"
	"messenger/pkg/logger"

	"github.com/google/uuid"
)

// MediaService - хранилище медиафайлов. Ядро чата хранит только возвращенный
// URL, байты его не касаются.
type MediaService interface {
	Store(ctx context.Context, filename string, src io.Reader) (string, error)
}

type mediaService struct {
	cfg config.UploadConfig
	log logger.Logger
}

func NewMediaService(cfg config.UploadConfig, log logger.Logger) (MediaService, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &mediaService{cfg: cfg, log: log}, nil
}

// Store кладет файл под случайным именем, сохраняя расширение оригинала,
// и возвращает стабильный URL.
func (s *mediaService) Store(ctx context.Context, filename string, src io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 {
		ext = ""
	}
	name := uuid.NewString() + ext

	path := filepath.Join(s.cfg.Dir, name)
	dst, err := os.Create(path)
	if err != nil {
		s.log.Error("Failed to create upload file", "error", err, "path", path)
		return "", err
	}
	defer dst.Close()

	maxSize := int64(s.cfg.MaxSizeMB) << 20
	written, err := io.Copy(dst, io.LimitReader(src, maxSize+1))
	if err != nil {
		os.Remove(path)
		s.log.Error("Failed to write upload file", "error", err, "path", path)
		return "", err
	}
	if written > maxSize {
		os.Remove(path)
		return "", fmt.Errorf("file exceeds %d MB limit", s.cfg.MaxSizeMB)
	}

	return s.cfg.BaseURL + "/" + name, nil
}
