// fsenv.go — host-окружение для CLI/desktop-хоста:
// сетевое получение через Fetcher, передача файла — прямая запись на диск.
package hostenv

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// FSEnvironment — окружение с записью файлов в локальную директорию.
type FSEnvironment struct {
	*Fetcher
	outDir string
	logger *slog.Logger
}

// NewFSEnvironment создаёт окружение CLI-хоста.
// outDir — директория, в которую PresentFile записывает файлы.
func NewFSEnvironment(outDir string, fetchTimeout time.Duration, logger *slog.Logger) *FSEnvironment {
	return &FSEnvironment{
		Fetcher: NewFetcher(fetchTimeout, logger),
		outDir:  outDir,
		logger:  logger.With(slog.String("component", "fs_env")),
	}
}

// NotifyUser выводит сообщение пользователю в лог.
func (e *FSEnvironment) NotifyUser(message string) {
	e.logger.Info("Сообщение пользователю", slog.String("message", message))
}

// PresentFile записывает байты в файл outDir/filename.
func (e *FSEnvironment) PresentFile(data []byte, filename string) error {
	if err := os.MkdirAll(e.outDir, 0o750); err != nil {
		return fmt.Errorf("создание директории %s: %w", e.outDir, err)
	}

	path := filepath.Join(e.outDir, filename)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("запись файла %s: %w", path, err)
	}

	e.logger.Info("Файл сохранён",
		slog.String("path", path),
		slog.Int("bytes", len(data)),
	)
	return nil
}
