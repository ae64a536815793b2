// Пакет staging — управление временными файлами загрузки.
// Guard владеет локально размещённым файлом и гарантирует его удаление
// на любом пути выхода из операции загрузки (успех, ошибка хранилища,
// ошибка после сохранения). Только файловая система, без БД.
package staging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Guard — scoped-владение staged-файлом.
// Release идемпотентен и безопасен для повторных вызовов (defer + явный вызов).
type Guard struct {
	path     string
	logger   *slog.Logger
	once     sync.Once
	released bool
	mu       sync.Mutex
}

// Acquire принимает во владение уже существующий staged-файл.
// Вызывающий код обязан вызвать Release на каждом пути выхода
// (обычно через defer сразу после Acquire).
func Acquire(path string, logger *slog.Logger) *Guard {
	return &Guard{
		path:   path,
		logger: logger.With(slog.String("component", "staging")),
	}
}

// Stage записывает содержимое reader во временный файл в dir и
// возвращает Guard, владеющий этим файлом.
// Формат имени: {uuid}_{безопасное имя}. При ошибке записи файл удаляется.
func Stage(dir string, reader io.Reader, originalName string, logger *slog.Logger) (*Guard, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("создание staging-директории %s: %w", dir, err)
	}

	name := uuid.New().String() + "_" + safeBaseName(originalName)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("создание staged-файла: %w", err)
	}

	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("запись staged-файла: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("закрытие staged-файла: %w", err)
	}

	return Acquire(path, logger), nil
}

// Path возвращает путь staged-файла.
func (g *Guard) Path() string {
	return g.path
}

// Released сообщает, был ли файл уже освобождён.
func (g *Guard) Released() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.released
}

// Release удаляет staged-файл, если он ещё существует.
// Повторные вызовы не выполняют никаких действий.
func (g *Guard) Release() {
	g.once.Do(func() {
		g.mu.Lock()
		g.released = true
		g.mu.Unlock()

		err := os.Remove(g.path)
		switch {
		case err == nil:
			g.logger.Debug("Staged-файл удалён", slog.String("path", g.path))
		case os.IsNotExist(err):
			// Файл уже отсутствует — штатная ситуация
		default:
			g.logger.Warn("Не удалось удалить staged-файл",
				slog.String("path", g.path),
				slog.String("error", err.Error()),
			)
		}
	})
}

// safeBaseName приводит имя файла к безопасному для файловой системы виду:
// только базовое имя, без разделителей путей.
func safeBaseName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "upload"
	}
	return base
}
