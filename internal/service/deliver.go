// deliver.go — передача проверенного содержимого пользователю.
// Имя файла выводится и санитизируется, байты привязываются к transient
// handle и передаются host-окружению. Handle освобождается с ограниченной
// задержкой (не сразу — чтобы не обогнать чтение хоста); LRU с TTL служит
// страховочным освобождением для handle, переживших таймер.
package service

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/artdelivery/internal/hostenv"
)

// Метрики доставки.
var (
	activeHandles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ad_active_transient_handles",
		Help: "Количество transient handle, ещё не освобождённых.",
	})

	deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ad_deliveries_total",
		Help: "Общее количество передач файла пользователю (по статусу).",
	}, []string{"status"})
)

// illegalFilenameChars — символы, недопустимые в именах файлов.
const illegalFilenameChars = `<>:"/\|?*`

// DeliveryError — host не смог передать файл пользователю.
// Поднимается вызывающему коду, не проглатывается.
type DeliveryError struct {
	// Filename — имя файла, которое передавалось
	Filename string
	// Err — причина из host-окружения
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("передача файла %q пользователю не выполнена: %s", e.Filename, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// TransientHandle — короткоживущая ссылка на содержимое в памяти,
// принадлежащая единственному вызову доставки, который её создал.
type TransientHandle struct {
	// ID — идентификатор handle
	ID string
	// Data — привязанные байты
	Data []byte
	// CreatedAt — время создания
	CreatedAt time.Time
}

// DeliveryManager — преобразование payload в действие save-as хоста.
type DeliveryManager struct {
	handles      *expirable.LRU[string, *TransientHandle]
	releaseDelay time.Duration
	logger       *slog.Logger
}

// NewDeliveryManager создаёт менеджер доставки.
// releaseDelay — задержка освобождения handle после передачи файла хосту.
// handleTTL — страховочный TTL: handle, не освобождённый таймером,
// вытесняется LRU-реестром.
func NewDeliveryManager(registrySize int, releaseDelay, handleTTL time.Duration, logger *slog.Logger) *DeliveryManager {
	dm := &DeliveryManager{
		releaseDelay: releaseDelay,
		logger:       logger.With(slog.String("component", "delivery_manager")),
	}
	dm.handles = expirable.NewLRU[string, *TransientHandle](registrySize,
		func(_ string, _ *TransientHandle) { activeHandles.Dec() },
		handleTTL,
	)
	return dm
}

// Deliver передаёт payload пользователю.
//
// Имя: оригинальное имя дескриптора; без распознаваемого расширения —
// расширение выводится из проверенного MIME-типа; затем санитизация.
// При ошибке PresentFile handle освобождается немедленно и возвращается
// DeliveryError; при успехе handle освобождается по таймеру releaseDelay.
func (dm *DeliveryManager) Deliver(env hostenv.Environment, p *Payload) error {
	filename := DeliveryFilename(p.Name, p.ContentType)

	handle := &TransientHandle{
		ID:        uuid.New().String(),
		Data:      p.Data,
		CreatedAt: time.Now(),
	}
	dm.handles.Add(handle.ID, handle)
	activeHandles.Inc()

	if err := env.PresentFile(handle.Data, filename); err != nil {
		dm.release(handle.ID)
		deliveriesTotal.WithLabelValues("error").Inc()
		return &DeliveryError{Filename: filename, Err: err}
	}

	// Освобождение с задержкой: хост должен успеть прочитать handle
	time.AfterFunc(dm.releaseDelay, func() { dm.release(handle.ID) })

	deliveriesTotal.WithLabelValues("success").Inc()
	dm.logger.Debug("Файл передан пользователю",
		slog.String("filename", filename),
		slog.Int("bytes", len(p.Data)),
		slog.String("handle_id", handle.ID),
	)
	return nil
}

// ActiveHandles возвращает количество неосвобождённых handle.
func (dm *DeliveryManager) ActiveHandles() int {
	return dm.handles.Len()
}

// release освобождает handle. Декремент gauge выполняет eviction-callback.
func (dm *DeliveryManager) release(id string) {
	dm.handles.Remove(id)
}

// DeliveryFilename выводит имя файла для передачи пользователю:
// расширение из MIME при нераспознанном расширении + санитизация.
func DeliveryFilename(name, contentType string) string {
	if name == "" {
		name = "artifact"
	}
	name = ensureExtension(name, contentType)
	return SanitizeFilename(name)
}

// SanitizeFilename удаляет символы, недопустимые в файловых системах.
// Идемпотентна: повторная санитизация не меняет имя.
func SanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegalFilenameChars, r) {
			return -1
		}
		return r
	}, name)
}

// ensureExtension добавляет расширение, выведенное из MIME-типа,
// если имя не имеет распознаваемого расширения.
// Неизвестный MIME — имя остаётся без расширения.
func ensureExtension(name, contentType string) string {
	if hasKnownExtension(name) {
		return name
	}

	switch normalizeContentType(contentType) {
	case "application/pdf":
		return name + ".pdf"
	case "image/jpeg":
		return name + ".jpg"
	case "image/png":
		return name + ".png"
	case "image/gif":
		return name + ".gif"
	}
	return name
}

// hasKnownExtension проверяет наличие распознаваемого расширения.
func hasKnownExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range []string{".pdf", ".jpg", ".jpeg", ".png", ".gif"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
