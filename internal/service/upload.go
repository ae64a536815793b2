// upload.go — write path артефакта.
// Pipeline: staged-файл (Guard) → классификация → put в хранилище →
// нормализация delivery URL → освобождение staged-файла.
// Guard освобождается на каждом пути выхода, включая все ошибочные.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/artdelivery/internal/classify"
	"github.com/bigkaa/artdelivery/internal/domain/model"
	"github.com/bigkaa/artdelivery/internal/staging"
	"github.com/bigkaa/artdelivery/internal/storeclient"
)

// Prometheus-метрики upload.
var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ad_uploads_total",
		Help: "Общее количество загрузок артефактов (по статусу).",
	}, []string{"status"})

	uploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ad_upload_duration_seconds",
		Help:    "Длительность загрузки артефакта в хранилище.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	uploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ad_upload_bytes_total",
		Help: "Общее количество загруженных байт.",
	})
)

// RemoteStore — контракт удалённого object store, нужный write path.
// Боевая реализация — storeclient.Client.
type RemoteStore interface {
	// Put загружает локальный файл, возвращает результат хранилища.
	Put(ctx context.Context, localPath string, opts storeclient.PutOptions) (*model.UploadResult, error)
	// Delete удаляет объект best effort; true — удаление подтверждено.
	Delete(ctx context.Context, storeID string, rt model.ResourceType) bool
}

// UploadService — сервис загрузки артефактов в удалённое хранилище.
type UploadService struct {
	store  RemoteStore
	folder string
	logger *slog.Logger
}

// NewUploadService создаёт сервис загрузки.
// folder — папка хранилища для новых артефактов.
func NewUploadService(store RemoteStore, folder string, logger *slog.Logger) *UploadService {
	return &UploadService{
		store:  store,
		folder: folder,
		logger: logger.With(slog.String("component", "upload_service")),
	}
}

// Upload загружает staged-файл в хранилище.
//
// Поток:
//  1. Guard принимает staged-файл во владение (Release на каждом выходе)
//  2. Классификация по MIME + подсказке → тип ресурса и опции put
//  3. put в хранилище (ошибка → *storeclient.UploadError, файл освобождён)
//  4. Нормализация delivery URL под запрошенный тип
//
// originalName — имя файла пользователя, declaredMIME — заявленный
// MIME-тип (пустой — классификация по расширению), hint — подсказка
// вызывающего кода о назначении загрузки.
func (s *UploadService) Upload(ctx context.Context, stagedPath, originalName, declaredMIME string, hint classify.Hint) (*model.UploadResult, error) {
	start := time.Now()

	// 1. Владение staged-файлом: удаление на любом пути выхода
	guard := staging.Acquire(stagedPath, s.logger)
	defer guard.Release()

	// 2. Классификация
	var rt model.ResourceType
	var opts storeclient.PutOptions
	if declaredMIME != "" {
		rt, opts = classify.Classify(declaredMIME, hint, s.folder)
	} else {
		rt, opts = classify.ClassifyFilename(originalName, hint, s.folder)
	}

	s.logger.Debug("Загрузка классифицирована",
		slog.String("name", originalName),
		slog.String("mime", declaredMIME),
		slog.String("resource_type", string(rt)),
		slog.Bool("image_transforms", opts.HasImageTransforms()),
	)

	// 3. Put в хранилище
	result, err := s.store.Put(ctx, guard.Path(), opts)
	if err != nil {
		uploadsTotal.WithLabelValues("store_error").Inc()
		return nil, fmt.Errorf("загрузка артефакта %q: %w", originalName, err)
	}

	// 4. Нормализация delivery URL: raw/document-артефакт никогда
	// не должен отдаваться через image-доставку
	result.DeliveryURL = storeclient.NormalizeDeliveryURL(result.DeliveryURL, result.StoreID, rt)
	if rt != model.ResourceTypeAuto {
		result.ResourceType = rt
	}

	uploadsTotal.WithLabelValues("success").Inc()
	uploadDuration.Observe(time.Since(start).Seconds())
	uploadBytesTotal.Add(float64(result.ByteSize))

	s.logger.Info("Артефакт загружен",
		slog.String("store_id", result.StoreID),
		slog.String("resource_type", string(result.ResourceType)),
		slog.Int64("bytes", result.ByteSize),
		slog.Duration("duration", time.Since(start)),
	)

	return result, nil
}

// Replace загружает новый артефакт и лишь после успешной загрузки
// best effort удаляет старый. Сбой удаления не отменяет замену.
func (s *UploadService) Replace(ctx context.Context, stagedPath, originalName, declaredMIME string, hint classify.Hint, oldStoreID string, oldType model.ResourceType) (*model.UploadResult, error) {
	result, err := s.Upload(ctx, stagedPath, originalName, declaredMIME, hint)
	if err != nil {
		return nil, err
	}

	if oldStoreID != "" {
		if ok := s.store.Delete(ctx, oldStoreID, oldType); !ok {
			s.logger.Warn("Старый артефакт не удалён при замене",
				slog.String("old_store_id", oldStoreID),
			)
		}
	}

	return result, nil
}

// Delete удаляет артефакт из хранилища best effort.
// Сбой не поднимается: удаление записи-владельца не должно блокироваться.
func (s *UploadService) Delete(ctx context.Context, storeID string, rt model.ResourceType) bool {
	return s.store.Delete(ctx, storeID, rt)
}
