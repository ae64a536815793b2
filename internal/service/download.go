// download.go — read path артефакта.
// Pipeline: разбор дескриптора (фиксированный приоритет remote → legacy →
// inline) → получение содержимого → проверка целостности → передача
// пользователю. Ошибки read path не оставляют transient handle:
// handle создаётся только после валидации, уже внутри DeliveryManager.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/artdelivery/internal/domain/model"
	"github.com/bigkaa/artdelivery/internal/hostenv"
)

// Prometheus-метрики download.
var (
	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ad_downloads_total",
		Help: "Общее количество запросов на получение артефакта (по статусу).",
	}, []string{"status", "variant"})

	downloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ad_download_duration_seconds",
		Help:    "Длительность получения артефакта (разбор → доставка).",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	downloadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ad_download_bytes_total",
		Help: "Общее количество байт, переданных пользователю.",
	})

	activeDownloads = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ad_active_downloads",
		Help: "Количество активных (in-progress) получений артефактов.",
	})
)

// DownloadService — сервис получения и доставки артефактов.
type DownloadService struct {
	fetcher   *ContentFetcher
	validator *IntegrityValidator
	dm        *DeliveryManager
	logger    *slog.Logger
}

// NewDownloadService создаёт сервис получения артефактов.
func NewDownloadService(
	fetcher *ContentFetcher,
	validator *IntegrityValidator,
	dm *DeliveryManager,
	logger *slog.Logger,
) *DownloadService {
	return &DownloadService{
		fetcher:   fetcher,
		validator: validator,
		dm:        dm,
		logger:    logger.With(slog.String("component", "download_service")),
	}
}

// Download выполняет полный read path по wire-дескриптору.
//
// Каждый вызов независим: без общего кэша и дедупликации одинаковых
// запросов. env принадлежит вызову (для HTTP-хоста — ответу запроса).
func (ds *DownloadService) Download(ctx context.Context, env hostenv.Environment, doc model.DescriptorDocument, deliveryMode DeliveryMode) error {
	start := time.Now()
	activeDownloads.Inc()
	defer activeDownloads.Dec()

	// 1. Разбор дескриптора: выбор формата в фиксированном порядке
	descriptor, err := model.ParseDescriptor(doc)
	if err != nil {
		downloadsTotal.WithLabelValues("invalid_descriptor", "none").Inc()
		return err
	}
	variant := descriptorVariant(descriptor)

	// 2. Получение содержимого
	payload, err := ds.fetcher.Fetch(ctx, env, descriptor, deliveryMode)
	if err != nil {
		downloadsTotal.WithLabelValues("fetch_error", variant).Inc()
		return fmt.Errorf("получение артефакта: %w", err)
	}

	// 3. Проверка целостности (предупреждения не прерывают доставку)
	ds.validator.Validate(payload, declaredMIME(descriptor))

	// 4. Передача пользователю
	if err := ds.dm.Deliver(env, payload); err != nil {
		downloadsTotal.WithLabelValues("delivery_error", variant).Inc()
		return err
	}

	downloadsTotal.WithLabelValues("success", variant).Inc()
	downloadDuration.Observe(time.Since(start).Seconds())
	downloadBytesTotal.Add(float64(len(payload.Data)))

	ds.logger.Debug("Артефакт доставлен",
		slog.String("variant", variant),
		slog.String("name", payload.Name),
		slog.Int("bytes", len(payload.Data)),
		slog.Duration("duration", time.Since(start)),
	)

	return nil
}

// descriptorVariant — метка варианта для метрик.
func descriptorVariant(d *model.ArtifactDescriptor) string {
	switch {
	case hasRemote(d):
		return "remote"
	case hasLegacy(d):
		return "legacy"
	case hasInline(d):
		return "inline"
	}
	return "none"
}

// declaredMIME возвращает заявленный MIME-тип дескриптора, если он есть.
func declaredMIME(d *model.ArtifactDescriptor) string {
	if remote, ok := d.Remote(); ok {
		return remote.MimeType
	}
	return ""
}

// NotifyFailure сообщает пользователю о сбое получения в терминах,
// достаточных для диагностики (статус-код, «пустой файл»), без
// внутренних путей и учётных данных хранилища.
func (ds *DownloadService) NotifyFailure(env hostenv.Environment, err error) {
	env.NotifyUser(fmt.Sprintf("Не удалось получить файл: %s", err))
	ds.logger.Warn("Получение артефакта не выполнено", slog.String("error", err.Error()))
}
