// main.go — точка входа HTTP-сервиса Artifact Delivery Module.
package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/bigkaa/artdelivery/internal/api/handlers"
	"github.com/bigkaa/artdelivery/internal/api/middleware"
	"github.com/bigkaa/artdelivery/internal/config"
	"github.com/bigkaa/artdelivery/internal/hostenv"
	"github.com/bigkaa/artdelivery/internal/server"
	"github.com/bigkaa/artdelivery/internal/service"
	"github.com/bigkaa/artdelivery/internal/storeclient"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	// 2. Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Artifact Delivery Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("store", cfg.StoreBaseURL),
	)

	// 3. Адаптер удалённого хранилища
	store := storeclient.New(cfg.StoreBaseURL, cfg.StoreAPIKey, cfg.StoreTimeout, logger)

	// 4. Сервисы write и read path
	uploads := service.NewUploadService(store, cfg.StoreFolder, logger)
	fetcher := hostenv.NewFetcher(cfg.FetchTimeout, logger)
	download := service.NewDownloadService(
		service.NewContentFetcher(cfg.LegacyBaseURL, logger),
		service.NewIntegrityValidator(logger),
		service.NewDeliveryManager(cfg.HandleRegistrySize, cfg.HandleReleaseDelay, cfg.HandleTTL, logger),
		logger,
	)

	// 5. Мониторинг зависимостей (topologymetrics)
	deps, err := service.NewDephealthService(
		"artdelivery",
		cfg.DephealthGroup,
		cfg.StoreBaseURL,
		cfg.LegacyBaseURL,
		cfg.DephealthCheckInterval,
		cfg.DephealthIsEntry,
		logger,
	)
	if err != nil {
		log.Fatalf("Ошибка инициализации dephealth: %v", err)
	}

	ctx := context.Background()
	if err := deps.Start(ctx); err != nil {
		log.Fatalf("Ошибка запуска dephealth: %v", err)
	}
	defer deps.Stop()

	// 6. API handler
	healthHandler := handlers.NewHealthHandler(deps)
	apiHandler := handlers.NewAPIHandler(cfg, healthHandler, uploads, download, fetcher, logger)

	// 7. HTTP-сервер с middleware логирования и метрик
	srv := server.New(cfg, logger, apiHandler,
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	)

	// 8. Запуск сервера (блокирующий вызов с graceful shutdown)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		log.Fatalf("Сервер завершился с ошибкой: %v", err)
	}

	logger.Info("Artifact Delivery Module остановлен")
}
