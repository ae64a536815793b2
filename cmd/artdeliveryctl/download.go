package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bigkaa/artdelivery/internal/config"
	"github.com/bigkaa/artdelivery/internal/domain/model"
	"github.com/bigkaa/artdelivery/internal/hostenv"
	"github.com/bigkaa/artdelivery/internal/service"
)

// newDownloadCmd — команда download: получение артефакта по дескриптору
// и сохранение в локальную директорию.
func newDownloadCmd(cfg *config.Config, logger *slog.Logger) *cobra.Command {
	var outDir string
	var mode string

	cmd := &cobra.Command{
		Use:   "download <descriptor.json>",
		Short: "Получить артефакт по дескриптору и сохранить на диск",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("чтение дескриптора %s: %w", args[0], err)
			}

			var doc model.DescriptorDocument
			if err := json.Unmarshal(raw, &doc); err != nil {
				return fmt.Errorf("разбор дескриптора: %w", err)
			}

			deliveryMode := service.ModeDownload
			if mode == string(service.ModeView) {
				deliveryMode = service.ModeView
			}

			env := hostenv.NewFSEnvironment(outDir, cfg.FetchTimeout, logger)
			download := service.NewDownloadService(
				service.NewContentFetcher(cfg.LegacyBaseURL, logger),
				service.NewIntegrityValidator(logger),
				service.NewDeliveryManager(cfg.HandleRegistrySize, cfg.HandleReleaseDelay, cfg.HandleTTL, logger),
				logger,
			)

			if err := download.Download(cmd.Context(), env, doc, deliveryMode); err != nil {
				download.NotifyFailure(env, err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "директория для сохранения файла")
	cmd.Flags().StringVar(&mode, "mode", string(service.ModeDownload), "режим получения: download или view")

	return cmd
}
