package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bigkaa/artdelivery/internal/classify"
	"github.com/bigkaa/artdelivery/internal/config"
	"github.com/bigkaa/artdelivery/internal/service"
	"github.com/bigkaa/artdelivery/internal/staging"
	"github.com/bigkaa/artdelivery/internal/storeclient"
)

// newUploadCmd — команда upload: загрузка локального файла в хранилище.
// Файл копируется в staging-директорию; staged-копия удаляется на любом
// исходе, оригинал не трогается.
func newUploadCmd(cfg *config.Config, logger *slog.Logger) *cobra.Command {
	var mimeType string
	var hint string

	cmd := &cobra.Command{
		Use:   "upload <файл>",
		Short: "Загрузить файл в удалённое хранилище",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("открытие файла %s: %w", path, err)
			}
			defer f.Close()

			guard, err := staging.Stage(cfg.StagingDir, f, path, logger)
			if err != nil {
				return fmt.Errorf("staging файла: %w", err)
			}
			defer guard.Release()

			store := storeclient.New(cfg.StoreBaseURL, cfg.StoreAPIKey, cfg.StoreTimeout, logger)
			uploads := service.NewUploadService(store, cfg.StoreFolder, logger)

			result, err := uploads.Upload(cmd.Context(), guard.Path(), path, mimeType, classify.Hint(hint))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&mimeType, "mime", "", "заявленный MIME-тип (по умолчанию — по расширению)")
	cmd.Flags().StringVar(&hint, "hint", "", "подсказка классификатору: image или document")

	return cmd
}
