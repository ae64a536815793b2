package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bigkaa/artdelivery/internal/config"
	"github.com/bigkaa/artdelivery/internal/domain/model"
	"github.com/bigkaa/artdelivery/internal/service"
	"github.com/bigkaa/artdelivery/internal/storeclient"
)

// newDeleteCmd — команда delete: best-effort удаление артефакта из хранилища.
// Сбой удаления не считается ошибкой команды — только сообщением.
func newDeleteCmd(cfg *config.Config, logger *slog.Logger) *cobra.Command {
	var resourceType string

	cmd := &cobra.Command{
		Use:   "delete <store-id>",
		Short: "Удалить артефакт из удалённого хранилища (best effort)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := model.ResourceTypeDocument
			if resourceType == string(model.ResourceTypeImage) {
				rt = model.ResourceTypeImage
			}

			store := storeclient.New(cfg.StoreBaseURL, cfg.StoreAPIKey, cfg.StoreTimeout, logger)
			uploads := service.NewUploadService(store, cfg.StoreFolder, logger)

			if uploads.Delete(cmd.Context(), args[0], rt) {
				fmt.Fprintln(cmd.OutOrStdout(), "Удалено:", args[0])
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Удаление не подтверждено:", args[0])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&resourceType, "resource-type", string(model.ResourceTypeDocument), "тип ресурса: raw или image")

	return cmd
}
