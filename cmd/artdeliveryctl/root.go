package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bigkaa/artdelivery/internal/config"
)

func newRootCmd(cfg *config.Config, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artdeliveryctl",
		Short: "CLI-хост Artifact Delivery Module: загрузка и получение артефактов",
	}

	cmd.Version = config.Version

	cmd.AddCommand(
		newUploadCmd(cfg, logger),
		newDownloadCmd(cfg, logger),
		newDeleteCmd(cfg, logger),
	)

	return cmd
}
