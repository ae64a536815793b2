// main.go — CLI-хост Artifact Delivery Module.
// Те же сервисы, что и у HTTP-сервиса, но host-окружение доставки —
// прямая запись файла на диск (hostenv.FSEnvironment).
package main

import (
	"fmt"
	"os"

	"github.com/bigkaa/artdelivery/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Ошибка конфигурации:", err)
		os.Exit(1)
	}

	logger := config.SetupLogger(cfg)

	if err := newRootCmd(cfg, logger).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
