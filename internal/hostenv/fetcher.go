// fetcher.go — HTTP-реализация FetchBytes.
// Один GET без авторизационных заголовков и без автоматических повторов;
// заголовок Content-Type ответа носит рекомендательный характер.
package hostenv

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Fetcher — HTTP-получение байт артефакта.
type Fetcher struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher создаёт HTTP-fetcher c указанным таймаутом запроса.
func NewFetcher(timeout time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
			},
		},
		logger: logger.With(slog.String("component", "fetcher")),
	}
}

// FetchBytes выполняет единственный GET по URL.
// Учётные данные не пробрасываются, повторы не выполняются.
// Не-2xx ответ → *FetchError со статус-кодом.
func (f *Fetcher) FetchBytes(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, "", fmt.Errorf("создание GET-запроса: %w", err)
	}
	req.Header.Set("Accept", "*/*")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.logger.Warn("Не-2xx ответ при получении артефакта",
			slog.String("url", url),
			slog.Int("status", resp.StatusCode),
		)
		return nil, "", &FetchError{StatusCode: resp.StatusCode, URL: url}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("чтение тела ответа: %w", err)
	}

	return data, resp.Header.Get("Content-Type"), nil
}
