// Пакет storeclient — HTTP-адаптер удалённого object store.
// Контракт: put(файл, опции) → {id, url, resourceType, byteSize},
// delete(id, resourceType) — best effort. Транспорт и авторизация
// конкретного хранилища скрыты за этим адаптером.
package storeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/artdelivery/internal/domain/model"
)

// Prometheus-метрики адаптера хранилища.
var (
	storePutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ad_store_puts_total",
		Help: "Общее количество put-запросов к удалённому хранилищу (по статусу).",
	}, []string{"status"})

	storeDeleteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ad_store_delete_failures_total",
		Help: "Количество неудачных best-effort delete-запросов к хранилищу.",
	})

	resourceTypeMismatchTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ad_store_resource_type_mismatch_total",
		Help: "Количество ответов put с типом ресурса, отличным от запрошенного.",
	})
)

// UploadError — ошибка put-запроса к хранилищу (транспорт/авторизация/квота).
type UploadError struct {
	// StatusCode — HTTP-статус ответа хранилища (0 при транспортной ошибке)
	StatusCode int
	// Message — диагностическое сообщение без учётных данных хранилища
	Message string
}

func (e *UploadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("put в хранилище отклонён (статус %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("put в хранилище не выполнен: %s", e.Message)
}

// putResponse — ответ хранилища на put-запрос.
type putResponse struct {
	StoreID      string `json:"store_id"`
	ResourceType string `json:"resource_type"`
	DeliveryURL  string `json:"delivery_url"`
	Bytes        int64  `json:"bytes"`
}

// Client — HTTP-клиент удалённого object store.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт адаптер хранилища.
// baseURL — базовый URL API хранилища, apiKey — ключ API
// (пустая строка — без авторизации, например для локального стенда).
func New(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
			},
		},
		logger: logger.With(slog.String("component", "store_client")),
	}
}

// Put загружает локальный файл в хранилище.
//
// Формат запроса: POST {base}/api/v1/{resourceType}/upload,
// multipart/form-data: file + поля PutOptions.FormValues.
//
// После успешного put адаптер сверяет тип ресурса из ответа с
// запрошенным; расхождение не фатально (URL нормализуется вызывающим
// кодом), но логируется и учитывается в метриках.
func (c *Client) Put(ctx context.Context, localPath string, opts PutOptions) (*model.UploadResult, error) {
	f, err := os.Open(localPath)
	if err != nil {
		storePutsTotal.WithLabelValues("local_error").Inc()
		return nil, &UploadError{Message: fmt.Sprintf("открытие staged-файла: %s", err)}
	}
	defer f.Close()

	body, contentType, err := buildPutBody(f, filepath.Base(localPath), opts)
	if err != nil {
		storePutsTotal.WithLabelValues("local_error").Inc()
		return nil, &UploadError{Message: err.Error()}
	}

	reqURL := fmt.Sprintf("%s/api/v1/%s/upload", c.baseURL, opts.resourceType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		return nil, &UploadError{Message: fmt.Sprintf("создание put-запроса: %s", err)}
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		storePutsTotal.WithLabelValues("transport_error").Inc()
		return nil, &UploadError{Message: fmt.Sprintf("запрос к хранилищу: %s", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		storePutsTotal.WithLabelValues("store_error").Inc()
		return nil, &UploadError{
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp.Body),
		}
	}

	var pr putResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		storePutsTotal.WithLabelValues("store_error").Inc()
		return nil, &UploadError{Message: fmt.Sprintf("разбор ответа хранилища: %s", err)}
	}

	reported := model.ResourceType(pr.ResourceType)

	// Сверка типа ресурса: ответ хранилища может не отражать запрошенный тип
	if opts.resourceType != model.ResourceTypeAuto && reported != opts.resourceType {
		resourceTypeMismatchTotal.Inc()
		c.logger.Warn("Хранилище вернуло неожиданный тип ресурса",
			slog.String("store_id", pr.StoreID),
			slog.String("requested", string(opts.resourceType)),
			slog.String("reported", pr.ResourceType),
		)
	}

	storePutsTotal.WithLabelValues("success").Inc()
	c.logger.Debug("Put выполнен",
		slog.String("store_id", pr.StoreID),
		slog.String("resource_type", pr.ResourceType),
		slog.Int64("bytes", pr.Bytes),
	)

	return &model.UploadResult{
		StoreID:      pr.StoreID,
		DeliveryURL:  pr.DeliveryURL,
		ResourceType: reported,
		ByteSize:     pr.Bytes,
	}, nil
}

// Delete удаляет объект из хранилища. Best effort: ошибки логируются
// и не поднимаются — сбой delete не должен блокировать деструктивные
// операции приложения (например, удаление записи вместе с файлом).
// Возвращает true при подтверждённом удалении (наблюдаемость для тестов
// и вызывающего кода).
func (c *Client) Delete(ctx context.Context, storeID string, rt model.ResourceType) bool {
	reqURL := fmt.Sprintf("%s/api/v1/%s/destroy", c.baseURL, rt)

	form := strings.NewReader("store_id=" + storeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, form)
	if err != nil {
		c.deleteFailed(storeID, err.Error())
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.deleteFailed(storeID, err.Error())
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.deleteFailed(storeID, fmt.Sprintf("статус %d", resp.StatusCode))
		return false
	}

	c.logger.Debug("Объект удалён из хранилища", slog.String("store_id", storeID))
	return true
}

// deleteFailed логирует неудачный delete и обновляет метрику.
func (c *Client) deleteFailed(storeID, reason string) {
	storeDeleteFailuresTotal.Inc()
	c.logger.Warn("Best-effort delete не выполнен",
		slog.String("store_id", storeID),
		slog.String("reason", reason),
	)
}

// buildPutBody собирает multipart-тело put-запроса.
// Тело буферизуется целиком: хранилищу нужен Content-Length.
func buildPutBody(file io.Reader, filename string, opts PutOptions) (io.Reader, string, error) {
	var buf strings.Builder
	w := multipart.NewWriter(&buf)

	for key, vals := range opts.FormValues() {
		for _, v := range vals {
			if err := w.WriteField(key, v); err != nil {
				return nil, "", fmt.Errorf("поле формы %s: %w", key, err)
			}
		}
	}

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("создание file-части: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("чтение staged-файла: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("закрытие multipart: %w", err)
	}

	return strings.NewReader(buf.String()), w.FormDataContentType(), nil
}

// readErrorMessage извлекает краткое сообщение из тела ошибки хранилища.
// Тело обрезается: в ответ пользователю не должны попадать внутренние
// пути и учётные данные хранилища.
func readErrorMessage(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 256))
	if err != nil || len(b) == 0 {
		return "хранилище не вернуло описание ошибки"
	}
	return strings.TrimSpace(string(b))
}
