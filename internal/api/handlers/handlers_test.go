package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/artdelivery/internal/config"
	"github.com/bigkaa/artdelivery/internal/domain/model"
	"github.com/bigkaa/artdelivery/internal/hostenv"
	"github.com/bigkaa/artdelivery/internal/service"
	"github.com/bigkaa/artdelivery/internal/storeclient"
)

// fakeDeps — тестовый источник состояния зависимостей.
type fakeDeps struct {
	health map[string]bool
}

func (d *fakeDeps) Health() map[string]bool { return d.health }

// newTestRouter собирает полный стек API поверх httptest-хранилища.
func newTestRouter(t *testing.T, storeBaseURL string, deps DependencyHealth) chi.Router {
	return newTestRouterSized(t, storeBaseURL, deps, 10<<20)
}

// newTestRouterSized — вариант с ограничением размера загрузки.
func newTestRouterSized(t *testing.T, storeBaseURL string, deps DependencyHealth, maxFileSize int64) chi.Router {
	t.Helper()
	logger := slog.Default()

	cfg := &config.Config{
		StoreFolder:        "artifacts",
		StagingDir:         t.TempDir(),
		MaxFileSize:        maxFileSize,
		HandleReleaseDelay: time.Millisecond,
		HandleTTL:          time.Minute,
		HandleRegistrySize: 16,
		FetchTimeout:       5 * time.Second,
	}

	store := storeclient.New(storeBaseURL, "", 5*time.Second, logger)
	uploads := service.NewUploadService(store, cfg.StoreFolder, logger)

	fetcher := hostenv.NewFetcher(cfg.FetchTimeout, logger)
	download := service.NewDownloadService(
		service.NewContentFetcher("", logger),
		service.NewIntegrityValidator(logger),
		service.NewDeliveryManager(cfg.HandleRegistrySize, cfg.HandleReleaseDelay, cfg.HandleTTL, logger),
		logger,
	)

	h := NewAPIHandler(cfg, NewHealthHandler(deps), uploads, download, fetcher, logger)
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

// multipartBody собирает multipart-тело с полем file.
func multipartBody(t *testing.T, filename, contentType, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if contentType != "" {
		hdr.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("создание multipart-части: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("запись multipart-части: %v", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("запись поля %s: %v", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("закрытие multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

// TestHandleUpload_Success проверяет загрузку документа через API.
func TestHandleUpload_Success(t *testing.T) {
	storeSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/raw/upload" {
			t.Errorf("путь хранилища = %q, ожидался /api/v1/raw/upload", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{
			"store_id": "artifacts/abc123",
			"resource_type": "raw",
			"delivery_url": "https://store.example.com/raw/upload/artifacts/abc123.pdf",
			"bytes": 8
		}`)
	}))
	defer storeSrv.Close()

	router := newTestRouter(t, storeSrv.URL, nil)

	body, ct := multipartBody(t, "отчёт.pdf", "application/pdf", "%PDF-1.4", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/artifacts", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("статус = %d, ожидался 201: %s", rec.Code, rec.Body.String())
	}

	var result model.UploadResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("декодирование ответа: %v", err)
	}
	if result.StoreID != "artifacts/abc123" {
		t.Errorf("StoreID = %q", result.StoreID)
	}
	if result.ResourceType != model.ResourceTypeDocument {
		t.Errorf("ResourceType = %q, ожидался raw", result.ResourceType)
	}
}

// TestHandleUpload_MissingFile проверяет 400 при отсутствии поля file.
func TestHandleUpload_MissingFile(t *testing.T) {
	router := newTestRouter(t, "http://127.0.0.1:1", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/artifacts", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("статус = %d, ожидался 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "VALIDATION_ERROR") {
		t.Errorf("тело ответа: %s", rec.Body.String())
	}
}

// TestHandleUpload_StoreError проверяет 502 при отказе хранилища.
func TestHandleUpload_StoreError(t *testing.T) {
	storeSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer storeSrv.Close()

	router := newTestRouter(t, storeSrv.URL, nil)

	body, ct := multipartBody(t, "отчёт.pdf", "application/pdf", "%PDF-1.4", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/artifacts", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("статус = %d, ожидался 502: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "STORE_UPLOAD_FAILED") {
		t.Errorf("тело ответа: %s", rec.Body.String())
	}
}

// TestHandleUpload_FileTooLarge проверяет 413 при превышении
// максимального размера загрузки.
func TestHandleUpload_FileTooLarge(t *testing.T) {
	router := newTestRouterSized(t, "http://127.0.0.1:1", nil, 64)

	body, ct := multipartBody(t, "большой.pdf", "application/pdf", strings.Repeat("x", 1024), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/artifacts", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("статус = %d, ожидался 413: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "FILE_TOO_LARGE") {
		t.Errorf("тело ответа: %s", rec.Body.String())
	}
}

// TestUploadResolveRoundTrip проверяет полный цикл: загрузка документа,
// затем получение по сохранённому дескриптору возвращает содержимое
// с сигнатурой PDF в первых четырёх байтах.
func TestUploadResolveRoundTrip(t *testing.T) {
	const content = "%PDF-1.4\nкруговой тест"

	// Хранилище: put сохраняет байты, GET по delivery URL отдаёт их обратно
	var stored []byte
	var storeSrv *httptest.Server
	storeSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/raw/upload":
			f, _, err := r.FormFile("file")
			if err != nil {
				t.Errorf("multipart-поле file: %v", err)
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}
			defer f.Close()
			stored, _ = io.ReadAll(f)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{
				"store_id": "artifacts/rt1",
				"resource_type": "raw",
				"delivery_url": "%s/raw/upload/artifacts/rt1.pdf",
				"bytes": %d
			}`, storeSrv.URL, len(stored))
		case r.Method == http.MethodGet:
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write(stored)
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	defer storeSrv.Close()

	router := newTestRouter(t, storeSrv.URL, nil)

	// 1. Загрузка документа
	body, ct := multipartBody(t, "отчёт.pdf", "application/pdf", content, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/artifacts", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("статус загрузки = %d: %s", rec.Code, rec.Body.String())
	}

	var result model.UploadResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("декодирование результата загрузки: %v", err)
	}
	if strings.Contains(result.DeliveryURL, "/image/upload/") {
		t.Errorf("delivery URL документа содержит image-сегмент: %q", result.DeliveryURL)
	}

	// 2. Получение по дескриптору, созданному из результата загрузки
	doc := fmt.Sprintf(`{"store_id": %q, "delivery_url": %q, "original_name": "отчёт.pdf", "mime_type": "application/pdf"}`,
		result.StoreID, result.DeliveryURL)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/artifacts/resolve", strings.NewReader(doc))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("статус получения = %d: %s", rec.Code, rec.Body.String())
	}

	delivered := rec.Body.Bytes()
	if len(delivered) < 4 || string(delivered[:4]) != "%PDF" {
		t.Errorf("первые байты = %q, ожидалась сигнатура %%PDF", delivered[:min(4, len(delivered))])
	}
	if string(delivered) != content {
		t.Errorf("содержимое изменилось при круговом цикле")
	}
}

// TestHandleResolve_Inline проверяет доставку inline-дескриптора
// в ответе запроса.
func TestHandleResolve_Inline(t *testing.T) {
	router := newTestRouter(t, "http://127.0.0.1:1", nil)

	doc := `{"data_uri": "data:application/pdf;base64,JVBERi0xLjQ=", "display_name": "встроенный.pdf"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/artifacts/resolve", strings.NewReader(doc))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "%PDF-1.4" {
		t.Errorf("тело = %q, ожидался %%PDF-1.4", rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "встроенный.pdf") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
}

// TestHandleResolve_InvalidDescriptor проверяет 422 на пустом дескрипторе.
func TestHandleResolve_InvalidDescriptor(t *testing.T) {
	router := newTestRouter(t, "http://127.0.0.1:1", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/artifacts/resolve", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("статус = %d, ожидался 422", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "INVALID_DESCRIPTOR") {
		t.Errorf("тело ответа: %s", rec.Body.String())
	}
}

// TestHandleResolve_RemoteNotFound проверяет 404 при отсутствии
// артефакта в хранилище.
func TestHandleResolve_RemoteNotFound(t *testing.T) {
	contentSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer contentSrv.Close()

	router := newTestRouter(t, "http://127.0.0.1:1", nil)

	doc := fmt.Sprintf(`{"delivery_url": "%s/raw/upload/artifacts/нет.pdf"}`, contentSrv.URL)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/artifacts/resolve", strings.NewReader(doc))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("статус = %d, ожидался 404: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "NOT_FOUND") {
		t.Errorf("тело ответа: %s", rec.Body.String())
	}
}

// TestHandleResolve_BadJSON проверяет 400 на некорректном JSON.
func TestHandleResolve_BadJSON(t *testing.T) {
	router := newTestRouter(t, "http://127.0.0.1:1", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/artifacts/resolve", strings.NewReader(`не json`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("статус = %d, ожидался 400", rec.Code)
	}
}

// TestHandleDelete проверяет best-effort удаление: всегда 202,
// подтверждение в теле ответа.
func TestHandleDelete(t *testing.T) {
	var destroyPath string
	storeSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		destroyPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"result": "ok"}`)
	}))
	defer storeSrv.Close()

	router := newTestRouter(t, storeSrv.URL, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/artifacts/artifacts/abc123", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("статус = %d, ожидался 202", rec.Code)
	}
	if destroyPath != "/api/v1/raw/destroy" {
		t.Errorf("путь destroy = %q", destroyPath)
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("декодирование ответа: %v", err)
	}
	if resp["store_id"] != "artifacts/abc123" {
		t.Errorf("store_id = %v", resp["store_id"])
	}
	if resp["deleted"] != true {
		t.Errorf("deleted = %v, ожидался true", resp["deleted"])
	}
}

// TestHandleDelete_StoreUnavailable проверяет 202 с deleted=false
// при недоступном хранилище.
func TestHandleDelete_StoreUnavailable(t *testing.T) {
	router := newTestRouter(t, "http://127.0.0.1:1", nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/artifacts/artifacts/abc123", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("статус = %d, ожидался 202", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"deleted":false`) {
		t.Errorf("тело ответа: %s", rec.Body.String())
	}
}

// TestHealthLive проверяет liveness probe.
func TestHealthLive(t *testing.T) {
	router := newTestRouter(t, "http://127.0.0.1:1", nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("статус = %d, ожидался 200", rec.Code)
	}
}

// TestHealthReady проверяет readiness probe по состоянию зависимостей.
func TestHealthReady(t *testing.T) {
	tests := []struct {
		name       string
		deps       DependencyHealth
		wantStatus int
	}{
		{"все зависимости доступны", &fakeDeps{health: map[string]bool{"remote-store": true}}, http.StatusOK},
		{"хранилище недоступно", &fakeDeps{health: map[string]bool{"remote-store": false}}, http.StatusServiceUnavailable},
		{"legacy недоступен — не критично", &fakeDeps{health: map[string]bool{"remote-store": true, "legacy-file-server": false}}, http.StatusOK},
		{"источник не задан", nil, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, "http://127.0.0.1:1", tt.deps)

			req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("статус = %d, ожидался %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}
