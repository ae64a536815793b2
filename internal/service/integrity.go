// integrity.go — проверка целостности полученного содержимого.
// Первые байты сверяются с сигнатурой ожидаемого формата; расхождение —
// предупреждение (лог + метрика), не отказ: часть хранилищ теряет или
// меняет ведущие байты при передаче. Рекомендательный MIME-тип payload
// при generic/пустом значении приводится к ожидаемому.
package service

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// pdfSignature — сигнатура PDF: первые четыре байта файла.
var pdfSignature = []byte("%PDF")

// genericContentTypes — рекомендательные значения Content-Type,
// подлежащие замене на ожидаемый тип.
var genericContentTypes = map[string]struct{}{
	"":                         {},
	"application/octet-stream": {},
	"binary/octet-stream":      {},
}

// Метрика предупреждений валидации.
var validationWarningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ad_validation_warnings_total",
	Help: "Количество расхождений сигнатуры содержимого с ожидаемым типом.",
}, []string{"expected"})

// IntegrityValidator — валидация содержимого против ожидаемого типа.
type IntegrityValidator struct {
	logger *slog.Logger
}

// NewIntegrityValidator создаёт валидатор.
func NewIntegrityValidator(logger *slog.Logger) *IntegrityValidator {
	return &IntegrityValidator{
		logger: logger.With(slog.String("component", "integrity_validator")),
	}
}

// Validate сверяет payload с ожидаемым типом, выведенным из расширения
// имени файла или заявленного MIME-типа.
//
// Для документов: первые четыре байта не равны сигнатуре PDF →
// предупреждение, доставка продолжается. MIME-тип payload приводится
// к ожидаемому, если вернувшееся значение generic или пустое.
// Payload модифицируется на месте (ContentType), данные не меняются.
func (v *IntegrityValidator) Validate(p *Payload, declaredMIME string) {
	expected := expectedMIME(p.Name, declaredMIME)
	if expected == "" {
		return
	}

	if expected == "application/pdf" && !bytes.HasPrefix(p.Data, pdfSignature) {
		validationWarningsTotal.WithLabelValues("application/pdf").Inc()
		v.logger.Warn("Сигнатура содержимого не совпадает с ожидаемым типом",
			slog.String("name", p.Name),
			slog.String("expected", expected),
			slog.Int("payload_bytes", len(p.Data)),
		)
	}

	// Рекомендательный Content-Type не считается истинным:
	// generic/пустое значение заменяется ожидаемым типом
	if _, generic := genericContentTypes[normalizeContentType(p.ContentType)]; generic {
		p.ContentType = expected
	}
}

// expectedMIME выводит ожидаемый MIME-тип из заявленного значения
// или расширения имени файла.
func expectedMIME(filename, declaredMIME string) string {
	if mt := normalizeContentType(declaredMIME); mt != "" && mt != "application/octet-stream" {
		return mt
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	}
	return ""
}

// normalizeContentType отбрасывает параметры и приводит регистр.
func normalizeContentType(ct string) string {
	if idx := strings.Index(ct, ";"); idx != -1 {
		ct = ct[:idx]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
