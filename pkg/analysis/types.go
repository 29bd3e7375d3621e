// Package analysis реализует репозиторий результатов анализа тендеров:
// upsert-хранение результатов с shadow-индексом полнотекстового поиска,
// TTL-кэш промежуточных данных извлечения (data pool) и append-only
// журнал метрик вызовов внешних API со статистикой затрат.
//
// Все сущности пакета принадлежат репозиторию: никакой другой
// компонент не мутирует их таблицы напрямую.
package analysis

import (
	"encoding/json"
	"strings"
	"time"
)

// Status - стадия жизненного цикла анализа
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Result - результат одного анализа. Одна строка на анализ:
// создается при первом сохранении, при повторном анализе обновляется
// по месту (upsert по ID). Физически не удаляется - политика
// удаления лежит вне этого слоя
type Result struct {
	ID       string `json:"id"`
	TenderID string `json:"tender_id,omitempty"`
	Status   Status `json:"status"`

	// Денормализованные поля для индексируемых выборок
	Institution  string  `json:"institution,omitempty"`
	BudgetAmount float64 `json:"budget_amount,omitempty"`
	PersonCount  int     `json:"person_count,omitempty"`
	DurationDays int     `json:"duration_days,omitempty"`
	TenderType   string  `json:"tender_type,omitempty"`

	ContextualScore  float64 `json:"contextual_score,omitempty"`
	MarketRiskLevel  string  `json:"market_risk_level,omitempty"`
	DataQualityScore float64 `json:"data_quality_score,omitempty"`

	// JSON-payload поля. Перед записью проходят round-trip валидацию:
	// невалидный JSON отклоняется до касания хранилища
	ExtractedFields    json.RawMessage `json:"extracted_fields,omitempty"`
	ContextualAnalysis json.RawMessage `json:"contextual_analysis,omitempty"`
	MarketAnalysis     json.RawMessage `json:"market_analysis,omitempty"`
	Validation         json.RawMessage `json:"validation,omitempty"`

	ProcessingTimeMS int64   `json:"processing_time_ms,omitempty"`
	TokensUsed       int64   `json:"tokens_used,omitempty"`
	CostUSD          float64 `json:"cost_usd,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`

	// DataPool - текстовое содержимое для shadow-индекса поиска.
	// Не хранится в строке результата; nil оставляет индекс как есть
	DataPool *DataPool `json:"data_pool,omitempty"`
}

// DocumentInfo - исходный документ в составе data pool
type DocumentInfo struct {
	DocID     string `json:"doc_id"`
	TypeGuess string `json:"type_guess,omitempty"`
	Hash      string `json:"hash,omitempty"`
	Name      string `json:"name,omitempty"`
	Size      int64  `json:"size,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// TextBlock - извлеченный текстовый блок с провенансом
type TextBlock struct {
	BlockID    string  `json:"block_id"`
	Text       string  `json:"text"`
	DocID      string  `json:"doc_id"`
	Page       int     `json:"page,omitempty"`
	LineStart  int     `json:"line_start,omitempty"`
	LineEnd    int     `json:"line_end,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// ExtractedTable - извлеченная таблица
type ExtractedTable struct {
	TableID string     `json:"table_id"`
	DocID   string     `json:"doc_id"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	Page    int        `json:"page,omitempty"`
	Title   string     `json:"title,omitempty"`
	Context string     `json:"context,omitempty"`
}

// ExtractedDate - извлеченная дата с привязкой к источнику
type ExtractedDate struct {
	Kind       string  `json:"kind"`
	Value      string  `json:"value"`
	Source     string  `json:"source"`
	Original   string  `json:"original,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// ExtractedAmount - извлеченная сумма или количество
type ExtractedAmount struct {
	Kind     string  `json:"kind"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit,omitempty"`
	Currency string  `json:"currency,omitempty"`
	Source   string  `json:"source"`
	Original string  `json:"original,omitempty"`
}

// ExtractedEntity - извлеченная именованная сущность
type ExtractedEntity struct {
	Kind       string  `json:"kind"`
	Value      string  `json:"value"`
	Normalized string  `json:"normalized,omitempty"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence,omitempty"`
}

// PoolMetadata - сводка процесса извлечения
type PoolMetadata struct {
	TotalPages        int      `json:"total_pages"`
	TotalWords        int      `json:"total_words"`
	ExtractionTimeMS  int64    `json:"extraction_time_ms"`
	OCRUsed           bool     `json:"ocr_used"`
	LanguagesDetected []string `json:"languages_detected,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
}

// DataPool - крупный промежуточный результат извлечения документов.
// Живет в кэше с абсолютным сроком годности: чтение после expires_at
// ведет себя как отсутствие записи
type DataPool struct {
	Documents  []DocumentInfo    `json:"documents"`
	TextBlocks []TextBlock       `json:"textBlocks"`
	Tables     []ExtractedTable  `json:"tables"`
	Dates      []ExtractedDate   `json:"dates"`
	Amounts    []ExtractedAmount `json:"amounts"`
	Entities   []ExtractedEntity `json:"entities"`
	RawText    string            `json:"rawText,omitempty"`
	Metadata   PoolMetadata      `json:"metadata"`
}

// TextContent склеивает текстовые блоки в плоский blob для
// полнотекстового индекса
func (p *DataPool) TextContent() string {
	if p == nil || len(p.TextBlocks) == 0 {
		return ""
	}
	parts := make([]string, 0, len(p.TextBlocks))
	for _, block := range p.TextBlocks {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, " ")
}

// APIMetric - запись о единичном вызове внешнего API.
// Append-only: никогда не обновляется и не удаляется этим слоем
type APIMetric struct {
	Endpoint     string  `json:"endpoint"`
	Model        string  `json:"model,omitempty"`
	InputTokens  int64   `json:"input_tokens,omitempty"`
	OutputTokens int64   `json:"output_tokens,omitempty"`
	TotalTokens  int64   `json:"total_tokens,omitempty"`
	CostUSD      float64 `json:"cost_usd,omitempty"`
	DurationMS   int64   `json:"duration_ms,omitempty"`
	Success      bool    `json:"success"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

// CostBucket - агрегат затрат по одному срезу
type CostBucket struct {
	Cost     float64 `json:"cost"`
	Requests int64   `json:"requests"`
}

// CostStats - агрегированная статистика затрат за trailing-окно.
// Учитываются только успешные вызовы
type CostStats struct {
	TotalCost         float64               `json:"total_cost"`
	TotalRequests     int64                 `json:"total_requests"`
	AvgCostPerRequest float64               `json:"avg_cost_per_request"`
	ByEndpoint        map[string]CostBucket `json:"by_endpoint"`
	ByModel           map[string]CostBucket `json:"by_model"`
}
