// Package audit - журнал операций слоя хранения: миграции, сохранения,
// очистки кэша, деградации dual режима. Записи уходят в настраиваемые
// appenders (файл, консоль, таблица БД) синхронно или через буфер.
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Level - уровень детализации записей
type Level int

const (
	// LevelMinimal - только факт операции и статус
	LevelMinimal Level = iota

	// LevelStandard - операция, ресурс, длительность
	LevelStandard

	// LevelFull - полная запись включая метаданные деградаций
	LevelFull
)

// String - строковое представление уровня
func (l Level) String() string {
	switch l {
	case LevelMinimal:
		return "minimal"
	case LevelStandard:
		return "standard"
	case LevelFull:
		return "full"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}

// Operation - тип операции слоя хранения
type Operation string

const (
	OpConnect    Operation = "connect"
	OpDisconnect Operation = "disconnect"
	OpMigrate    Operation = "migrate"
	OpRollback   Operation = "rollback"
	OpBackup     Operation = "backup"
	OpSave       Operation = "save"
	OpSearch     Operation = "search"
	OpCleanup    Operation = "cleanup"
	OpMirror     Operation = "mirror"
	OpExport     Operation = "export"
)

// Status - исход операции
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusPartial Status = "partial"
)

// Entry - одна запись журнала операций
type Entry struct {
	// ID - уникальный идентификатор записи
	ID string `json:"id"`

	// Timestamp - время операции
	Timestamp time.Time `json:"timestamp"`

	// Operation - тип операции
	Operation Operation `json:"operation"`

	// Status - исход
	Status Status `json:"status"`

	// Engine - движок, на котором выполнялась операция
	Engine string `json:"engine,omitempty"`

	// Resource - затронутый ресурс (таблица, скрипт миграции, файл)
	Resource string `json:"resource,omitempty"`

	// RecordsAffected - количество затронутых записей
	RecordsAffected int64 `json:"records_affected,omitempty"`

	// Duration - длительность операции
	Duration time.Duration `json:"duration,omitempty"`

	// ErrorMessage - текст ошибки при Status == failure
	ErrorMessage string `json:"error_message,omitempty"`

	// Metadata - дополнительный контекст операции
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewEntry - создать запись журнала
func NewEntry(operation Operation, status Status) *Entry {
	return &Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Operation: operation,
		Status:    status,
	}
}

// WithEngine - установить движок
func (e *Entry) WithEngine(engine string) *Entry {
	e.Engine = engine
	return e
}

// WithResource - установить ресурс
func (e *Entry) WithResource(resource string) *Entry {
	e.Resource = resource
	return e
}

// WithRecordsAffected - установить количество записей
func (e *Entry) WithRecordsAffected(count int64) *Entry {
	e.RecordsAffected = count
	return e
}

// WithDuration - установить длительность
func (e *Entry) WithDuration(duration time.Duration) *Entry {
	e.Duration = duration
	return e
}

// WithError - установить ошибку; статус переводится в failure
func (e *Entry) WithError(err error) *Entry {
	if err != nil {
		e.ErrorMessage = err.Error()
		e.Status = StatusFailure
	}
	return e
}

// WithMetadata - добавить метаданные
func (e *Entry) WithMetadata(key string, value any) *Entry {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

// ToJSON - сериализовать запись
func (e *Entry) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// String - строковое представление
func (e *Entry) String() string {
	return fmt.Sprintf("[%s] %s %s engine=%s resource=%s records=%d duration=%v",
		e.Timestamp.Format(time.RFC3339),
		e.Operation,
		e.Status,
		e.Engine,
		e.Resource,
		e.RecordsAffected,
		e.Duration,
	)
}

// Clone - копия записи с независимой map метаданных
func (e *Entry) Clone() *Entry {
	clone := *e
	if e.Metadata != nil {
		clone.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

// FilterByLevel - урезать запись до заданного уровня детализации
func (e *Entry) FilterByLevel(level Level) *Entry {
	filtered := e.Clone()

	switch level {
	case LevelMinimal:
		filtered.Metadata = nil
		filtered.RecordsAffected = 0
		filtered.Duration = 0
	case LevelStandard:
		filtered.Metadata = nil
	case LevelFull:
	}

	return filtered
}
