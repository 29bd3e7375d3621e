package db

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound - запись не найдена (QueryOne / cache miss)
	// Это не исключительная ситуация: вызывающий код проверяет через errors.Is
	ErrNotFound = errors.New("record not found")

	// ErrPoolExhausted - не удалось получить соединение из пула за отведенный таймаут
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrNotConnected - адаптер не подключен к БД
	ErrNotConnected = errors.New("engine not connected")
)

// ValidationError - невалидный JSON payload, запись отклонена ДО обращения к хранилищу
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// ConstraintError - нарушение ограничения целостности (UNIQUE, FOREIGN KEY)
type ConstraintError struct {
	Op  string
	Err error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint violation during %s: %v", e.Op, e.Err)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// ConnectionError - БД недоступна или соединение не установлено
type ConnectionError struct {
	Engine string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s engine failed: %v", e.Engine, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// MigrationFailure - миграционный скрипт завершился ошибкой.
// Прогон прерван, ledger отражает только успешно примененные скрипты.
type MigrationFailure struct {
	Script string
	Err    error
}

func (e *MigrationFailure) Error() string {
	return fmt.Sprintf("migration %s failed: %v", e.Script, e.Err)
}

func (e *MigrationFailure) Unwrap() error {
	return e.Err
}

// ValidateJSON проверяет что payload является валидным round-trippable JSON.
// Возвращает компактную сериализацию или *ValidationError.
// Проверка выполняется до любой записи в хранилище (fail fast).
func ValidateJSON(field string, raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		// Пустое поле нормализуем в пустой объект
		return []byte("{}"), nil
	}

	if !json.Valid(raw) {
		return nil, &ValidationError{Field: field, Reason: "payload is not valid JSON"}
	}

	// Round-trip: parse + compact повторная сериализация
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &ValidationError{Field: field, Reason: err.Error()}
	}

	compact, err := json.Marshal(decoded)
	if err != nil {
		return nil, &ValidationError{Field: field, Reason: err.Error()}
	}

	return compact, nil
}

// MarshalJSONValue сериализует произвольное Go-значение с round-trip проверкой.
// Несериализуемое значение (каналы, функции, циклы) дает *ValidationError.
func MarshalJSONValue(field string, value any) ([]byte, error) {
	if value == nil {
		return []byte("{}"), nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, &ValidationError{Field: field, Reason: err.Error()}
	}

	return ValidateJSON(field, raw)
}
