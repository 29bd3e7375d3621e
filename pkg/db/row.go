package db

import (
	"fmt"
	"strconv"
	"time"
)

// Хелперы доступа к значениям Row.
// Движки возвращают разные Go-типы для одинаковых колонок:
// SQLite отдает int64/float64/string, pgx - родные типы включая
// time.Time и bool. Хелперы терпимы к обоим представлениям.

// AsString возвращает строковое значение колонки
func (r Row) AsString(column string) string {
	v, ok := r[column]
	if !ok || v == nil {
		return ""
	}
	switch value := v.(type) {
	case string:
		return value
	case []byte:
		return string(value)
	case time.Time:
		return FormatTime(value)
	default:
		return fmt.Sprintf("%v", value)
	}
}

// AsInt64 возвращает целочисленное значение колонки
func (r Row) AsInt64(column string) int64 {
	v, ok := r[column]
	if !ok || v == nil {
		return 0
	}
	switch value := v.(type) {
	case int64:
		return value
	case int:
		return int64(value)
	case int32:
		return int64(value)
	case float64:
		return int64(value)
	case bool:
		if value {
			return 1
		}
		return 0
	case string:
		n, _ := strconv.ParseInt(value, 10, 64)
		return n
	case []byte:
		n, _ := strconv.ParseInt(string(value), 10, 64)
		return n
	default:
		return 0
	}
}

// AsFloat64 возвращает вещественное значение колонки
func (r Row) AsFloat64(column string) float64 {
	v, ok := r[column]
	if !ok || v == nil {
		return 0
	}
	switch value := v.(type) {
	case float64:
		return value
	case float32:
		return float64(value)
	case int64:
		return float64(value)
	case int:
		return float64(value)
	case string:
		f, _ := strconv.ParseFloat(value, 64)
		return f
	case []byte:
		f, _ := strconv.ParseFloat(string(value), 64)
		return f
	default:
		return 0
	}
}

// AsBool возвращает булево значение колонки
// (SQLite хранит INTEGER 0/1, PostgreSQL - родной BOOLEAN)
func (r Row) AsBool(column string) bool {
	v, ok := r[column]
	if !ok || v == nil {
		return false
	}
	switch value := v.(type) {
	case bool:
		return value
	case int64:
		return value != 0
	case int:
		return value != 0
	case float64:
		return value != 0
	case string:
		return value == "1" || value == "true" || value == "t"
	default:
		return false
	}
}

// AsBytes возвращает значение колонки как байты
func (r Row) AsBytes(column string) []byte {
	v, ok := r[column]
	if !ok || v == nil {
		return nil
	}
	switch value := v.(type) {
	case []byte:
		return value
	case string:
		return []byte(value)
	default:
		return nil
	}
}

// временные форматы, встречающиеся при чтении из обоих движков
var timeLayouts = []string{
	TimeFormat,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// AsTime возвращает временную метку колонки.
// Нулевое время означает отсутствующее или нераспознанное значение
func (r Row) AsTime(column string) time.Time {
	v, ok := r[column]
	if !ok || v == nil {
		return time.Time{}
	}
	switch value := v.(type) {
	case time.Time:
		return value
	case string:
		return parseTime(value)
	case []byte:
		return parseTime(string(value))
	default:
		return time.Time{}
	}
}

func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
