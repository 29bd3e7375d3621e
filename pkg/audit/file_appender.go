package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileAppender - JSON-lines журнал в файле с ротацией по размеру
type FileAppender struct {
	mu          sync.Mutex
	file        *os.File
	filePath    string
	maxSize     int64
	maxBackups  int
	currentSize int64
	level       Level
}

// FileAppenderConfig - конфигурация file appender
type FileAppenderConfig struct {
	FilePath   string
	MaxSizeMB  int64 // 0 = 100 MB
	MaxBackups int   // 0 = 5 файлов
	Level      Level
}

// NewFileAppender - создать file appender
func NewFileAppender(config FileAppenderConfig) (*FileAppender, error) {
	dir := filepath.Dir(config.FilePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit file: %w", err)
	}

	fileInfo, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	maxSize := config.MaxSizeMB
	if maxSize == 0 {
		maxSize = 100
	}
	maxBackups := config.MaxBackups
	if maxBackups == 0 {
		maxBackups = 5
	}

	return &FileAppender{
		file:        file,
		filePath:    config.FilePath,
		maxSize:     maxSize * 1024 * 1024,
		maxBackups:  maxBackups,
		currentSize: fileInfo.Size(),
		level:       config.Level,
	}, nil
}

// Append - дописать entry одной JSON-строкой
func (fa *FileAppender) Append(ctx context.Context, entry *Entry) error {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	data, err := entry.FilterByLevel(fa.level).ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	data = append(data, '\n')

	if fa.currentSize+int64(len(data)) > fa.maxSize {
		if err := fa.rotate(); err != nil {
			return fmt.Errorf("failed to rotate file: %w", err)
		}
	}

	n, err := fa.file.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}

	fa.currentSize += int64(n)
	return nil
}

// rotate - ротация: текущий файл становится .1, старые сдвигаются
func (fa *FileAppender) rotate() error {
	if err := fa.file.Close(); err != nil {
		return err
	}

	for i := fa.maxBackups - 1; i > 0; i-- {
		oldPath := fmt.Sprintf("%s.%d", fa.filePath, i)
		newPath := fmt.Sprintf("%s.%d", fa.filePath, i+1)
		if _, err := os.Stat(oldPath); err == nil {
			os.Rename(oldPath, newPath)
		}
	}

	if err := os.Rename(fa.filePath, fa.filePath+".1"); err != nil {
		return err
	}

	file, err := os.OpenFile(fa.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	fa.file = file
	fa.currentSize = 0
	return nil
}

// Flush - сбросить буфер ОС на диск
func (fa *FileAppender) Flush() error {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	if fa.file != nil {
		return fa.file.Sync()
	}
	return nil
}

// Close - закрыть файл
func (fa *FileAppender) Close() error {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	if fa.file != nil {
		return fa.file.Close()
	}
	return nil
}

// FilePath - путь к файлу журнала
func (fa *FileAppender) FilePath() string {
	return fa.filePath
}

// ConsoleAppender - вывод записей в stdout, неудачи в stderr
type ConsoleAppender struct {
	level Level
}

// NewConsoleAppender - создать console appender
func NewConsoleAppender(level Level) *ConsoleAppender {
	return &ConsoleAppender{level: level}
}

// Append - вывести запись
func (ca *ConsoleAppender) Append(ctx context.Context, entry *Entry) error {
	output := entry.FilterByLevel(ca.level).String()
	if entry.Status == StatusFailure {
		fmt.Fprintln(os.Stderr, output)
	} else {
		fmt.Println(output)
	}
	return nil
}

// Close - noop
func (ca *ConsoleAppender) Close() error {
	return nil
}

// NullAppender - пустой appender (для тестов)
type NullAppender struct{}

// NewNullAppender - создать null appender
func NewNullAppender() *NullAppender {
	return &NullAppender{}
}

// Append - ничего не делает
func (na *NullAppender) Append(ctx context.Context, entry *Entry) error {
	return nil
}

// Close - ничего не делает
func (na *NullAppender) Close() error {
	return nil
}
