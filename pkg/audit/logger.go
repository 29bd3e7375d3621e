package audit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Logger - интерфейс журнала операций
type Logger interface {
	Log(ctx context.Context, entry *Entry) error
	LogSuccess(ctx context.Context, operation Operation) *Entry
	LogFailure(ctx context.Context, operation Operation, err error) *Entry
	Flush() error
	Close() error
}

// AuditLogger - журнал операций с опциональной асинхронной записью.
// В асинхронном режиме записи уходят через буферизованный канал;
// при переполнении буфера запись выполняется синхронно, а не
// теряется
type AuditLogger struct {
	appenders    []Appender
	asyncMode    bool
	entryChannel chan *Entry
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
	mu           sync.RWMutex
	config       LoggerConfig
}

// LoggerConfig - конфигурация журнала
type LoggerConfig struct {
	// AsyncMode - асинхронная запись в appenders
	AsyncMode bool

	// BufferSize - размер буфера асинхронного режима (0 = 1000)
	BufferSize int

	// DefaultEngine - движок по умолчанию, если не указан в entry
	DefaultEngine string

	// OnError - callback при ошибке записи
	OnError func(error)
}

// NewLogger - создать журнал операций
func NewLogger(config LoggerConfig, appenders ...Appender) *AuditLogger {
	ctx, cancel := context.WithCancel(context.Background())

	logger := &AuditLogger{
		appenders: appenders,
		asyncMode: config.AsyncMode,
		ctx:       ctx,
		cancel:    cancel,
		config:    config,
	}

	bufferSize := config.BufferSize
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	if logger.asyncMode {
		logger.entryChannel = make(chan *Entry, bufferSize)
		logger.wg.Add(1)
		go logger.processEntries()
	}

	return logger
}

// Log - записать entry
func (l *AuditLogger) Log(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("entry is nil")
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.Engine == "" && l.config.DefaultEngine != "" {
		entry.Engine = l.config.DefaultEngine
	}

	if l.asyncMode {
		select {
		case l.entryChannel <- entry:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-l.ctx.Done():
			return fmt.Errorf("logger is closed")
		default:
			// Буфер переполнен, пишем синхронно
			return l.writeEntry(ctx, entry)
		}
	}

	return l.writeEntry(ctx, entry)
}

// LogSuccess - записать успешную операцию
func (l *AuditLogger) LogSuccess(ctx context.Context, operation Operation) *Entry {
	entry := NewEntry(operation, StatusSuccess)
	if err := l.Log(ctx, entry); err != nil {
		l.handleError(err)
	}
	return entry
}

// LogFailure - записать неудачную операцию
func (l *AuditLogger) LogFailure(ctx context.Context, operation Operation, err error) *Entry {
	entry := NewEntry(operation, StatusFailure).WithError(err)
	if logErr := l.Log(ctx, entry); logErr != nil {
		l.handleError(logErr)
	}
	return entry
}

// writeEntry - записать entry во все appenders
func (l *AuditLogger) writeEntry(ctx context.Context, entry *Entry) error {
	l.mu.RLock()
	appenders := l.appenders
	l.mu.RUnlock()

	var firstErr error
	for _, appender := range appenders {
		if err := appender.Append(ctx, entry); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			l.handleError(fmt.Errorf("appender failed: %w", err))
		}
	}
	return firstErr
}

// processEntries - фоновая обработка асинхронного буфера
func (l *AuditLogger) processEntries() {
	defer l.wg.Done()

	for {
		select {
		case entry := <-l.entryChannel:
			if err := l.writeEntry(context.Background(), entry); err != nil {
				l.handleError(err)
			}
		case <-l.ctx.Done():
			l.drainChannel()
			return
		}
	}
}

// drainChannel - дописать оставшиеся entries при закрытии
func (l *AuditLogger) drainChannel() {
	for {
		select {
		case entry := <-l.entryChannel:
			l.writeEntry(context.Background(), entry)
		default:
			return
		}
	}
}

// Flush - сбросить буферы appenders, поддерживающих flush
func (l *AuditLogger) Flush() error {
	l.mu.RLock()
	appenders := l.appenders
	l.mu.RUnlock()

	var firstErr error
	for _, appender := range appenders {
		if flusher, ok := appender.(interface{ Flush() error }); ok {
			if err := flusher.Flush(); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				l.handleError(fmt.Errorf("flush failed: %w", err))
			}
		}
	}
	return firstErr
}

// Close - остановить прием, дописать буфер, закрыть appenders
func (l *AuditLogger) Close() error {
	l.cancel()
	l.wg.Wait()
	l.Flush()

	l.mu.RLock()
	appenders := l.appenders
	l.mu.RUnlock()

	var firstErr error
	for _, appender := range appenders {
		if err := appender.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// AddAppender - добавить appender
func (l *AuditLogger) AddAppender(appender Appender) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appenders = append(l.appenders, appender)
}

// handleError - передать ошибку в callback конфигурации
func (l *AuditLogger) handleError(err error) {
	if l.config.OnError != nil {
		l.config.OnError(err)
	}
}

// NullLogger - журнал-заглушка (для тестов)
type NullLogger struct{}

// NewNullLogger - создать null logger
func NewNullLogger() *NullLogger {
	return &NullLogger{}
}

// Log - ничего не делает
func (nl *NullLogger) Log(ctx context.Context, entry *Entry) error {
	return nil
}

// LogSuccess - ничего не делает
func (nl *NullLogger) LogSuccess(ctx context.Context, operation Operation) *Entry {
	return NewEntry(operation, StatusSuccess)
}

// LogFailure - ничего не делает
func (nl *NullLogger) LogFailure(ctx context.Context, operation Operation, err error) *Entry {
	return NewEntry(operation, StatusFailure)
}

// Flush - ничего не делает
func (nl *NullLogger) Flush() error {
	return nil
}

// Close - ничего не делает
func (nl *NullLogger) Close() error {
	return nil
}
