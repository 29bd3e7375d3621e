package migrate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Уровень сжатия 3 - хороший баланс скорости и размера по умолчанию
const backupCompressionLevel = 3

// FileBacked реализуют движки, хранящие данные в одном файле.
// Для таких движков перед применением миграций снимается резервная
// копия
type FileBacked interface {
	DatabaseFile() string
}

// BackupFile копирует файл БД в backupDir со сжатием zstd.
// Имя копии содержит отметку времени: <base>.20060102T150405.bak.zst.
// Возвращает путь созданной копии
func BackupFile(dbPath, backupDir string) (string, error) {
	src, err := os.Open(dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to open database file: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup dir: %w", err)
	}

	stamp := time.Now().UTC().Format("20060102T150405")
	name := fmt.Sprintf("%s.%s.bak.zst", filepath.Base(dbPath), stamp)
	dstPath := filepath.Join(backupDir, name)

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	defer dst.Close()

	encoder, err := zstd.NewWriter(dst,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(backupCompressionLevel)),
		zstd.WithEncoderConcurrency(4),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	if _, err := io.Copy(encoder, src); err != nil {
		encoder.Close()
		os.Remove(dstPath)
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	if err := encoder.Close(); err != nil {
		os.Remove(dstPath)
		return "", fmt.Errorf("failed to finalize backup: %w", err)
	}

	return dstPath, nil
}

// RestoreFile распаковывает резервную копию обратно в файл БД.
// Движок в этот момент должен быть закрыт
func RestoreFile(backupPath, dbPath string) error {
	src, err := os.Open(backupPath)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer src.Close()

	decoder, err := zstd.NewReader(src, zstd.WithDecoderConcurrency(4))
	if err != nil {
		return fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer decoder.Close()

	dst, err := os.Create(dbPath)
	if err != nil {
		return fmt.Errorf("failed to create database file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, decoder.IOReadCloser()); err != nil {
		return fmt.Errorf("failed to restore backup: %w", err)
	}

	return nil
}
