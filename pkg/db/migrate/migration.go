// Package migrate реализует версионированный прогон схемных миграций
// с журналом применений, контрольными суммами и резервной копией
// встраиваемой БД перед изменением схемы.
package migrate

import (
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Migration - один версионированный шаг эволюции схемы.
// Up обязателен; Down может отсутствовать - тогда откат этого шага
// является предупреждаемым no-op
type Migration struct {
	Ordinal int
	Name    string
	Up      []string
	Down    []string
}

// Filename возвращает каноническое имя скрипта, под которым шаг
// регистрируется в журнале применений
func (m Migration) Filename() string {
	return fmt.Sprintf("%03d_%s.sql", m.Ordinal, m.Name)
}

// Registry - упорядоченный набор миграций.
// Валидация набора происходит при добавлении, а не при прогоне:
// дубликат порядкового номера или откат без парного скрипта - это
// ошибка конфигурации, которую нужно поймать до касания БД
type Registry struct {
	migrations []Migration
	byOrdinal  map[int]bool
}

// NewRegistry создает пустой реестр миграций
func NewRegistry() *Registry {
	return &Registry{byOrdinal: make(map[int]bool)}
}

// Add регистрирует миграцию с проверкой набора
func (r *Registry) Add(m Migration) error {
	if m.Ordinal <= 0 {
		return fmt.Errorf("migration %q: ordinal must be positive, got %d", m.Name, m.Ordinal)
	}
	if m.Name == "" {
		return fmt.Errorf("migration %03d: name must not be empty", m.Ordinal)
	}
	if len(m.Up) == 0 {
		return fmt.Errorf("migration %s: up script is empty", m.Filename())
	}
	if r.byOrdinal[m.Ordinal] {
		return fmt.Errorf("duplicate migration ordinal %03d (%s)", m.Ordinal, m.Name)
	}

	r.byOrdinal[m.Ordinal] = true
	r.migrations = append(r.migrations, m)
	sort.Slice(r.migrations, func(i, j int) bool {
		return r.migrations[i].Ordinal < r.migrations[j].Ordinal
	})

	return nil
}

// MustAdd регистрирует миграцию и паникует при ошибке набора.
// Используется для статически известных миграций в init()
func (r *Registry) MustAdd(m Migration) {
	if err := r.Add(m); err != nil {
		panic(err)
	}
}

// All возвращает миграции в порядке возрастания номеров
func (r *Registry) All() []Migration {
	out := make([]Migration, len(r.migrations))
	copy(out, r.migrations)
	return out
}

// Len возвращает количество зарегистрированных миграций
func (r *Registry) Len() int {
	return len(r.migrations)
}

// Имена скриптов: NNN_name.sql и парный NNN_name_rollback.sql
var scriptPattern = regexp.MustCompile(`^(\d+)_(.+?)(_rollback)?\.sql$`)

// LoadFS читает миграции из каталога файловой системы.
// Rollback-скрипт без парного up-скрипта - ошибка набора
func LoadFS(fsys fs.FS, dir string) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations dir: %w", err)
	}

	type pending struct {
		ordinal int
		name    string
		up      []string
		down    []string
		hasUp   bool
	}
	byOrdinal := make(map[int]*pending)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := scriptPattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}

		ordinal, err := strconv.Atoi(match[1])
		if err != nil {
			return nil, fmt.Errorf("invalid migration ordinal in %q: %w", entry.Name(), err)
		}

		raw, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %q: %w", entry.Name(), err)
		}

		p := byOrdinal[ordinal]
		if p == nil {
			p = &pending{ordinal: ordinal, name: match[2]}
			byOrdinal[ordinal] = p
		}

		if match[3] == "_rollback" {
			p.down = SplitStatements(string(raw))
		} else {
			p.name = match[2]
			p.up = SplitStatements(string(raw))
			p.hasUp = true
		}
	}

	reg := NewRegistry()
	ordinals := make([]int, 0, len(byOrdinal))
	for o := range byOrdinal {
		ordinals = append(ordinals, o)
	}
	sort.Ints(ordinals)

	for _, o := range ordinals {
		p := byOrdinal[o]
		if !p.hasUp {
			return nil, fmt.Errorf("rollback script %03d_%s_rollback.sql has no matching migration", o, p.name)
		}
		if err := reg.Add(Migration{Ordinal: p.ordinal, Name: p.name, Up: p.up, Down: p.down}); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// SplitStatements разбивает SQL-скрипт на отдельные выражения.
// Точки с запятой внутри строковых литералов не разделяют.
// Комментарии `--` до конца строки вырезаются
func SplitStatements(script string) []string {
	var statements []string
	var b strings.Builder

	inString := false
	lines := strings.Split(script, "\n")
	for _, line := range lines {
		if !inString {
			if idx := strings.Index(line, "--"); idx >= 0 && !insideString(line[:idx]) {
				line = line[:idx]
			}
		}
		for i := 0; i < len(line); i++ {
			ch := line[i]
			switch {
			case ch == '\'':
				inString = !inString
				b.WriteByte(ch)
			case ch == ';' && !inString:
				if stmt := strings.TrimSpace(b.String()); stmt != "" {
					statements = append(statements, stmt)
				}
				b.Reset()
			default:
				b.WriteByte(ch)
			}
		}
		b.WriteByte('\n')
	}

	if stmt := strings.TrimSpace(b.String()); stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}

func insideString(s string) bool {
	return strings.Count(s, "'")%2 == 1
}
