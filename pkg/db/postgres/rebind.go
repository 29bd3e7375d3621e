package postgres

import (
	"strconv"
	"strings"
)

// Rebind переписывает универсальные плейсхолдеры `?` в нумерованные
// `$1..$N`, принятые в PostgreSQL. Вопросительные знаки внутри
// строковых литералов SQL не трогаются
func Rebind(query string) string {
	if !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	inString := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '\'':
			// Экранированная кавычка '' остается внутри литерала
			if inString && i+1 < len(query) && query[i+1] == '\'' {
				b.WriteString("''")
				i++
				continue
			}
			inString = !inString
			b.WriteByte(ch)
		case ch == '?' && !inString:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(ch)
		}
	}

	return b.String()
}
