// redact маскирует персональные данные перед записью в лог.
package redact

import "strings"

// Email маскирует адрес, оставляя домен и первые две руны локальной части:
//
//	"organizer@example.com" -> "or***@example.com"
//	"ab@example.com"        -> "***@example.com"
//
// Строка без ровно одного '@' целиком заменяется на "***".
func Email(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}

	local, domain, _ := strings.Cut(s, "@")

	if lr := []rune(local); len(lr) > 2 {
		return string(lr[:2]) + "***@" + domain
	}

	return "***@" + domain
}
