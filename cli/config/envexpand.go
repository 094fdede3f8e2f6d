package config

import (
	"os"
	"regexp"
	"strings"
)

// placeholder matches ${NAME} and ${NAME:-fallback}.
var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-[^}]*)?\}`)

// ExpandEnv substitutes ${NAME} and ${NAME:-fallback} placeholders in config
// file text before it is parsed, so credentials such as blob.secret_key or
// structured.postgres_url can stay out of blaze4harbor.yaml.
//
// A set, non-empty NAME wins. Otherwise the fallback is used, or "" when
// there is none; Validate reports required settings left empty.
func ExpandEnv(text string) string {
	return expand(text, os.LookupEnv)
}

func expand(text string, lookup func(string) (string, bool)) string {
	matches := placeholder.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m[0]])
		name := text[m[2]:m[3]]
		if v, ok := lookup(name); ok && v != "" {
			b.WriteString(v)
		} else if m[4] >= 0 {
			b.WriteString(text[m[4]+len(":-") : m[5]])
		}
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}
