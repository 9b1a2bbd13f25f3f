// Package naming derives the alternative spellings under which a field name
// is accepted on input.
package naming

import (
	"strings"
	"unicode"
)

// Words splits name on '_', '-', '.', spaces and case transitions. A run of
// upper-case letters is one word, except that its last letter starts the
// next word when followed by a lower-case letter ("HTTPServer" is HTTP,
// Server). Digits stay with the preceding word.
func Words(name string) []string {
	var words []string
	rs := []rune(name)
	start := -1
	flush := func(end int) {
		if start >= 0 && end > start {
			words = append(words, string(rs[start:end]))
		}
		start = -1
	}
	for i, r := range rs {
		if r == '_' || r == '-' || r == '.' || unicode.IsSpace(r) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
			continue
		}
		prev := rs[i-1]
		switch {
		case unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			flush(i)
			start = i
		case unicode.IsUpper(r) && unicode.IsUpper(prev) && i+1 < len(rs) && unicode.IsLower(rs[i+1]):
			flush(i)
			start = i
		}
	}
	flush(len(rs))
	return words
}

// LowerCamel returns name as lowerCamelCase ("user_id" -> "userId").
func LowerCamel(name string) string {
	words := Words(name)
	var b strings.Builder
	for i, w := range words {
		lw := strings.ToLower(w)
		if i == 0 {
			b.WriteString(lw)
			continue
		}
		rs := []rune(lw)
		rs[0] = unicode.ToUpper(rs[0])
		b.WriteString(string(rs))
	}
	return b.String()
}

// LowerSnake returns name as lower_snake_case ("userId" -> "user_id").
func LowerSnake(name string) string {
	return strings.ToLower(strings.Join(Words(name), "_"))
}

// UpperSnake returns name as UPPER_SNAKE_CASE ("userId" -> "USER_ID").
func UpperSnake(name string) string {
	return strings.ToUpper(strings.Join(Words(name), "_"))
}

// Variants returns the lowerCamel, lower_snake and UPPER_SNAKE spellings of
// name, without duplicates and without name itself.
func Variants(name string) []string {
	out := make([]string, 0, 3)
	for _, v := range [...]string{LowerCamel(name), LowerSnake(name), UpperSnake(name)} {
		if v == "" || v == name {
			continue
		}
		dup := false
		for _, o := range out {
			if o == v {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}
