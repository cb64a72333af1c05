package formdata

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// parseParams splits a header value of the form `token; a=b; c="d"` into its
// lowercased leading token and its parameters. Parameter names are lowercased,
// values are unquoted and unescaped but otherwise kept byte for byte.
// The first occurrence of a parameter wins.
func parseParams(v string) (string, map[string]string, bool) {
	token, rest, _ := strings.Cut(v, ";")
	token = strings.ToLower(strings.TrimSpace(token))
	params := make(map[string]string)

	for {
		rest = strings.TrimLeft(rest, " \t;")
		if rest == "" {
			break
		}

		eq := strings.IndexAny(rest, "=;")
		if eq < 0 || rest[eq] == ';' {
			// valueless parameter, skip it
			if eq < 0 {
				break
			}
			rest = rest[eq:]
			continue
		}

		name := strings.ToLower(strings.TrimSpace(rest[:eq]))
		rest = strings.TrimLeft(rest[eq+1:], " \t")

		var value string
		if strings.HasPrefix(rest, `"`) {
			var ok bool
			value, rest, ok = consumeQuoted(rest[1:])
			if !ok {
				return token, params, false
			}
		} else {
			end := strings.IndexByte(rest, ';')
			if end < 0 {
				end = len(rest)
			}
			value = strings.TrimSpace(rest[:end])
			rest = rest[end:]
		}

		if name == "" {
			continue
		}
		if _, seen := params[name]; !seen {
			params[name] = value
		}
	}

	return token, params, true
}

// consumeQuoted reads a quoted-string body (the opening quote already consumed),
// resolving backslash escapes. It returns the value and the remainder after the
// closing quote.
func consumeQuoted(s string) (string, string, bool) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			if i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			}
		case '"':
			return b.String(), s[i+1:], true
		default:
			b.WriteByte(c)
		}
	}
	return "", "", false
}

// decodeExtValue decodes an RFC 5987 ext-value: charset'lang'percent-encoded.
func decodeExtValue(v string) (string, bool) {
	charset, rest, ok := strings.Cut(v, "'")
	if !ok {
		return "", false
	}
	_, encoded, ok := strings.Cut(rest, "'")
	if !ok {
		return "", false
	}

	raw, ok := percentDecode(encoded)
	if !ok {
		return "", false
	}

	switch strings.ToLower(charset) {
	case "utf-8", "us-ascii", "":
		return string(raw), true
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", false
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", false
	}
	return string(out), true
}

func percentDecode(s string) ([]byte, bool) {
	var buf bytes.Buffer
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			buf.WriteByte(c)
			continue
		}
		if i+2 >= len(s) {
			return nil, false
		}
		hi, ok1 := unhex(s[i+1])
		lo, ok2 := unhex(s[i+2])
		if !ok1 || !ok2 {
			return nil, false
		}
		buf.WriteByte(hi<<4 | lo)
		i += 2
	}
	return buf.Bytes(), true
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
