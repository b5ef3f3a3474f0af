package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// decodeObject leniently turns a model reply into a JSON object.
// It tolerates Markdown fences, prose around the object and Python-style
// literals; the caller validates the shape.
func decodeObject(reply string) (map[string]any, error) {
	candidate, err := outermostObject(stripCodeFence(reply))
	if err != nil {
		return nil, err
	}

	obj, err := unmarshalObject(candidate)
	if err == nil {
		return obj, nil
	}

	converted, convErr := pythonLiteralToJSON(candidate)
	if convErr != nil {
		return nil, fmt.Errorf("reply is not a JSON object: %w", err)
	}
	obj, convErr = unmarshalObject(converted)
	if convErr != nil {
		return nil, fmt.Errorf("reply is not a JSON object: %w", err)
	}
	return obj, nil
}

func unmarshalObject(data string) (map[string]any, error) {
	decoder := json.NewDecoder(strings.NewReader(data))
	decoder.UseNumber()

	var obj map[string]any
	if err := decoder.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("reply is null")
	}
	return obj, nil
}

// stripCodeFence removes a surrounding ```json ... ``` block if present
func stripCodeFence(reply string) string {
	s := strings.TrimSpace(reply)
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	body := s[start+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// drop the info string, e.g. "json"
		if info := strings.TrimSpace(body[:nl]); !strings.ContainsAny(info, "{[") {
			body = body[nl+1:]
		}
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// outermostObject returns the text from the first '{' to the last '}'
func outermostObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON object found in reply")
	}
	return s[start : end+1], nil
}

// pythonLiteralToJSON rewrites a Python dict literal as JSON: single-quoted
// strings become double-quoted and True, False and None become JSON literals.
func pythonLiteralToJSON(s string) (string, error) {
	var out bytes.Buffer
	runes := []rune(s)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\'' || r == '"':
			next, err := copyQuoted(&out, runes, i)
			if err != nil {
				return "", err
			}
			i = next
		case unicode.IsLetter(r):
			j := i
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			switch word := string(runes[i:j]); word {
			case "True":
				out.WriteString("true")
			case "False":
				out.WriteString("false")
			case "None":
				out.WriteString("null")
			default:
				out.WriteString(word)
			}
			i = j - 1
		default:
			out.WriteRune(r)
		}
	}
	return out.String(), nil
}

// copyQuoted writes the string literal starting at runes[start] as a JSON
// string and returns the index of its closing quote.
func copyQuoted(out *bytes.Buffer, runes []rune, start int) (int, error) {
	quote := runes[start]
	var sb strings.Builder

	for i := start + 1; i < len(runes); i++ {
		r := runes[i]
		if r == '\\' && i+1 < len(runes) {
			i++
			switch esc := runes[i]; esc {
			case '\'', '"', '\\':
				sb.WriteRune(esc)
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			default:
				sb.WriteRune('\\')
				sb.WriteRune(esc)
			}
			continue
		}
		if r == quote {
			encoded, err := json.Marshal(sb.String())
			if err != nil {
				return 0, err
			}
			out.Write(encoded)
			return i, nil
		}
		sb.WriteRune(r)
	}
	return 0, fmt.Errorf("unterminated string literal")
}
