// Package script renders ExtendScript snippets for the bridge from named
// operations with validated arguments.
package script

import (
	"fmt"
	"strconv"
	"strings"
)

// ParamType constrains what an argument may hold.
type ParamType string

const (
	TypeString ParamType = "string"
	TypeNumber ParamType = "number"
	TypeBool   ParamType = "bool"
)

// Param declares one argument of an operation.
type Param struct {
	Name        string
	Type        ParamType
	Required    bool
	Description string
}

// Operation is a named ExtendScript template. Placeholders of the form
// {param:NAME} are replaced with the rendered argument value; string values
// substitute as quoted, escaped ExtendScript literals, never raw text.
type Operation struct {
	Name        string
	Description string
	Params      []Param
	Template    string
}

// Render validates args against the operation's parameter list and expands
// the template. Absent optional parameters substitute as `undefined` so
// templates can test for them.
func (op Operation) Render(args map[string]any) (string, error) {
	declared := make(map[string]Param, len(op.Params))
	for _, p := range op.Params {
		declared[p.Name] = p
	}

	for name := range args {
		if _, ok := declared[name]; !ok {
			return "", fmt.Errorf("operation %q: unknown argument %q", op.Name, name)
		}
	}

	values := make(map[string]string, len(op.Params))
	for _, p := range op.Params {
		raw, ok := args[p.Name]
		if !ok {
			if p.Required {
				return "", fmt.Errorf("operation %q: missing required argument %q", op.Name, p.Name)
			}
			values[p.Name] = "undefined"
			continue
		}

		rendered, err := renderValue(p.Type, raw)
		if err != nil {
			return "", fmt.Errorf("operation %q: argument %q: %w", op.Name, p.Name, err)
		}
		values[p.Name] = rendered
	}

	return expand(op.Template, values), nil
}

// renderValue converts one argument into ExtendScript source text.
// Numbers arrive as float64 from JSON decoding; int is accepted for
// callers constructing args in Go.
func renderValue(t ParamType, v any) (string, error) {
	switch t {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("expected string, got %T", v)
		}
		return Quote(s), nil
	case TypeNumber:
		switch n := v.(type) {
		case float64:
			return strconv.FormatFloat(n, 'f', -1, 64), nil
		case int:
			return strconv.Itoa(n), nil
		default:
			return "", fmt.Errorf("expected number, got %T", v)
		}
	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return "", fmt.Errorf("expected bool, got %T", v)
		}
		return strconv.FormatBool(b), nil
	default:
		return "", fmt.Errorf("unsupported parameter type %q", t)
	}
}

// expand substitutes {param:KEY} placeholders in a single pass over the
// template. Substituted values are emitted verbatim and never re-scanned,
// so argument text that happens to contain placeholder syntax survives
// untouched.
func expand(tmpl string, values map[string]string) string {
	var b strings.Builder
	b.Grow(len(tmpl))
	rest := tmpl
	for {
		i := strings.Index(rest, "{param:")
		if i < 0 {
			b.WriteString(rest)
			break
		}
		j := strings.Index(rest[i:], "}")
		if j < 0 {
			b.WriteString(rest) // unclosed; leave as-is
			break
		}
		b.WriteString(rest[:i])
		key := rest[i+7 : i+j]
		if val, ok := values[key]; ok {
			b.WriteString(val)
		} else {
			b.WriteString("undefined")
		}
		rest = rest[i+j+1:]
	}
	return b.String()
}

// Quote renders s as an ExtendScript string literal. ExtendScript predates
// ES5, so control characters and the quote/backslash set are escaped by hand.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case ' ', ' ':
			b.WriteString(fmt.Sprintf(`\u%04x`, r))
		default:
			if r < 0x20 {
				b.WriteString(fmt.Sprintf(`\u%04x`, r))
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
