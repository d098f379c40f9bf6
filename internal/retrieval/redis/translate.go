package redis

import (
	"fmt"
	"strings"

	"github.com/palate-labs/palate/internal/domain/foodfilter"
)

// translateFilter renders a filter expression as an FT.SEARCH pre-filter.
// String comparisons become tag filters, numeric ones become ranges.
// The empty filter renders as "" so the caller can fall back to "*".
func translateFilter(expr foodfilter.Expression) (string, error) {
	if foodfilter.IsNone(expr) {
		return "", nil
	}

	switch e := expr.(type) {
	case foodfilter.Cmp:
		return translateCmp(e)
	case foodfilter.And:
		parts := make([]string, 0, len(e))
		for _, kid := range e {
			part, err := translateFilter(kid)
			if err != nil {
				return "", err
			}
			if part != "" {
				parts = append(parts, part)
			}
		}
		return strings.Join(parts, " "), nil
	case foodfilter.Or:
		parts := make([]string, 0, len(e))
		for _, kid := range e {
			part, err := translateFilter(kid)
			if err != nil {
				return "", err
			}
			if part != "" {
				parts = append(parts, part)
			}
		}
		if len(parts) == 0 {
			return "", nil
		}
		return "(" + strings.Join(parts, " | ") + ")", nil
	default:
		return "", fmt.Errorf("translate filter: unsupported node %T", expr)
	}
}

func translateCmp(c foodfilter.Cmp) (string, error) {
	switch v := c.Value.(type) {
	case string:
		if c.Op != foodfilter.OpEq {
			return "", fmt.Errorf("translate filter: %s not supported on string field %q", c.Op, c.Field)
		}
		return buildTagFilter(c.Field, v), nil
	case float64:
		return buildNumericFilter(c.Field, c.Op, v)
	case int:
		return buildNumericFilter(c.Field, c.Op, float64(v))
	default:
		return "", fmt.Errorf("translate filter: unsupported value %T on field %q", c.Value, c.Field)
	}
}

func buildTagFilter(key, value string) string {
	return fmt.Sprintf("@%s:{%s}", key, tagEscaper.Replace(value))
}

func buildNumericFilter(key string, op foodfilter.Op, v float64) (string, error) {
	minBound, maxBound := "-inf", "+inf"
	switch op {
	case foodfilter.OpEq:
		minBound = fmt.Sprintf("%g", v)
		maxBound = minBound
	case foodfilter.OpGt:
		minBound = fmt.Sprintf("(%g", v)
	case foodfilter.OpGte:
		minBound = fmt.Sprintf("%g", v)
	case foodfilter.OpLt:
		maxBound = fmt.Sprintf("(%g", v)
	case foodfilter.OpLte:
		maxBound = fmt.Sprintf("%g", v)
	default:
		return "", fmt.Errorf("translate filter: unknown operator %q", op)
	}
	return fmt.Sprintf("@%s:[%s %s]", key, minBound, maxBound), nil
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)
