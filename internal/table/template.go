package table

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// reTemplate matches {{ path }} placeholders in filter and column values
var reTemplate = regexp.MustCompile(`\{\{\s*([^\s}]+)\s*}}`)

var ErrMissingVariable = errors.New("Missing workflow variable")

// resolveValue resolves a literal or template value against the execution
// context. A string that is entirely one {{path}} template resolves to
// the referenced value with its original type; embedded templates
// interpolate as text. An unresolved path is a hard failure
func resolveValue(value any, doc string) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}

	matches := reTemplate.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	// Whole-string template keeps the resolved type
	if len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(s) {
		path := s[matches[0][2]:matches[0][3]]
		return lookupPath(doc, path)
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		resolved, err := lookupPath(doc, s[m[2]:m[3]])
		if err != nil {
			return nil, err
		}
		b.WriteString(fmt.Sprintf("%v", resolved))
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String(), nil
}

func lookupPath(doc, path string) (any, error) {
	result := gjson.Get(doc, path)
	if !result.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrMissingVariable, path)
	}
	return result.Value(), nil
}
