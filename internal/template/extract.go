package template

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Lookup returns the first non-empty string found at any of the JSONPath
// expressions ($.foo.bar, $.items[0].id). Non-string values are returned in
// their raw JSON form.
func Lookup(body []byte, paths ...string) (string, bool) {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return "", false
	}

	for _, p := range paths {
		value := gjson.GetBytes(body, convertJSONPath(p))
		if !value.Exists() {
			continue
		}
		s := value.String()
		if value.Type != gjson.String {
			s = value.Raw
		}
		if s != "" {
			return s, true
		}
	}
	return "", false
}

// convertJSONPath converts JSONPath syntax to gjson path format.
// $.foo.bar -> foo.bar
// $.items[0].id -> items.0.id
// $.data[*].name -> data.#.name
func convertJSONPath(path string) string {
	if strings.HasPrefix(path, "$.") {
		path = path[2:]
	} else if strings.HasPrefix(path, "$") {
		path = path[1:]
	}

	var result strings.Builder
	i := 0
	for i < len(path) {
		if path[i] == '[' {
			j := i + 1
			for j < len(path) && path[j] != ']' {
				j++
			}
			if j < len(path) {
				content := path[i+1 : j]
				if content == "*" {
					result.WriteString(".#")
				} else {
					result.WriteByte('.')
					result.WriteString(content)
				}
				i = j + 1
				continue
			}
		}
		result.WriteByte(path[i])
		i++
	}

	return result.String()
}
