package directive

import (
	"encoding/json"
	"strings"
)

// DetectLanguage guesses the language of an editor payload from its content.
// It returns "" when nothing matches.
func DetectLanguage(code string) string {
	has := func(subs ...string) bool {
		for _, s := range subs {
			if strings.Contains(code, s) {
				return true
			}
		}
		return false
	}

	trimmed := strings.TrimSpace(code)
	switch {
	case strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)):
		return "json"
	case has("import tensorflow", "def ", "print("):
		return "python"
	case has("function", "const ", "let "):
		return "javascript"
	case has("interface", "class", ":"):
		return "typescript"
	case has("<html", "</div>"):
		return "html"
	}
	return ""
}
