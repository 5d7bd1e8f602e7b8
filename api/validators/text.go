package validators

import (
	"net/http"
	"strings"
	"unicode/utf8"

	pkgerrors "github.com/angelmondragon/stockroom-backend/pkg/errors"
)

// QueryText returns the trimmed value of the key query parameter. Values that
// are not valid UTF-8 or exceed maxRunes characters are rejected rather than
// shortened, so a lookup never silently targets a different name. The limit
// is counted in characters, matching the max tag on request bodies.
func QueryText(r *http.Request, key string, maxRunes int) (string, error) {
	return CheckText(key, r.URL.Query().Get(key), maxRunes)
}

// CheckText applies the QueryText rules to an arbitrary field value.
func CheckText(field, raw string, maxRunes int) (string, error) {
	value := strings.TrimSpace(raw)
	if !utf8.ValidString(value) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "text must be valid UTF-8").
			WithDetails(map[string]any{"field": field})
	}
	if maxRunes > 0 && utf8.RuneCountInString(value) > maxRunes {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "text too long").
			WithDetails(map[string]any{"field": field, "max": maxRunes})
	}
	return value, nil
}
