package script

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// builtinHelpers returns the default helper namespace exposed to scripts.
// Callers may extend or shadow any entry; caller keys win on merge. The
// Python backend mirrors these natively in its bootstrap
func builtinHelpers() map[string]any {
	return map[string]any{
		"upper": func(s string) string {
			return strings.ToUpper(s)
		},
		"lower": func(s string) string {
			return strings.ToLower(s)
		},
		"trim": func(s string) string {
			return strings.TrimSpace(s)
		},
		"titleCase": func(s string) string {
			words := strings.Fields(strings.ToLower(s))
			for i, w := range words {
				words[i] = strings.ToUpper(w[:1]) + w[1:]
			}
			return strings.Join(words, " ")
		},
		"round": func(n float64, places int) float64 {
			factor := math.Pow(10, float64(places))
			return math.Round(n*factor) / factor
		},
		"toFixed": func(n float64, places int) string {
			return strconv.FormatFloat(n, 'f', places, 64)
		},
		"todayISO": func() string {
			return time.Now().UTC().Format("2006-01-02")
		},
	}
}
