package posting

import "strings"

// DefaultLabel names the record in messages when the caller passes an empty label.
const DefaultLabel = "record"

func resolveLabel(label string) string {
	if strings.TrimSpace(label) == "" {
		return DefaultLabel
	}
	return label
}
