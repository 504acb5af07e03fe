// Package session provisions a private clone of the template agent for each
// browser session.
package session

import (
	"fmt"
	"strconv"
	"strings"
)

// NextCloneName returns the name of the next clone of template given the
// names that already exist: template-(max+1) over every existing name of the
// form template-<n>, or template-1 when there is none.
func NextCloneName(template string, existing []string) string {
	prefix := template + "-"
	max := 0
	for _, name := range existing {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		suffix := name[len(prefix):]
		if suffix == "" || strings.TrimLeft(suffix, "0123456789") != "" {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil || n <= 0 {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s-%d", template, max+1)
}
