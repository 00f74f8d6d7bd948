package catalog

import (
	"strings"

	"galleria/internal/database"
)

// Diff is the keyword reconciliation plan for one media record. Attach and
// Detach name existing keyword rows; Create names keywords that do not
// exist yet. Applying an empty Diff is a no-op.
type Diff struct {
	Attach []int64
	Detach []int64
	Create []string
}

// Empty reports whether the diff changes anything.
func (d Diff) Empty() bool {
	return len(d.Attach) == 0 && len(d.Detach) == 0 && len(d.Create) == 0
}

// ParseTags splits a comma-separated tag string into distinct names.
// Whitespace is trimmed, empties dropped, and duplicates collapse
// case-insensitively keeping the first-seen casing.
func ParseTags(s string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, name)
	}
	return names
}

// Reconcile computes the keyword changes needed to move a record from its
// current keyword set to the desired names. existing supplies the keyword
// rows already stored for any of the desired names, so the caller decides
// how lookups happen. All matching is case-insensitive. Reconciling a
// record against its own keywords yields an empty diff.
func Reconcile(current []database.Keyword, existing []database.Keyword, desired []string) Diff {
	currentByText := make(map[string]int64, len(current))
	for _, k := range current {
		currentByText[strings.ToLower(k.Text)] = k.ID
	}
	existingByText := make(map[string]int64, len(existing))
	for _, k := range existing {
		existingByText[strings.ToLower(k.Text)] = k.ID
	}

	var diff Diff
	desiredSet := make(map[string]bool, len(desired))
	for _, name := range desired {
		key := strings.ToLower(name)
		desiredSet[key] = true

		if _, ok := currentByText[key]; ok {
			continue
		}
		if id, ok := existingByText[key]; ok {
			diff.Attach = append(diff.Attach, id)
		} else {
			diff.Create = append(diff.Create, name)
		}
	}

	for _, k := range current {
		if !desiredSet[strings.ToLower(k.Text)] {
			diff.Detach = append(diff.Detach, k.ID)
		}
	}

	return diff
}
