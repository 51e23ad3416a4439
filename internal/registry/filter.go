package registry

import (
	"strings"

	"github.com/specialistvlad/treeplug/internal/model"
)

// FilterDescriptors keeps the descriptors whose name or help text contains
// query, ignoring case, in their original order. It never modifies its
// input, so it can run again on every keystroke. An empty query returns a
// copy of the whole list.
func FilterDescriptors(ds []*model.Descriptor, query string) []*model.Descriptor {
	out := make([]*model.Descriptor, 0, len(ds))
	needle := strings.ToLower(query)
	for _, d := range ds {
		if needle == "" || matches(d, needle) {
			out = append(out, d)
		}
	}
	return out
}

func matches(d *model.Descriptor, needle string) bool {
	return strings.Contains(strings.ToLower(d.Name), needle) ||
		strings.Contains(strings.ToLower(d.HelpText), needle)
}

// CanSelect reports whether d may be added to a selection that already
// holds chosen. Repeatable modules are always selectable; the rest only
// while they are not in the selection yet.
func CanSelect(d *model.Descriptor, chosen []*model.Descriptor) bool {
	if d.Repeatable {
		return true
	}
	for _, c := range chosen {
		if c != nil && c.ID == d.ID {
			return false
		}
	}
	return true
}
