package invoice

import (
	"fmt"
	"regexp"
	"strconv"
)

// FieldRef addresses an editable field: either a top-level scalar or a field
// of one line item. The string form ("total_amount", "items[2].quantity") is
// the wire contract shared by low-confidence highlighting and the audit log;
// internally edits go through the typed form.
type FieldRef struct {
	Name  string
	Index int // item index, or -1 for a top-level scalar
}

// Scalar addresses a top-level field by name.
func Scalar(name string) FieldRef {
	return FieldRef{Name: name, Index: -1}
}

// ItemField addresses a field of the i-th line item.
func ItemField(i int, name string) FieldRef {
	return FieldRef{Name: name, Index: i}
}

// IsItem reports whether the reference points into the items sequence.
func (f FieldRef) IsItem() bool {
	return f.Index >= 0
}

func (f FieldRef) String() string {
	if f.IsItem() {
		return fmt.Sprintf("items[%d].%s", f.Index, f.Name)
	}
	return f.Name
}

var itemRefRe = regexp.MustCompile(`^items\[(\d+)\]\.([A-Za-z_]+)$`)

// ParseFieldRef parses the string form back into a FieldRef.
func ParseFieldRef(s string) (FieldRef, error) {
	if m := itemRefRe.FindStringSubmatch(s); m != nil {
		i, err := strconv.Atoi(m[1])
		if err != nil {
			return FieldRef{}, fmt.Errorf("invalid item index in %q: %w", s, err)
		}
		return ItemField(i, m[2]), nil
	}
	if s == "" {
		return FieldRef{}, fmt.Errorf("empty field reference")
	}
	return Scalar(s), nil
}
