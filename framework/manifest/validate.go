package manifest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/km-arc/go-interop/framework/http/validation"
)

// KeyRule is the validation rule every container key in a manifest must
// satisfy.
const KeyRule = `required|max:255|regex:^[A-Za-z0-9][A-Za-z0-9._/-]*$`

// ValidationError lists every problem found in a manifest, in key order.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid manifest: " + strings.Join(e.Problems, "; ")
}

// Validate checks key syntax, that no service refs itself and that every
// entry names exactly one source or operation. It does not check that refs or dependencies exist; a missing
// key is reported when it is resolved.
func (m *Manifest) Validate() error {
	var problems []string
	report := func(where string, err error) {
		bag, ok := err.(*validation.Errors)
		if !ok {
			problems = append(problems, where+": "+err.Error())
			return
		}
		for _, f := range bag.Fields() {
			for _, msg := range bag.Bag[f] {
				problems = append(problems, where+": "+msg)
			}
		}
	}

	for _, k := range sortedKeys(m.Services) {
		s := m.Services[k]
		where := "services." + k
		if err := checkKeys(k, s.Ref, s.DependsOn); err != nil {
			report(where, err)
		}
		switch {
		case s.hasValue && s.Ref != "":
			problems = append(problems, where+": value and ref are mutually exclusive")
		case !s.hasValue && s.Ref == "":
			problems = append(problems, where+": one of value or ref is required")
		}
	}

	for _, k := range sortedKeys(m.Extensions) {
		for i, e := range m.Extensions[k] {
			where := fmt.Sprintf("extensions.%s[%d]", k, i)
			if err := checkKeys(k, "", e.DependsOn); err != nil {
				report(where, err)
			}
			if e.ops != 1 {
				problems = append(problems, where+": exactly one of append, merge or set is required")
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// checkKeys validates an entry's key, its optional ref and its dependencies.
func checkKeys(key, ref string, deps []string) error {
	data := map[string]string{"key": key, "ref": ref}
	rules := validation.Rules{
		"key": KeyRule,
		"ref": "sometimes|" + KeyRule + "|different:key",
	}
	for i, d := range deps {
		field := fmt.Sprintf("dependsOn[%d]", i)
		data[field] = d
		rules[field] = KeyRule
	}
	return validation.Check(data, rules)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
