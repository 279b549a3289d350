package anchor

import (
	"strings"

	"github.com/anchorsec/anchorlint/ir"
)

// AccountConstraint is the structured view of one account field's
// `#[account(...)]` annotation.
//
// The extractor is total: annotations it does not specifically recognize
// are preserved verbatim in Attributes or Constraints so downstream rules
// can still pattern-match on them.
type AccountConstraint struct {
	Mutable     bool
	HasAddress  bool
	HasInit     bool
	HasSigner   bool
	HasOwner    bool
	Seeds       []string
	HasOne      []string
	Attributes  []string
	Constraints []string
}

// AccountDetails couples a constraint with the field it was declared on.
type AccountDetails struct {
	AccountName string
	Span        ir.Span
	AccountConstraint
}

// PDASigner describes an account derived from seeds (or pinned by an
// address constraint), which can act as a program-derived signer.
type PDASigner struct {
	AccountName string
	Span        ir.Span
	HasSeeds    bool
	Seeds       []string
}

// ExtractConstraint parses the field's annotations into a constraint
// record. Seeds, attributes and constraints keep their source order.
func ExtractConstraint(field *ir.FieldDef) AccountConstraint {
	var c AccountConstraint
	if field == nil {
		return c
	}
	for _, attr := range field.Attrs {
		inner, ok := accountAttrBody(attr)
		if !ok {
			continue
		}
		for _, item := range splitTopLevel(inner, ',') {
			c.applyItem(strings.TrimSpace(item))
		}
	}
	return c
}

// ExtractDetails parses the field's annotations and carries the field
// name and span along for diagnostics.
func ExtractDetails(field *ir.FieldDef) AccountDetails {
	return AccountDetails{
		AccountName:       field.Name,
		Span:              field.Span,
		AccountConstraint: ExtractConstraint(field),
	}
}

// ExtractPDASigner returns the field's PDA record when the annotation
// carries a seeds or address constraint.
func ExtractPDASigner(field *ir.FieldDef) (PDASigner, bool) {
	c := ExtractConstraint(field)
	if len(c.Seeds) == 0 && !c.HasAddress {
		return PDASigner{}, false
	}
	return PDASigner{
		AccountName: field.Name,
		Span:        field.Span,
		HasSeeds:    len(c.Seeds) > 0,
		Seeds:       c.Seeds,
	}, true
}

func (c *AccountConstraint) applyItem(item string) {
	if item == "" {
		return
	}
	key, value, hasValue := cutKeyValue(item)
	switch {
	case !hasValue:
		switch key {
		case "mut":
			c.Mutable = true
		case "signer":
			c.HasSigner = true
			c.Attributes = append(c.Attributes, key)
		case "init", "init_if_needed", "zero":
			c.HasInit = true
			c.Attributes = append(c.Attributes, key)
		default:
			c.Attributes = append(c.Attributes, key)
		}
	case key == "seeds":
		c.Seeds = append(c.Seeds, splitBracketList(value)...)
	case key == "constraint":
		c.Constraints = append(c.Constraints, value)
	case key == "has_one":
		c.HasOne = append(c.HasOne, value)
	case key == "address":
		c.HasAddress = true
		c.Attributes = append(c.Attributes, key+"="+value)
	case key == "owner":
		c.HasOwner = true
		c.Attributes = append(c.Attributes, key+"="+value)
	default:
		c.Attributes = append(c.Attributes, key+"="+value)
	}
}

// accountAttrBody strips the `account(...)` wrapper from an annotation,
// returning its inside. Other annotations are skipped.
func accountAttrBody(attr string) (string, bool) {
	attr = strings.TrimSpace(attr)
	attr = strings.TrimPrefix(attr, "#[")
	attr = strings.TrimSuffix(attr, "]")
	if !strings.HasPrefix(attr, "account(") || !strings.HasSuffix(attr, ")") {
		return "", false
	}
	return attr[len("account(") : len(attr)-1], true
}

// cutKeyValue splits `key = value` at the first top-level '='. The `==`
// and `!=` operators inside constraint expressions do not count as
// separators for the key itself.
func cutKeyValue(item string) (key, value string, hasValue bool) {
	depth := 0
	for i := 0; i < len(item); i++ {
		switch item[i] {
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		case '=':
			if depth > 0 {
				continue
			}
			if i+1 < len(item) && item[i+1] == '=' {
				i++
				continue
			}
			if i > 0 && (item[i-1] == '!' || item[i-1] == '<' || item[i-1] == '>') {
				continue
			}
			return strings.TrimSpace(item[:i]), strings.TrimSpace(item[i+1:]), true
		}
	}
	return strings.TrimSpace(item), "", false
}

// splitBracketList splits `[a, b, c]` into its elements, respecting
// nested brackets. A value without brackets yields itself.
func splitBracketList(value string) []string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
		value = value[1 : len(value)-1]
	}
	var out []string
	for _, el := range splitTopLevel(value, ',') {
		el = strings.TrimSpace(el)
		if el != "" {
			out = append(out, el)
		}
	}
	return out
}

// splitTopLevel splits on sep outside any bracket nesting and outside
// string literals.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	inString := false
	start := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			if ch == '\\' {
				i++
			} else if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}
