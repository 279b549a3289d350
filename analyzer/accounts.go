package analyzer

import (
	"strings"

	"github.com/anchorsec/anchorlint/internal/srcutil"
	"github.com/anchorsec/anchorlint/ir"
)

// AccountNameAndLocal pairs an account name recovered from source text
// with the local it was recovered from.
type AccountNameAndLocal struct {
	AccountName  string
	AccountLocal ir.Local
}

// CollectAccountsFromAccountInfosArg extracts the accounts listed in an
// account_infos vector argument of a raw invocation. The argument must be
// a Vec or slice typed local; the elements are recovered from the source
// text of the vec literal.
func (a *Analyzer) CollectAccountsFromAccountInfosArg(arg *ir.Operand, returnOnlyName bool) []AccountNameAndLocal {
	local, ok := a.LocalFromOperand(arg)
	if !ok {
		return nil
	}
	t := a.TypeOfLocal(local)
	if t == nil || !isVecOrSlice(t) {
		return nil
	}
	return a.vecElements(local, make(map[ir.Local]bool), returnOnlyName)
}

func isVecOrSlice(t *ir.Type) bool {
	t = t.PeelRefs()
	if t == nil {
		return false
	}
	if t.Kind == ir.TypeSlice {
		return true
	}
	defPath, ok := t.AdtDefPath()
	return ok && (defPath == "alloc::vec::Vec" || strings.HasSuffix(defPath, "::Vec"))
}

// vecElements recovers the elements of the vec literal that local was
// built from. A local whose snippet has no vec literal is resolved to its
// original and retried; revisiting a local falls through to its method
// call receiver.
func (a *Analyzer) vecElements(local ir.Local, visited map[ir.Local]bool, returnOnlyName bool) []AccountNameAndLocal {
	span, ok := a.SpanOfLocal(local)
	if !ok {
		return nil
	}
	if visited[local] {
		if receiver, ok := a.MethodCallReceiverMap[local]; ok {
			return a.vecElements(receiver, visited, returnOnlyName)
		}
		return nil
	}
	visited[local] = true

	var cleaned string
	if lines, ok := a.Program.LinesFrom(span); ok {
		cleaned = srcutil.RemoveComments(srcutil.BalancedSnippet(lines))
	} else if snippet, ok := a.Program.Snippet(span); ok {
		cleaned = srcutil.RemoveComments(snippet)
	}

	var elements []AccountNameAndLocal
	for _, element := range srcutil.ExtractVecElements(cleaned) {
		if name, ok := srcutil.ExtractContextAccount(element, returnOnlyName); ok {
			elements = append(elements, AccountNameAndLocal{
				AccountName:  name,
				AccountLocal: local,
			})
		}
	}
	if len(elements) > 0 {
		return elements
	}

	resolved := a.ResolveToOriginalLocal(local)
	return a.vecElements(resolved, visited, returnOnlyName)
}

// AccountNamesForLocal recovers the account names behind a local by
// inspecting its source snippet, then its method call receiver, then the
// locals it was assigned from. A snippet mentioning `accounts.` wins
// outright; a weaker name match is kept as a fallback and returned only
// when the walk exhausts without a strong match.
func (a *Analyzer) AccountNamesForLocal(accountLocal ir.Local, returnOnlyName bool) []AccountNameAndLocal {
	var fallback string
	return a.accountNamesForLocal(accountLocal, make(map[ir.Local]bool), returnOnlyName, &fallback)
}

func (a *Analyzer) accountNamesForLocal(accountLocal ir.Local, visited map[ir.Local]bool, returnOnlyName bool, fallback *string) []AccountNameAndLocal {
	span, hasSpan := a.SpanOfLocal(accountLocal)
	if hasSpan {
		if snippet, ok := a.Program.Snippet(span); ok {
			cleaned := srcutil.RemoveComments(snippet)

			if strings.Contains(strings.TrimLeft(cleaned, " \t"), "vec!") {
				var results []AccountNameAndLocal
				for _, element := range srcutil.ExtractVecElements(cleaned) {
					if name, ok := srcutil.ExtractContextAccount(element, returnOnlyName); ok {
						results = append(results, AccountNameAndLocal{
							AccountName:  name,
							AccountLocal: accountLocal,
						})
					}
				}
				return results
			}

			if name, ok := srcutil.ExtractContextAccount(cleaned, returnOnlyName); ok {
				if strings.Contains(cleaned, "accounts.") {
					return []AccountNameAndLocal{{AccountName: name, AccountLocal: accountLocal}}
				}
				*fallback = name
			}
		}

		// The span's own text may be a sub-expression; the full source
		// line often carries the ctx.accounts path.
		if lines, ok := a.Program.LinesFrom(span); ok && len(lines) > 0 {
			if name, ok := srcutil.ExtractContextAccount(lines[0], returnOnlyName); ok {
				if strings.Contains(lines[0], "accounts.") {
					return []AccountNameAndLocal{{AccountName: name, AccountLocal: accountLocal}}
				}
				*fallback = name
			}
		}
	}

	if visited[accountLocal] {
		if *fallback != "" && returnOnlyName {
			return []AccountNameAndLocal{{AccountName: *fallback, AccountLocal: accountLocal}}
		}
		return nil
	}
	visited[accountLocal] = true

	if receiver, ok := a.MethodCallReceiverMap[accountLocal]; ok {
		if results := a.accountNamesForLocal(receiver, visited, returnOnlyName, fallback); len(results) > 0 {
			return results
		}
	}

	for _, lhs := range a.transitiveKeys {
		if !containsLocal(a.TransitiveReverseMap[lhs], accountLocal) {
			continue
		}
		if results := a.accountNamesForLocal(lhs, visited, returnOnlyName, fallback); len(results) > 0 {
			return results
		}
	}

	if *fallback != "" && returnOnlyName {
		return []AccountNameAndLocal{{AccountName: *fallback, AccountLocal: accountLocal}}
	}
	return nil
}
