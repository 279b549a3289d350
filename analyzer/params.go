package analyzer

import (
	"strings"

	"github.com/anchorsec/anchorlint/anchor"
	"github.com/anchorsec/anchorlint/internal/srcutil"
	"github.com/anchorsec/anchorlint/ir"
)

// ParamInfo describes one single-account parameter of the function.
type ParamInfo struct {
	Index int
	Name  string
	Local ir.Local
	Type  *ir.Type
}

// collectParamInfo gathers the function's parameters whose declared type
// is a single Anchor account wrapper, in declared order. Accounts structs
// and plain data parameters are not included.
func collectParamInfo(fn *ir.Function) []ParamInfo {
	var params []ParamInfo
	for i, param := range fn.Params {
		if param == nil {
			continue
		}
		paramType := param.Type.PeelRefs()
		if paramType == nil || !anchor.IsAccountWrapper(paramType) {
			continue
		}
		params = append(params, ParamInfo{
			Index: i,
			Name:  param.Name,
			Local: ir.Local(i + 1),
			Type:  paramType,
		})
	}
	return params
}

// CheckLocalIsParam resolves local to its original and matches it against
// the function's account parameters, first by local, then by the leading
// identifier of the local's source snippet.
func (a *Analyzer) CheckLocalIsParam(local ir.Local) (ParamInfo, bool) {
	resolved := a.ResolveToOriginalLocal(local)
	for _, param := range a.Params {
		if param.Local == resolved {
			return param, true
		}
	}

	span, ok := a.SpanOfLocal(resolved)
	if !ok {
		return ParamInfo{}, false
	}
	snippet, ok := a.Program.Snippet(span)
	if !ok {
		return ParamInfo{}, false
	}
	cleaned := srcutil.RemoveComments(snippet)
	name, _, _ := strings.Cut(cleaned, ".")
	name = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(name), "&mut "), "& ")
	if name == "" {
		return ParamInfo{}, false
	}
	for _, param := range a.Params {
		if param.Name == name {
			return param, true
		}
	}
	return ParamInfo{}, false
}

// UnsafeAccount is a mutable unchecked account declared by the context's
// accounts struct.
type UnsafeAccount struct {
	AccountName          string
	Span                 ir.Span
	IsMutable            bool
	IsOption             bool
	HasAddressConstraint bool
	Constraints          []string
}

// ExtractUnsafeAccountsAndPDAs scans the declared accounts struct for
// mutable UncheckedAccount fields and for PDA fields carrying seeds or
// address constraints. Returns empty slices when the function has no
// context.
func (a *Analyzer) ExtractUnsafeAccountsAndPDAs() ([]UnsafeAccount, []anchor.PDASigner) {
	var unsafeAccounts []UnsafeAccount
	var pdaSigners []anchor.PDASigner

	if a.ContextInfo == nil {
		return unsafeAccounts, pdaSigners
	}
	def := a.Program.StructFor(a.ContextInfo.AccountsType)
	if def == nil {
		return unsafeAccounts, pdaSigners
	}

	for _, field := range def.Fields {

		isOption := anchor.IsOptionUncheckedAccount(field.Type)
		if anchor.IsUncheckedAccount(field.Type) || isOption {
			constraint := anchor.ExtractConstraint(field)
			if constraint.Mutable {
				unsafeAccounts = append(unsafeAccounts, UnsafeAccount{
					AccountName:          field.Name,
					Span:                 field.Span,
					IsMutable:            constraint.Mutable,
					IsOption:             isOption,
					HasAddressConstraint: constraint.HasAddress,
					Constraints:          constraint.Constraints,
				})
			}
		}

		if pda, ok := anchor.ExtractPDASigner(field); ok {
			pdaSigners = append(pdaSigners, pda)
		}
	}
	return unsafeAccounts, pdaSigners
}
