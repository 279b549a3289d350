package analyzer

import (
	"strings"

	"github.com/anchorsec/anchorlint/anchor"
	"github.com/anchorsec/anchorlint/internal/srcutil"
	"github.com/anchorsec/anchorlint/ir"
)

// ContextInfo describes the Anchor context parameter of an instruction
// handler: the declared accounts struct and the local the context is
// bound to.
type ContextInfo struct {
	// Name is the parameter's declared name, e.g. "ctx".
	Name string
	// ContextType is the parameter's declared type with references peeled.
	ContextType *ir.Type
	// AccountsType is the accounts struct type nested inside the context.
	AccountsType *ir.Type
	// Accounts maps each declared account field name to its type.
	Accounts map[string]*ir.Type
	// ArgLocal is the IR local the context argument is bound to.
	ArgLocal ir.Local
}

// extractContextInfo inspects the parameter list in declared order and
// extracts the first parameter whose type is the Anchor context wrapper.
func extractContextInfo(prog *ir.Program, fn *ir.Function) *ContextInfo {
	for i, param := range fn.Params {
		if param == nil {
			continue
		}
		paramType := param.Type.PeelRefs()
		if paramType == nil || !anchor.IsContext(paramType) {
			continue
		}
		accountsType, ok := anchor.ContextAccountsType(paramType)
		if !ok {
			continue
		}
		accounts := accountFieldTypes(prog, accountsType)
		if accounts == nil {
			continue
		}
		return &ContextInfo{
			Name:         param.Name,
			ContextType:  paramType,
			AccountsType: accountsType.PeelRefs(),
			Accounts:     accounts,
			ArgLocal:     ir.Local(i + 1),
		}
	}
	return nil
}

// contextInfoFromAccountsParam handles helpers that receive the accounts
// struct itself rather than a Context wrapper. The first ADT parameter
// that is neither a single account wrapper nor a context, and whose
// declaration has fields, is treated as the accounts struct.
func contextInfoFromAccountsParam(prog *ir.Program, fn *ir.Function) *ContextInfo {
	for i, param := range fn.Params {
		if param == nil {
			continue
		}
		paramType := param.Type.PeelRefs()
		if paramType == nil || paramType.Kind != ir.TypeAdt {
			continue
		}
		if anchor.IsAccountWrapper(paramType) || anchor.IsContext(paramType) {
			continue
		}
		accounts := accountFieldTypes(prog, paramType)
		if len(accounts) == 0 {
			continue
		}
		return &ContextInfo{
			Name:         param.Name,
			ContextType:  paramType,
			AccountsType: paramType,
			Accounts:     accounts,
			ArgLocal:     ir.Local(i + 1),
		}
	}
	return nil
}

func accountFieldTypes(prog *ir.Program, t *ir.Type) map[string]*ir.Type {
	def := prog.StructFor(t)
	if def == nil {
		return nil
	}
	accounts := make(map[string]*ir.Type, len(def.Fields))
	for i := range def.Fields {
		accounts[def.Fields[i].Name] = def.Fields[i].Type
	}
	return accounts
}

// CpiAccountInfo names an account of the enclosing context that a CPI
// argument was traced back to.
type CpiAccountInfo struct {
	AccountName  string
	AccountLocal ir.Local
}

// IsFromCpiContext traces rawLocal back to a declared account of the
// context. Matching is by account type when the type is distinctive; for
// AccountInfo-typed locals (the result of to_account_info calls) and for
// ambiguous type matches the local's source snippet is consulted for a
// `ctx.accounts.<name>` path.
func (a *Analyzer) IsFromCpiContext(rawLocal ir.Local, parent *ContextInfo) (CpiAccountInfo, bool) {
	info := parent
	if info == nil {
		info = a.ContextInfo
	}
	if info == nil {
		return CpiAccountInfo{}, false
	}

	local := a.ResolveToOriginalLocal(rawLocal)
	localType := a.TypeOfLocal(local)
	if localType == nil {
		return CpiAccountInfo{}, false
	}

	// AccountInfo erases the declared account type, so type matching is
	// useless there and we go straight to name matching.
	erased := anchor.IsAccountInfo(localType)

	var matching []string
	if erased {
		matching = accountNames(info.Accounts)
	} else {
		for name, accountType := range info.Accounts {
			peeled := accountType.PeelRefs()
			if ir.SameAdt(localType, peeled) || ir.EqualTypes(localType, peeled) {
				matching = append(matching, name)
			}
		}
	}

	if len(matching) == 1 {
		return CpiAccountInfo{AccountName: matching[0], AccountLocal: info.ArgLocal}, true
	}
	if len(matching) == 0 {
		matching = accountNames(info.Accounts)
	}

	span, ok := a.SpanOfLocal(local)
	if !ok {
		return CpiAccountInfo{}, false
	}
	snippet, ok := a.Program.Snippet(span)
	if !ok {
		return CpiAccountInfo{}, false
	}
	cleaned := srcutil.RemoveComments(snippet)

	if name, ok := matchAccountFromSnippet(cleaned, info, matching, parent != nil); ok {
		return CpiAccountInfo{AccountName: name, AccountLocal: info.ArgLocal}, true
	}
	return CpiAccountInfo{}, false
}

func accountNames(accounts map[string]*ir.Type) []string {
	names := make([]string, 0, len(accounts))
	for name := range accounts {
		names = append(names, name)
	}
	return names
}

func findAccountByName(candidates []string, name string) (string, bool) {
	for _, c := range candidates {
		if c == name {
			return c, true
		}
	}
	return "", false
}

func matchAccountFromSnippet(snippet string, info *ContextInfo, candidates []string, hasParent bool) (string, bool) {
	if _, after, found := strings.Cut(snippet, ".accounts."); found {
		name, _, _ := strings.Cut(after, ".")
		return findAccountByName(candidates, strings.TrimSpace(name))
	}

	if strings.HasPrefix(snippet, info.Name) {
		remaining := strings.Replace(snippet, info.Name, "", 1)
		parts := strings.Split(remaining, ".")
		if len(parts) > 1 {
			return findAccountByName(candidates, strings.TrimSpace(parts[1]))
		}
		return "", false
	}

	if (strings.HasPrefix(snippet, "self") || strings.HasPrefix(snippet, "&self")) && hasParent {
		remaining := strings.TrimPrefix(strings.TrimPrefix(snippet, "&"), "self")
		remaining = strings.TrimLeft(remaining, " \t\n.")
		fields := strings.FieldsFunc(remaining, func(r rune) bool {
			return r == '.' || r == '\n' || r == ' ' || r == '\t'
		})
		if len(fields) > 0 {
			return findAccountByName(candidates, fields[0])
		}
	}
	return "", false
}

// AreSameAccount reports whether two locals trace back to the same
// declared account of the context.
func (a *Analyzer) AreSameAccount(local1, local2 ir.Local) bool {
	acc1, ok1 := a.IsFromCpiContext(local1, nil)
	acc2, ok2 := a.IsFromCpiContext(local2, nil)
	return ok1 && ok2 && acc1.AccountName == acc2.AccountName
}

// TakesCpiContext reports whether any call argument is typed as the
// framework's CpiContext.
func (a *Analyzer) TakesCpiContext(args []ir.Operand) bool {
	for i := range args {
		local, ok := args[i].AsLocal()
		if !ok {
			continue
		}
		if anchor.IsCpiContext(a.TypeOfLocal(local)) {
			return true
		}
	}
	return false
}
