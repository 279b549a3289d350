package analyzer

import (
	"github.com/anchorsec/anchorlint/anchor"
	"github.com/anchorsec/anchorlint/internal/srcutil"
	"github.com/anchorsec/anchorlint/ir"
)

// NestedArgumentType classifies how a nested helper call receives the
// caller's accounts.
type NestedArgumentType int

const (
	// NestedCtx passes the whole context.
	NestedCtx NestedArgumentType = iota
	// NestedAccounts passes the accounts struct.
	NestedAccounts
	// NestedAccount passes individual accounts.
	NestedAccount
)

func (t NestedArgumentType) String() string {
	switch t {
	case NestedCtx:
		return "ctx"
	case NestedAccounts:
		return "accounts"
	default:
		return "account"
	}
}

// NestedArg is one individual account handed to a nested call: its type
// and the parameter local it binds to inside the callee.
type NestedArg struct {
	Type  *ir.Type
	Local ir.Local
}

// NestedArgument describes what a nested call receives.
type NestedArgument struct {
	Type     NestedArgumentType
	Accounts map[string]NestedArg
}

// NestedFnArguments inspects a call's arguments for the caller's context,
// its accounts struct, or individual declared accounts. Returns false
// when none of the arguments relate to the context.
func (a *Analyzer) NestedFnArguments(args []ir.Operand, parent *ContextInfo) (NestedArgument, bool) {
	nested := NestedArgument{Type: NestedCtx, Accounts: map[string]NestedArg{}}
	found := false

	info := parent
	if info == nil {
		info = a.ContextInfo
	}
	if info == nil {
		return nested, false
	}

	for argIndex := range args {
		arg := &args[argIndex]
		local, ok := a.LocalFromOperand(arg)
		if !ok {
			continue
		}
		argType := a.TypeOfLocal(local)
		if argType == nil {
			continue
		}

		if ir.EqualTypes(argType, info.ContextType) {
			nested.Type = NestedCtx
			found = true
			break
		}
		if ir.EqualTypes(argType, info.AccountsType) {
			nested.Type = NestedAccounts
			found = true
			break
		}

		declared, ok := a.matchDeclaredAccount(argType, info)
		if !ok {
			continue
		}
		name := declared
		if resolved, ok := a.accountNameFromArgSnippet(arg); ok {
			name = resolved
		}
		nested.Accounts[name] = NestedArg{
			Type:  argType,
			Local: ir.Local(argIndex + 1),
		}
		nested.Type = NestedAccount
		found = true
	}
	return nested, found
}

// NestedFnArgumentsAsParams matches account-typed call arguments against
// the current function's own account parameters instead of its context.
func (a *Analyzer) NestedFnArgumentsAsParams(args []ir.Operand) (NestedArgument, bool) {
	nested := NestedArgument{Type: NestedAccount, Accounts: map[string]NestedArg{}}
	found := false

	for argIndex := range args {
		arg := &args[argIndex]
		local, ok := a.LocalFromOperand(arg)
		if !ok {
			continue
		}
		argType := a.TypeOfLocal(local)
		if argType == nil || !anchor.IsAccountWrapper(argType) {
			continue
		}
		param, ok := a.CheckLocalIsParam(local)
		if !ok {
			continue
		}
		nested.Accounts[param.Name] = NestedArg{
			Type:  argType,
			Local: ir.Local(argIndex + 1),
		}
		found = true
	}
	return nested, found
}

func (a *Analyzer) matchDeclaredAccount(argType *ir.Type, info *ContextInfo) (string, bool) {
	for name, accountType := range info.Accounts {
		if ir.EqualTypes(argType, accountType.PeelRefs()) || anchor.IsAccountInfo(argType) {
			return name, true
		}
	}
	return "", false
}

func (a *Analyzer) accountNameFromArgSnippet(arg *ir.Operand) (string, bool) {
	if arg.Span.IsZero() {
		return "", false
	}
	snippet, ok := a.Program.Snippet(arg.Span)
	if !ok {
		return "", false
	}
	return srcutil.ExtractAccountName(srcutil.RemoveComments(snippet))
}
