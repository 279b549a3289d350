package anchor

import (
	"strings"

	"github.com/anchorsec/anchorlint/ir"
)

// Def-paths for the framework types the catalogs recognize.
const (
	contextPath          = "anchor_lang::context::Context"
	contextPreludePath   = "anchor_lang::prelude::Context"
	cpiContextPath       = "anchor_lang::context::CpiContext"
	uncheckedAccountPath = "anchor_lang::prelude::UncheckedAccount"
	signerPath           = "anchor_lang::prelude::Signer"
	accountLoaderPath    = "anchor_lang::prelude::AccountLoader"
	accountInfoPath      = "solana_program::account_info::AccountInfo"
	instructionPath      = "solana_program::instruction::Instruction"
	preludePrefix        = "anchor_lang::prelude::"
	boxPath              = "alloc::boxed::Box"
	optionPath           = "core::option::Option"
	optionStdPath        = "std::option::Option"
)

// IsContext reports whether the type is the framework's per-instruction
// context wrapper, Context<T>.
func IsContext(t *ir.Type) bool {
	defPath, ok := t.AdtDefPath()
	if !ok {
		return false
	}
	return strings.HasSuffix(defPath, contextPath) || strings.HasSuffix(defPath, contextPreludePath)
}

// ContextAccountsType returns the T of Context<T>.
func ContextAccountsType(t *ir.Type) (*ir.Type, bool) {
	t = t.PeelRefs()
	if !IsContext(t) || len(t.Args) == 0 {
		return nil, false
	}
	return t.Args[len(t.Args)-1].PeelRefs(), true
}

// IsCpiContext reports whether the type is CpiContext<T>.
func IsCpiContext(t *ir.Type) bool {
	return t.IsAdt(cpiContextPath)
}

// IsUncheckedAccount reports whether the type is UncheckedAccount.
func IsUncheckedAccount(t *ir.Type) bool {
	return t.IsAdt(uncheckedAccountPath)
}

// IsOptionUncheckedAccount reports whether the type is
// Option<UncheckedAccount>.
func IsOptionUncheckedAccount(t *ir.Type) bool {
	t = t.PeelRefs()
	if t == nil || t.Kind != ir.TypeAdt {
		return false
	}
	if t.DefPath != optionPath && t.DefPath != optionStdPath {
		return false
	}
	if len(t.Args) == 0 {
		return false
	}
	return IsUncheckedAccount(t.Args[0])
}

// IsSigner reports whether the type is the Signer account wrapper.
func IsSigner(t *ir.Type) bool {
	return t.IsAdt(signerPath)
}

// IsAccountInfo reports whether the type is the raw AccountInfo handle.
func IsAccountInfo(t *ir.Type) bool {
	defPath, ok := t.AdtDefPath()
	if !ok {
		return false
	}
	return defPath == accountInfoPath || strings.HasSuffix(defPath, "::AccountInfo")
}

// IsAccountWrapper reports whether the type is one of the framework's
// single-account wrapper types (Account, Signer, UncheckedAccount,
// AccountLoader, SystemAccount, ...) or a raw AccountInfo. Accounts
// structs are not wrappers.
func IsAccountWrapper(t *ir.Type) bool {
	defPath, ok := t.AdtDefPath()
	if !ok {
		return false
	}
	return strings.HasPrefix(defPath, preludePrefix) || defPath == accountInfoPath
}

// IsPubkey reports whether the type is a Pubkey.
func IsPubkey(t *ir.Type) bool {
	defPath, ok := t.AdtDefPath()
	if !ok {
		return false
	}
	return strings.Contains(defPath, "Pubkey")
}

// IsInstruction reports whether the type is a raw Solana instruction.
func IsInstruction(t *ir.Type) bool {
	defPath, ok := t.AdtDefPath()
	if !ok {
		return false
	}
	return defPath == instructionPath || strings.Contains(defPath, "instruction::Instruction")
}

// IsAccountLoader reports whether the type is the zero-copy
// AccountLoader wrapper.
func IsAccountLoader(t *ir.Type) bool {
	defPath, ok := t.AdtDefPath()
	if !ok {
		return false
	}
	return defPath == accountLoaderPath || strings.HasSuffix(defPath, "::AccountLoader")
}

// InnerAccountType returns the T of Account<T> or AccountLoader<T>,
// unwrapping Box and references first.
func InnerAccountType(t *ir.Type) (*ir.Type, bool) {
	p := UnwrapBox(t)
	if p == nil || p.Kind != ir.TypeAdt || len(p.Args) == 0 {
		return nil, false
	}
	isAccount := p.DefPath == preludePrefix+"Account" ||
		strings.HasSuffix(p.DefPath, "::accounts::account::Account")
	if !isAccount && !IsAccountLoader(p) {
		return nil, false
	}
	return p.Args[len(p.Args)-1].PeelRefs(), true
}

// IsSplTokenAccount reports whether the type is one of the SPL token
// account types the framework initializes itself.
func IsSplTokenAccount(t *ir.Type) bool {
	defPath, ok := t.AdtDefPath()
	if !ok {
		return false
	}
	if !strings.Contains(defPath, "token") {
		return false
	}
	return strings.HasSuffix(defPath, "::TokenAccount") || strings.HasSuffix(defPath, "::Mint")
}

// UnwrapBox returns the inner type of Box<T>, or the type unchanged.
func UnwrapBox(t *ir.Type) *ir.Type {
	p := t.PeelRefs()
	if p != nil && p.Kind == ir.TypeAdt && p.DefPath == boxPath && len(p.Args) > 0 {
		return p.Args[0].PeelRefs()
	}
	return p
}

// IsCpiContextConstructor reports whether the callee builds a CpiContext
// (CpiContext::new or CpiContext::new_with_signer).
func IsCpiContextConstructor(f *ir.FuncRef) bool {
	if f == nil {
		return false
	}
	if f.Return != nil && IsCpiContext(f.Return) {
		return true
	}
	return strings.Contains(f.DefPath, cpiContextPath+"::new")
}

// IsNewWithSigner reports whether the callee is
// CpiContext::new_with_signer, i.e. the CPI is PDA-signed.
func IsNewWithSigner(f *ir.FuncRef) bool {
	return f != nil && f.Name() == "new_with_signer"
}

// IsInvoke reports whether the callee is one of the raw invocation entry
// points (invoke, invoke_signed and their unchecked variants).
func IsInvoke(f *ir.FuncRef) bool {
	if f == nil {
		return false
	}
	switch f.Name() {
	case "invoke", "invoke_unchecked", "invoke_signed", "invoke_signed_unchecked":
		return strings.Contains(f.DefPath, "program::invoke")
	}
	return false
}

// IsReload reports whether the callee is an account reload method.
func IsReload(f *ir.FuncRef) bool {
	return f != nil && f.Name() == "reload" && strings.Contains(f.DefPath, "anchor_lang::")
}

// IsKeyMethod reports whether the callee is the Key::key accessor.
func IsKeyMethod(f *ir.FuncRef) bool {
	return f != nil && f.Name() == "key"
}

// IsDerefMethod reports whether the callee is a Deref::deref dispatch,
// which is how reads of a wrapped account's data appear in the IR.
func IsDerefMethod(f *ir.FuncRef) bool {
	if f == nil {
		return false
	}
	return f.Name() == "deref" || f.Name() == "deref_mut"
}
