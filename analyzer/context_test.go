package analyzer

import (
	"testing"

	"github.com/anchorsec/anchorlint/ir"
)

const (
	contextDefPath   = "anchor_lang::context::Context"
	accountPath      = "anchor_lang::prelude::Account"
	signerDefPath    = "anchor_lang::prelude::Signer"
	accountInfoPath  = "solana_program::account_info::AccountInfo"
	transferAccounts = "my_program::TransferAccounts"
)

func transferProgram() *ir.Program {
	return &ir.Program{
		Name: "my_program",
		Structs: []*ir.StructDef{
			{
				DefPath: transferAccounts,
				Fields: []*ir.FieldDef{
					{Name: "from", Type: adt(accountPath, adt("my_program::Vault"))},
					{Name: "to", Type: adt(accountPath, adt("my_program::Vault"))},
					{Name: "authority", Type: adt(signerDefPath)},
				},
			},
		},
	}
}

func contextParam(name string) ir.Param {
	return ir.Param{
		Name: name,
		Type: adt(contextDefPath, adt(transferAccounts)),
	}
}

func TestExtractContextInfo(t *testing.T) {
	prog := transferProgram()
	fn := fnWith(singleBlockBody(1, 3), contextParam("ctx"))
	a := New(prog, fn)

	info := a.ContextInfo
	if info == nil {
		t.Fatal("context parameter not recognized")
	}
	if info.Name != "ctx" {
		t.Errorf("Name = %q, want ctx", info.Name)
	}
	if info.ArgLocal != 1 {
		t.Errorf("ArgLocal = %d, want 1", info.ArgLocal)
	}
	if got, want := len(info.Accounts), 3; got != want {
		t.Fatalf("len(Accounts) = %d, want %d", got, want)
	}
	if info.Accounts["authority"] == nil || !info.Accounts["authority"].IsAdt(signerDefPath) {
		t.Errorf("authority account type = %v", info.Accounts["authority"])
	}
	if defPath, _ := info.AccountsType.AdtDefPath(); defPath != transferAccounts {
		t.Errorf("AccountsType = %q, want %q", defPath, transferAccounts)
	}
}

func TestExtractContextInfo_ReferenceParam(t *testing.T) {
	prog := transferProgram()
	param := ir.Param{Name: "ctx", Type: refOf(adt(contextDefPath, adt(transferAccounts)))}
	fn := fnWith(singleBlockBody(1, 3), param)
	a := New(prog, fn)

	if a.ContextInfo == nil {
		t.Fatal("context behind a reference not recognized")
	}
}

func TestExtractContextInfo_NoContextParam(t *testing.T) {
	prog := transferProgram()
	fn := fnWith(singleBlockBody(1, 3), ir.Param{Name: "amount", Type: &ir.Type{Kind: ir.TypePrimitive, Name: "u64"}})
	a := New(prog, fn)

	if a.ContextInfo != nil {
		t.Errorf("no context parameter, got %+v", a.ContextInfo)
	}
}

func TestUpdateContextAccounts_BareAccountsStruct(t *testing.T) {
	prog := transferProgram()
	fn := fnWith(
		singleBlockBody(1, 3),
		ir.Param{Name: "accounts", Type: refOf(adt(transferAccounts))},
	)
	a := New(prog, fn)

	if a.ContextInfo != nil {
		t.Fatal("bare accounts struct must not match without the update pass")
	}
	a.UpdateContextAccounts()
	if a.ContextInfo == nil {
		t.Fatal("accounts struct parameter not recognized by update pass")
	}
	if a.ContextInfo.Name != "accounts" {
		t.Errorf("Name = %q, want accounts", a.ContextInfo.Name)
	}
	if len(a.ContextInfo.Accounts) != 3 {
		t.Errorf("len(Accounts) = %d, want 3", len(a.ContextInfo.Accounts))
	}

	// Idempotent for identical input.
	prev := a.ContextInfo
	a.UpdateContextAccounts()
	if len(a.ContextInfo.Accounts) != len(prev.Accounts) || a.ContextInfo.Name != prev.Name {
		t.Error("second update changed the extracted info")
	}
}

func TestUpdateContextAccounts_KeepsContextMatch(t *testing.T) {
	prog := transferProgram()
	fn := fnWith(singleBlockBody(1, 3), contextParam("ctx"))
	a := New(prog, fn)

	a.UpdateContextAccounts()
	if a.ContextInfo == nil || a.ContextInfo.Name != "ctx" {
		t.Error("update pass must not clobber a context match with absence")
	}
}

// =============================================================================
// Context account tracing tests
// =============================================================================

// tracedBody builds: _2 = &(ctx.accounts.authority) modeled as
// _2 having the Signer type and a snippet pointing at the source text.
func TestIsFromCpiContext_UniqueTypeMatch(t *testing.T) {
	prog := transferProgram()
	body := singleBlockBody(1, 3)
	body.Locals[2] = ir.LocalDecl{Type: refOf(adt(signerDefPath))}
	fn := fnWith(body, contextParam("ctx"))
	a := New(prog, fn)

	acc, ok := a.IsFromCpiContext(2, nil)
	if !ok {
		t.Fatal("Signer-typed local should match the only Signer account")
	}
	if acc.AccountName != "authority" {
		t.Errorf("AccountName = %q, want authority", acc.AccountName)
	}
	if acc.AccountLocal != 1 {
		t.Errorf("AccountLocal = %d, want the context arg local", acc.AccountLocal)
	}
}

func TestIsFromCpiContext_AmbiguousResolvedBySnippet(t *testing.T) {
	prog := transferProgram()
	prog.Files = []*ir.SourceFile{
		{Name: "lib.rs", Content: "let dst = &ctx.accounts.to;\n"},
	}
	body := singleBlockBody(1, 3)
	// Account<Vault> matches both from and to; the snippet decides.
	body.Locals[2] = ir.LocalDecl{
		Type: adt(accountPath, adt("my_program::Vault")),
		Span: ir.Span{File: "lib.rs", Start: 10, End: 26, Line: 1},
	}
	fn := fnWith(body, contextParam("ctx"))
	a := New(prog, fn)

	acc, ok := a.IsFromCpiContext(2, nil)
	if !ok {
		t.Fatal("ambiguous type match should fall back to snippet matching")
	}
	if acc.AccountName != "to" {
		t.Errorf("AccountName = %q, want to", acc.AccountName)
	}
}

func TestIsFromCpiContext_NoContext(t *testing.T) {
	a := New(emptyProgram(), fnWith(singleBlockBody(0, 2)))

	if _, ok := a.IsFromCpiContext(1, nil); ok {
		t.Error("no context info, tracing must fail")
	}
}

func TestAreSameAccount(t *testing.T) {
	prog := transferProgram()
	body := singleBlockBody(1, 4)
	body.Locals[2] = ir.LocalDecl{Type: refOf(adt(signerDefPath))}
	body.Locals[3] = ir.LocalDecl{Type: adt(signerDefPath)}
	fn := fnWith(body, contextParam("ctx"))
	a := New(prog, fn)

	if !a.AreSameAccount(2, 3) {
		t.Error("both locals trace to the authority account")
	}
}
