// Package fieldinit flags init handlers that leave fields of a freshly
// created account unassigned. A forgotten authority or limit keeps its
// zeroed default, which is a common source of logic bugs.
package fieldinit

import (
	"fmt"
	"strings"

	"github.com/anchorsec/anchorlint/anchor"
	"github.com/anchorsec/anchorlint/analyzer"
	"github.com/anchorsec/anchorlint/ir"
	"github.com/anchorsec/anchorlint/lint"
)

var Rule = &lint.Rule{
	Name:     "missing-account-field-init",
	Doc:      "account initialized with some fields left unset",
	Severity: lint.SeverityWarning,
}

func init() { Rule.Check = run }

// maxNestedDepth bounds recursion into same-crate helper functions.
const maxNestedDepth = 4

type initAccount struct {
	name     string
	span     ir.Span
	inner    *ir.Type
	isLoader bool
}

func run(pass *lint.Pass) []lint.Diagnostic {
	a := pass.Analyzer
	if a.Body == nil || pass.Fn.FromExpansion {
		return nil
	}
	info := a.ContextInfo
	if info == nil {
		return nil
	}

	accounts := extractInitAccounts(pass.Program, info)
	if len(accounts) == 0 {
		return nil
	}

	assigned := map[string]map[string]bool{}
	collectAssignments(pass.Program, a, accounts, assigned, 0)

	var diags []lint.Diagnostic
	for _, acc := range accounts {
		def := pass.Program.StructFor(acc.inner)
		if def == nil {
			continue
		}
		var missing []string
		for _, field := range def.Fields {
			if shouldIgnoreField(pass.Program, field) {
				continue
			}
			if !assigned[acc.name][field.Name] {
				missing = append(missing, field.Name)
			}
		}
		if len(missing) == 0 {
			continue
		}
		d := pass.Report(Rule, acc.span, fmt.Sprintf(
			"account `%s` is initialized but the following fields are never assigned: %s",
			acc.name, strings.Join(missing, ", ")))
		d.Note = "In this function"
		d.NoteSpan = pass.Fn.Span
		diags = append(diags, d)
	}
	return diags
}

// extractInitAccounts returns the context accounts carrying an init
// constraint, with their inner data type. SPL token accounts are skipped
// since the framework initializes those itself.
func extractInitAccounts(prog *ir.Program, info *analyzer.ContextInfo) []initAccount {
	def := prog.StructFor(info.AccountsType)
	if def == nil {
		return nil
	}
	var accounts []initAccount
	for _, field := range def.Fields {
		if !anchor.ExtractConstraint(field).HasInit {
			continue
		}
		inner, ok := anchor.InnerAccountType(field.Type)
		if !ok || anchor.IsSplTokenAccount(inner) {
			continue
		}
		accounts = append(accounts, initAccount{
			name:     field.Name,
			span:     field.Span,
			inner:    inner,
			isLoader: anchor.IsAccountLoader(field.Type),
		})
	}
	return accounts
}

// collectAssignments gathers per-account field assignments from the
// function body: direct field writes, full struct assignments, set_inner
// calls, and same-crate helper functions the accounts are handed to.
func collectAssignments(prog *ir.Program, a *analyzer.Analyzer, accounts []initAccount, out map[string]map[string]bool, depth int) {
	body := a.Body
	if body == nil {
		return
	}

	aliases := buildAliasMap(body, accounts)
	markStructLiteralAssignments(prog, body, accounts, out)

	for bi := range body.Blocks {
		block := &body.Blocks[bi]
		for si := range block.Statements {
			stmt := &block.Statements[si]
			if stmt.Kind != ir.StmtAssign {
				continue
			}

			if name, ok := fullStructAssignment(prog, a, stmt, accounts, aliases); ok {
				markAllFields(prog, accountByName(accounts, name), out)
				continue
			}

			base, fieldName, ok := fieldWrite(&stmt.Place)
			if !ok {
				continue
			}
			name, ok := resolveBaseAccount(prog, a, base, accounts, aliases)
			if !ok {
				continue
			}
			mark(out, name, fieldName)
		}

		term := &block.Terminator
		if term.Kind != ir.TermCall || term.Callee == nil {
			continue
		}

		if isSetInner(term.Callee) {
			handleSetInner(prog, a, term.Args, accounts, out)
			continue
		}

		if depth < maxNestedDepth {
			analyzeNestedCall(prog, a, term, accounts, out, depth)
		}
	}
}

// buildAliasMap tracks locals assigned from ctx.accounts.<name> for the
// init accounts.
func buildAliasMap(body *ir.Body, accounts []initAccount) map[ir.Local]string {
	aliases := map[ir.Local]string{}
	for bi := range body.Blocks {
		for si := range body.Blocks[bi].Statements {
			stmt := &body.Blocks[bi].Statements[si]
			if stmt.Kind != ir.StmtAssign {
				continue
			}
			lhs, ok := stmt.Place.AsLocal()
			if !ok {
				continue
			}
			var rhs *ir.Place
			switch stmt.Rvalue.Kind {
			case ir.RvalueUse:
				if stmt.Rvalue.Operand.IsPlace() {
					rhs = &stmt.Rvalue.Operand.Place
				}
			case ir.RvalueRef:
				rhs = &stmt.Rvalue.Place
			}
			if rhs == nil {
				continue
			}
			for _, proj := range rhs.Projection {
				if proj.Kind != ir.ProjField {
					continue
				}
				if accountByName(accounts, proj.Field) != nil {
					aliases[lhs] = proj.Field
					break
				}
			}
		}
	}
	return aliases
}

// markStructLiteralAssignments handles whole-value initialization through
// a struct literal that is then stored into the account.
func markStructLiteralAssignments(prog *ir.Program, body *ir.Body, accounts []initAccount, out map[string]map[string]bool) {
	type literal struct {
		local  ir.Local
		fields int
	}
	literalsByName := map[string][]literal{}

	for bi := range body.Blocks {
		for si := range body.Blocks[bi].Statements {
			stmt := &body.Blocks[bi].Statements[si]
			if stmt.Kind != ir.StmtAssign || stmt.Rvalue.Kind != ir.RvalueAggregate {
				continue
			}
			dest, ok := stmt.Place.AsLocal()
			if !ok {
				continue
			}
			for i := range accounts {
				if ir.SameAdt(stmt.Rvalue.AggregateType, accounts[i].inner) {
					literalsByName[accounts[i].name] = append(literalsByName[accounts[i].name],
						literal{local: dest, fields: len(stmt.Rvalue.Operands)})
				}
			}
		}
	}
	if len(literalsByName) == 0 {
		return
	}

	usedLocals := map[ir.Local]bool{}
	for bi := range body.Blocks {
		for si := range body.Blocks[bi].Statements {
			stmt := &body.Blocks[bi].Statements[si]
			if stmt.Kind != ir.StmtAssign || stmt.Rvalue.Kind != ir.RvalueUse {
				continue
			}
			if local, ok := stmt.Rvalue.Operand.AsLocal(); ok {
				usedLocals[local] = true
			}
		}
	}

	for i := range accounts {
		acc := &accounts[i]
		def := prog.StructFor(acc.inner)
		if def == nil {
			continue
		}
		for _, lit := range literalsByName[acc.name] {
			if lit.fields < len(def.Fields) || !usedLocals[lit.local] {
				continue
			}
			markAllFields(prog, acc, out)
			break
		}
	}
}

// fullStructAssignment detects `*account = Struct { .. }` and
// `*account = Struct::new(..)` writes, which initialize every field.
func fullStructAssignment(prog *ir.Program, a *analyzer.Analyzer, stmt *ir.Statement, accounts []initAccount, aliases map[ir.Local]string) (string, bool) {
	hasDeref := false
	for _, proj := range stmt.Place.Projection {
		switch proj.Kind {
		case ir.ProjDeref:
			hasDeref = true
		case ir.ProjField:
			return "", false
		}
	}
	if !hasDeref {
		return "", false
	}

	isConstructor := false
	switch stmt.Rvalue.Kind {
	case ir.RvalueAggregate:
		isConstructor = true
	case ir.RvalueUse:
		if local, ok := stmt.Rvalue.Operand.AsLocal(); ok {
			isConstructor = localFromConstructorCall(a.Body, local)
		}
	}
	if !isConstructor {
		return "", false
	}
	return resolveBaseAccount(prog, a, stmt.Place.Local, accounts, aliases)
}

func localFromConstructorCall(body *ir.Body, local ir.Local) bool {
	for bi := range body.Blocks {
		term := &body.Blocks[bi].Terminator
		if term.Kind != ir.TermCall || term.Callee == nil {
			continue
		}
		dest, ok := term.Destination.AsLocal()
		if !ok || dest != local {
			continue
		}
		if strings.Contains(term.Callee.DefPath, "::new") {
			return true
		}
	}
	return false
}

// fieldWrite decomposes `<base>.<field> = ...` places, tolerating derefs
// along the way.
func fieldWrite(place *ir.Place) (ir.Local, string, bool) {
	fieldName := ""
	for _, proj := range place.Projection {
		switch proj.Kind {
		case ir.ProjDeref:
		case ir.ProjField:
			fieldName = proj.Field
		default:
			return ir.NoLocal, "", false
		}
	}
	if fieldName == "" {
		return ir.NoLocal, "", false
	}
	return place.Local, fieldName, true
}

// resolveBaseAccount maps the base local of a field write back to the
// init account it aliases: debug name, method receiver alias, source
// snippet, assignment source, then the inner type as a last resort.
func resolveBaseAccount(prog *ir.Program, a *analyzer.Analyzer, base ir.Local, accounts []initAccount, aliases map[ir.Local]string) (string, bool) {
	if decl, ok := a.Body.LocalDecl(base); ok && decl.Name != "" {
		for i := range accounts {
			if decl.Name == accounts[i].name || strings.HasPrefix(decl.Name, accounts[i].name) {
				return accounts[i].name, true
			}
		}
	}

	if receiver, ok := a.MethodCallReceiverMap[base]; ok {
		if name, ok := aliases[receiver]; ok {
			return name, true
		}
	}
	if name, ok := aliases[base]; ok {
		return name, true
	}

	if name, ok := accountFromSnippet(prog, a, base, accounts); ok {
		return name, true
	}

	if resolved := a.ResolveToOriginalLocal(base); resolved != base {
		if name, ok := aliases[resolved]; ok {
			return name, true
		}
		if name, ok := accountFromSnippet(prog, a, resolved, accounts); ok {
			return name, true
		}
	}

	if inner, ok := anchor.InnerAccountType(a.TypeOfLocal(base)); ok {
		for i := range accounts {
			if ir.SameAdt(inner, accounts[i].inner) {
				return accounts[i].name, true
			}
		}
	}
	t := a.TypeOfLocal(base)
	for i := range accounts {
		if ir.SameAdt(t, accounts[i].inner) {
			return accounts[i].name, true
		}
	}
	return "", false
}

func accountFromSnippet(prog *ir.Program, a *analyzer.Analyzer, local ir.Local, accounts []initAccount) (string, bool) {
	span, ok := a.SpanOfLocal(local)
	if !ok {
		return "", false
	}
	snippet, ok := prog.Snippet(span)
	if !ok {
		return "", false
	}
	ctxName := ""
	if a.ContextInfo != nil {
		ctxName = a.ContextInfo.Name
	}
	parts := strings.Split(snippet, ".")
	switch {
	case len(parts) == 4 && parts[0] == ctxName && parts[1] == "accounts":
		if accountByName(accounts, parts[2]) != nil {
			return parts[2], true
		}
	case len(parts) == 3 && parts[0] == ctxName:
		if accountByName(accounts, parts[1]) != nil {
			return parts[1], true
		}
	}
	return "", false
}

func isSetInner(f *ir.FuncRef) bool {
	return f.Name() == "set_inner" && strings.Contains(f.DefPath, "anchor_lang::")
}

// handleSetInner treats account.set_inner(value) as assigning every
// field.
func handleSetInner(prog *ir.Program, a *analyzer.Analyzer, args []ir.Operand, accounts []initAccount, out map[string]map[string]bool) {
	if len(args) == 0 {
		return
	}
	local, ok := args[0].AsLocal()
	if !ok {
		return
	}
	names := a.AccountNamesForLocal(local, true)
	if len(names) == 0 {
		return
	}
	name := names[0].AccountName
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	if acc := accountByName(accounts, name); acc != nil {
		markAllFields(prog, acc, out)
	}
}

// analyzeNestedCall follows same-crate helper functions the init accounts
// are handed to and credits the assignments they make. Trait methods on
// zero-copy loaders have no body to analyze; their accounts are treated
// as fully initialized to avoid false positives.
func analyzeNestedCall(prog *ir.Program, a *analyzer.Analyzer, term *ir.Terminator, accounts []initAccount, out map[string]map[string]bool, depth int) {
	callee := term.Callee
	crate := cratePrefix(a.Fn.DefPath)
	if crate == "" || cratePrefix(callee.DefPath) != crate {
		return
	}

	passed := passedInitAccounts(a, term.Args, accounts)
	if len(passed) == 0 {
		return
	}

	calleeFn := prog.Function(callee.DefPath)
	if calleeFn == nil || calleeFn.Body == nil {
		if callee.IsMethod {
			for i := range passed {
				if passed[i].isLoader {
					markAllFields(prog, &passed[i], out)
				}
			}
		}
		return
	}

	nested := analyzer.New(prog, calleeFn)
	if nested.ContextInfo == nil {
		nested.UpdateContextAccounts()
	}
	collectAssignments(prog, nested, passed, out, depth+1)
}

// passedInitAccounts finds which init accounts reach the call, by
// matching the arguments' inner types.
func passedInitAccounts(a *analyzer.Analyzer, args []ir.Operand, accounts []initAccount) []initAccount {
	var passed []initAccount
	seen := map[string]bool{}
	for i := range args {
		t := a.TypeOfOperand(&args[i])
		if t == nil {
			continue
		}
		inner, ok := anchor.InnerAccountType(t)
		if !ok {
			inner = t.PeelRefs()
		}
		for j := range accounts {
			if !seen[accounts[j].name] && ir.SameAdt(inner, accounts[j].inner) {
				seen[accounts[j].name] = true
				passed = append(passed, accounts[j])
			}
		}
	}
	return passed
}

func cratePrefix(defPath string) string {
	if i := strings.Index(defPath, "::"); i >= 0 {
		return defPath[:i]
	}
	return ""
}

// shouldIgnoreField skips padding, reserved, underscore, tuple-index and
// primitive-typed fields.
func shouldIgnoreField(prog *ir.Program, field *ir.FieldDef) bool {
	n := field.Name
	if strings.HasPrefix(n, "padding") || strings.HasPrefix(n, "reserved") ||
		strings.HasPrefix(n, "_") || n == "0" {
		return true
	}
	return isPrimitiveType(prog, field.Type, map[string]bool{})
}

// isPrimitiveType covers primitives, arrays of primitives, and structs
// made only of primitives. Pubkey fields always count as meaningful.
func isPrimitiveType(prog *ir.Program, t *ir.Type, visiting map[string]bool) bool {
	t = t.PeelRefs()
	if t == nil {
		return false
	}
	switch t.Kind {
	case ir.TypeBool, ir.TypePrimitive:
		return true
	case ir.TypeSlice:
		return isPrimitiveType(prog, t.Elem, visiting)
	case ir.TypeAdt:
		if strings.HasSuffix(t.DefPath, "::Pubkey") || strings.HasSuffix(t.DefPath, "::Signer") {
			return false
		}
		if visiting[t.DefPath] {
			return false
		}
		def := prog.Struct(t.DefPath)
		if def == nil || len(def.Fields) == 0 {
			return false
		}
		visiting[t.DefPath] = true
		defer delete(visiting, t.DefPath)
		for _, f := range def.Fields {
			if !isPrimitiveType(prog, f.Type, visiting) {
				return false
			}
		}
		return true
	}
	return false
}

func accountByName(accounts []initAccount, name string) *initAccount {
	for i := range accounts {
		if accounts[i].name == name {
			return &accounts[i]
		}
	}
	return nil
}

func markAllFields(prog *ir.Program, acc *initAccount, out map[string]map[string]bool) {
	if acc == nil {
		return
	}
	def := prog.StructFor(acc.inner)
	if def == nil {
		return
	}
	for _, field := range def.Fields {
		if !shouldIgnoreField(prog, field) {
			mark(out, acc.name, field.Name)
		}
	}
}

func mark(out map[string]map[string]bool, account, field string) {
	if out[account] == nil {
		out[account] = map[string]bool{}
	}
	out[account][field] = true
}
