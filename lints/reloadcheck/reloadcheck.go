// Package reloadcheck flags account data reads that can follow a CPI
// without an intervening reload(). Deserialized accounts are not
// refreshed automatically, so such reads may observe stale data.
package reloadcheck

import (
	"sort"

	"github.com/anchorsec/anchorlint/anchor"
	"github.com/anchorsec/anchorlint/analyzer"
	"github.com/anchorsec/anchorlint/ir"
	"github.com/anchorsec/anchorlint/lint"
)

var Rule = &lint.Rule{
	Name:     "missing-account-reload",
	Doc:      "account accessed after a CPI without reloading",
	Severity: lint.SeverityWarning,
}

func init() { Rule.Check = run }

func run(pass *lint.Pass) []lint.Diagnostic {
	a := pass.Analyzer
	body := a.Body
	if body == nil || pass.Fn.FromExpansion {
		return nil
	}

	// Blocks terminated by a CPI invocation.
	cpiCalls := map[ir.BlockID]ir.Span{}
	// Account path to the blocks dereferencing its data.
	accesses := map[string]map[ir.BlockID]ir.Span{}
	// Account path to the blocks reloading it.
	reloads := map[string]map[ir.BlockID]bool{}
	// Accounts threaded into a CPI context, with the construction block.
	cpiAccounts := map[string]ir.BlockID{}

	for bi := range body.Blocks {
		bb := ir.BlockID(bi)
		term := &body.Blocks[bi].Terminator
		if term.Kind != ir.TermCall || term.Callee == nil {
			continue
		}

		switch {
		case anchor.IsReload(term.Callee):
			if name, ok := accountFromArg(a, term.Args, 0); ok {
				if reloads[name] == nil {
					reloads[name] = map[ir.BlockID]bool{}
				}
				reloads[name][bb] = true
			}

		case anchor.IsInvoke(term.Callee):
			cpiCalls[bb] = term.Span
			// Raw invocations carry their accounts in the account_infos
			// vector instead of a CPI context.
			if len(term.Args) > 1 {
				for _, acct := range a.CollectAccountsFromAccountInfosArg(&term.Args[1], false) {
					cpiAccounts[acct.AccountName] = bb
				}
			}

		case anchor.IsDerefMethod(term.Callee):
			if name, ok := accountFromArg(a, term.Args, 0); ok {
				if accesses[name] == nil {
					accesses[name] = map[ir.BlockID]ir.Span{}
				}
				accesses[name][bb] = term.Span
			}

		case a.TakesCpiContext(term.Args):
			cpiCalls[bb] = term.Span

		case anchor.IsCpiContext(term.Callee.Return):
			if len(term.Args) < 2 {
				break
			}
			accountsLocal, ok := term.Args[1].AsLocal()
			if !ok {
				break
			}
			fields, ok := a.FindCpiAccountsStruct(accountsLocal)
			if !ok {
				break
			}
			for _, fieldLocal := range fields {
				if name, ok := accountName(a, fieldLocal); ok {
					cpiAccounts[name] = bb
				}
			}
		}
	}

	// An account only matters if its context actually reaches a CPI.
	cpiBlocks := map[ir.BlockID]bool{}
	for bb := range cpiCalls {
		cpiBlocks[bb] = true
	}
	for name, bb := range cpiAccounts {
		// Accounts recorded at the invocation itself already reach it.
		if cpiBlocks[bb] {
			continue
		}
		if _, ok := body.FirstReachable(bb, func(b ir.BlockID) bool { return cpiBlocks[b] }); !ok {
			delete(cpiAccounts, name)
		}
	}

	var diags []lint.Diagnostic
	for _, name := range sortedAccessNames(accesses) {
		if _, ok := cpiAccounts[name]; !ok {
			continue
		}
		blocks := accesses[name]
		for _, pair := range reachableWithoutPassing(body, cpiBlocks, blockSet(blocks), reloads[name]) {
			d := pass.Report(Rule, blocks[pair.to],
				"accessing an account after a CPI without calling `reload()`")
			d.Note = "CPI is here"
			d.NoteSpan = cpiCalls[pair.from]
			diags = append(diags, d)
		}
	}
	return diags
}

func accountFromArg(a *analyzer.Analyzer, args []ir.Operand, idx int) (string, bool) {
	if idx >= len(args) {
		return "", false
	}
	local, ok := args[idx].AsLocal()
	if !ok {
		return "", false
	}
	return accountName(a, local)
}

// accountName recovers the full `ctx.accounts.x` path for a local.
func accountName(a *analyzer.Analyzer, local ir.Local) (string, bool) {
	names := a.AccountNamesForLocal(local, false)
	if len(names) == 0 {
		return "", false
	}
	return names[0].AccountName, true
}

type reachedPair struct {
	to, from ir.BlockID
}

// reachableWithoutPassing finds blocks in to reachable from a block in
// from without passing through a block in without, paired with the origin
// they were reached from.
func reachableWithoutPassing(body *ir.Body, from map[ir.BlockID]bool, to []ir.BlockID, without map[ir.BlockID]bool) []reachedPair {
	origin := map[ir.BlockID]ir.BlockID{}
	visited := map[ir.BlockID]bool{}
	var queue []ir.BlockID

	for _, f := range sortedBlockSet(from) {
		origin[f] = f
		visited[f] = true
		queue = append(queue, f)
	}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if without[u] {
			continue
		}
		block := body.Block(u)
		if block == nil {
			continue
		}
		for _, succ := range block.Terminator.Successors() {
			if without[succ] || visited[succ] {
				continue
			}
			origin[succ] = origin[u]
			visited[succ] = true
			queue = append(queue, succ)
		}
	}

	var pairs []reachedPair
	for _, bb := range to {
		if o, ok := origin[bb]; ok {
			pairs = append(pairs, reachedPair{to: bb, from: o})
		}
	}
	return pairs
}

func blockSet(m map[ir.BlockID]ir.Span) []ir.BlockID {
	blocks := make([]ir.BlockID, 0, len(m))
	for bb := range m {
		blocks = append(blocks, bb)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })
	return blocks
}

func sortedBlockSet(m map[ir.BlockID]bool) []ir.BlockID {
	blocks := make([]ir.BlockID, 0, len(m))
	for bb := range m {
		blocks = append(blocks, bb)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })
	return blocks
}

func sortedAccessNames(m map[string]map[ir.BlockID]ir.Span) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
