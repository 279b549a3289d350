// Package analyzer is the per-function analysis kernel every rule is built
// on. Given one function of a decoded program it derives:
//
//   - an assignment graph over the body's locals, with a forward
//     classification map, a direct reverse map, and its transitive closure;
//   - a receiver map linking call destinations back to receiver locals;
//   - the Anchor context parameter, if any, with its declared accounts;
//   - origin resolution tracing any local to a constant, a parameter, or
//     an unknown source.
//
// The kernel never reports diagnostics and never logs; anything worth
// surfacing during construction is appended to Notes for the caller.
package analyzer

import (
	"github.com/anchorsec/anchorlint/ir"
)

// Analyzer holds the per-function analysis state shared by all rules.
// Construct one per function with New; the maps are read-only afterwards,
// so a single Analyzer may serve any number of rules concurrently.
type Analyzer struct {
	Program *ir.Program
	Fn      *ir.Function
	Body    *ir.Body

	// AssignmentMap classifies the last assignment to each local.
	AssignmentMap map[ir.Local]Assignment
	// ReverseAssignmentMap maps a source local to every local directly
	// assigned from it.
	ReverseAssignmentMap map[ir.Local][]ir.Local
	// TransitiveReverseMap is the closure of ReverseAssignmentMap. Each
	// destination list is sorted.
	TransitiveReverseMap map[ir.Local][]ir.Local
	// CpiAccountLocalMap maps an aggregate destination local to the field
	// locals it was built from, recorded only for recognized CPI
	// accounts-struct types.
	CpiAccountLocalMap map[ir.Local][]ir.Local
	// MethodCallReceiverMap maps a call destination local to the call's
	// first-argument local.
	MethodCallReceiverMap map[ir.Local]ir.Local

	Dominators *ir.Dominators

	// ContextInfo is present iff the function takes an Anchor context
	// parameter (or, after UpdateContextAccounts, a bare accounts struct).
	ContextInfo *ContextInfo

	// Params lists the function's single-account parameters in declared
	// order.
	Params []ParamInfo

	// Notes collects non-fatal observations made while building the maps.
	Notes []string

	// Sorted key views used to keep map walks deterministic.
	reverseKeys    []ir.Local
	transitiveKeys []ir.Local
}

// New builds the analysis state for fn. Functions without a body yield an
// Analyzer with empty maps, which every query treats as "nothing known".
func New(prog *ir.Program, fn *ir.Function) *Analyzer {
	a := &Analyzer{
		Program:               prog,
		Fn:                    fn,
		Body:                  fn.Body,
		AssignmentMap:         map[ir.Local]Assignment{},
		ReverseAssignmentMap:  map[ir.Local][]ir.Local{},
		TransitiveReverseMap:  map[ir.Local][]ir.Local{},
		CpiAccountLocalMap:    map[ir.Local][]ir.Local{},
		MethodCallReceiverMap: map[ir.Local]ir.Local{},
	}
	if a.Body == nil {
		return a
	}

	maps := buildAnalysisMaps(a.Body)
	a.AssignmentMap = maps.assignment
	a.ReverseAssignmentMap = maps.reverse
	a.CpiAccountLocalMap = maps.cpiAccount
	a.Notes = maps.notes
	a.TransitiveReverseMap = buildTransitiveReverseMap(maps.reverse)
	a.MethodCallReceiverMap = buildMethodCallReceiverMap(a.Body)
	a.reverseKeys = sortedKeys(a.ReverseAssignmentMap)
	a.transitiveKeys = sortedKeys(a.TransitiveReverseMap)

	a.Dominators = ir.ComputeDominators(a.Body)
	a.ContextInfo = extractContextInfo(prog, fn)
	a.Params = collectParamInfo(fn)
	return a
}

// UpdateContextAccounts refines ContextInfo for functions whose accounts
// struct is passed directly instead of wrapped in Context<T>. A match
// replaces the prior info; no match leaves it untouched. Calling this
// twice on the same function is a no-op the second time.
func (a *Analyzer) UpdateContextAccounts() {
	if info := contextInfoFromAccountsParam(a.Program, a.Fn); info != nil {
		a.ContextInfo = info
	}
}
