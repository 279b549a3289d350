package directive

import (
	"testing"

	"github.com/anchorsec/anchorlint/ir"
)

func TestParseIgnore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		wantRule string
		wantOK   bool
	}{
		{"exact match", "//anchorlint:ignore", "", true},
		{"with space", "// anchorlint:ignore", "", true},
		{"with extra spaces", "//  anchorlint:ignore", "", true},
		{"trailing reason", "// anchorlint:ignore legacy handler", "", true},
		{"rule scoped", "// anchorlint:ignore:arbitrary-cpi", "arbitrary-cpi", true},
		{"rule scoped with reason", "// anchorlint:ignore:missing-account-reload audited", "missing-account-reload", true},
		{"dangling colon", "// anchorlint:ignore:", "", false},
		{"glued suffix", "// anchorlint:ignored", "", false},
		{"random comment", "// some comment", "", false},
		{"empty", "//", "", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rule, ok := ParseIgnore(tt.text)
			if ok != tt.wantOK || rule != tt.wantRule {
				t.Errorf("ParseIgnore(%q) = (%q, %v), want (%q, %v)", tt.text, rule, ok, tt.wantRule, tt.wantOK)
			}
		})
	}
}

func TestFromSource(t *testing.T) {
	t.Parallel()

	src := `pub fn handler(ctx: Context<Op>) -> Result<()> {
    // anchorlint:ignore
    invoke(&ix, accounts)?;
    ctx.accounts.vault.amount = 0; // anchorlint:ignore:missing-account-reload
    Ok(())
}
`
	m := FromSource(src)
	if len(m) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(m))
	}
	if entry, ok := m[2]; !ok || entry.rule != "" {
		t.Errorf("line 2: got %+v, want unscoped entry", entry)
	}
	if entry, ok := m[4]; !ok || entry.rule != "missing-account-reload" {
		t.Errorf("line 4: got %+v, want missing-account-reload entry", entry)
	}
}

func TestIgnoreMapShouldIgnore(t *testing.T) {
	t.Parallel()

	t.Run("same line", func(t *testing.T) {
		t.Parallel()

		m := IgnoreMap{10: &ignoreEntry{}}
		if !m.ShouldIgnore(10, "arbitrary-cpi") {
			t.Error("ShouldIgnore(10) should return true (same line)")
		}
	})

	t.Run("next line", func(t *testing.T) {
		t.Parallel()

		m := IgnoreMap{20: &ignoreEntry{}}
		if !m.ShouldIgnore(21, "arbitrary-cpi") {
			t.Error("ShouldIgnore(21) should return true (previous line has ignore)")
		}
	})

	t.Run("non-ignored line", func(t *testing.T) {
		t.Parallel()

		m := IgnoreMap{10: &ignoreEntry{}}
		if m.ShouldIgnore(5, "arbitrary-cpi") {
			t.Error("ShouldIgnore(5) should return false")
		}
	})

	t.Run("rule scope match", func(t *testing.T) {
		t.Parallel()

		m := IgnoreMap{10: &ignoreEntry{rule: "cpi-no-result"}}
		if !m.ShouldIgnore(10, "cpi-no-result") {
			t.Error("scoped entry should suppress its own rule")
		}
	})

	t.Run("rule scope mismatch", func(t *testing.T) {
		t.Parallel()

		m := IgnoreMap{10: &ignoreEntry{rule: "cpi-no-result"}}
		if m.ShouldIgnore(10, "arbitrary-cpi") {
			t.Error("scoped entry must not suppress other rules")
		}
	})
}

func TestIgnoreMapUnusedLines(t *testing.T) {
	t.Parallel()

	m := IgnoreMap{
		10: &ignoreEntry{},
		20: &ignoreEntry{},
	}
	m.ShouldIgnore(20, "arbitrary-cpi")

	unused := m.UnusedLines()
	if len(unused) != 1 || unused[0] != 10 {
		t.Errorf("UnusedLines() = %v, want [10]", unused)
	}
}

func TestIndex(t *testing.T) {
	t.Parallel()

	prog := &ir.Program{Files: []*ir.SourceFile{
		{Name: "programs/vault/src/lib.rs", Content: "// anchorlint:ignore\ninvoke(&ix, accounts)?;\n"},
		{Name: "programs/vault/src/state.rs", Content: "pub amount: u64,\n"},
	}}

	idx := BuildIndex(prog)
	if len(idx) != 1 {
		t.Fatalf("expected 1 indexed file, got %d", len(idx))
	}

	span := ir.Span{File: "programs/vault/src/lib.rs", Line: 2}
	if !idx.ShouldIgnore(span, "arbitrary-cpi") {
		t.Error("directive on line 1 should cover line 2")
	}
	if idx.ShouldIgnore(ir.Span{File: "programs/vault/src/state.rs", Line: 1}, "arbitrary-cpi") {
		t.Error("file without directives should not suppress anything")
	}

	if unused := idx.Unused(); len(unused) != 0 {
		t.Errorf("Unused() = %v, want none after suppression", unused)
	}
}
