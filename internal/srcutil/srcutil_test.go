package srcutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveComments(t *testing.T) {
	in := "let a = 1;\n// comment line\n    // indented comment\nlet b = 2;"
	assert.Equal(t, "let a = 1;\nlet b = 2;", RemoveComments(in))
}

func TestExtractAccountName(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"ctx accounts path", "ctx.accounts.vault", "vault", true},
		{"ctx accounts with call", "ctx.accounts.vault.to_account_info()", "vault", true},
		{"mut ref prefix", "&mut ctx.accounts.vault", "vault", true},
		{"bare accounts path", "accounts.payer", "payer", true},
		{"one dot takes receiver", "vault.key()", "vault", true},
		{"two dots takes last", "self.vault.amount", "amount", true},
		{"bare identifier", "vault", "vault", true},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractAccountName(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractContextAccount(t *testing.T) {
	name, ok := ExtractContextAccount("let v = &mut ctx.accounts.vault;", true)
	assert.True(t, ok)
	assert.Equal(t, "vault", name)

	full, ok := ExtractContextAccount("let v = &mut ctx.accounts.vault;", false)
	assert.True(t, ok)
	assert.Equal(t, "ctx.accounts.vault", full)

	_, ok = ExtractContextAccount("// ctx.accounts.vault", true)
	assert.False(t, ok)
}

func TestExtractVecElements(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "simple",
			in:   "vec![a, b, c]",
			want: []string{"a", "b", "c"},
		},
		{
			name: "nested brackets",
			in:   "vec![ctx.accounts.from.to_account_info(), accounts[0].clone()]",
			want: []string{"ctx.accounts.from.to_account_info()", "accounts[0].clone()"},
		},
		{
			name: "paren form",
			in:   "vec!(a, b)",
			want: []string{"a", "b"},
		},
		{
			name: "ref prefix",
			in:   "&vec![a]",
			want: []string{"a"},
		},
		{
			name: "not a vec literal",
			in:   "accounts.to_vec()",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractVecElements(tt.in))
		})
	}
}

func TestExtractVecElementsUnterminated(t *testing.T) {
	got := ExtractVecElements("vec![a, b;")
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestBalancedSnippet(t *testing.T) {
	lines := []string{
		"let accounts = vec![",
		"    ctx.accounts.from.to_account_info(),",
		"    ctx.accounts.to.to_account_info(),",
		"];",
		"invoke(&ix, &accounts)?;",
	}
	got := BalancedSnippet(lines)
	assert.Contains(t, got, "vec![")
	assert.Contains(t, got, "];")
	assert.NotContains(t, got, "invoke")
}
