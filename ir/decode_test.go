package ir

import (
	"strings"
	"testing"

	"golang.org/x/tools/txtar"
)

// dumps holds the decode fixtures as a txtar archive, one dump per file.
const dumps = `Program dump decode fixtures.
-- valid.json --
{
  "name": "vault",
  "structs": [
    {
      "defPath": "vault::Transfer",
      "fields": [
        {"name": "from", "type": {"kind": "adt", "defPath": "anchor_lang::prelude::Signer"}, "attrs": ["mut"]},
        {"name": "to", "attrs": ["mut"]}
      ]
    }
  ],
  "files": [
    {"name": "lib.rs", "content": "pub fn transfer() {}\n"}
  ],
  "functions": [
    {
      "defPath": "vault::vault::transfer",
      "name": "transfer",
      "span": {"file": "lib.rs", "line": 1, "endLine": 1},
      "body": {
        "argCount": 1,
        "locals": [
          {},
          {"name": "ctx"},
          {}
        ],
        "blocks": [
          {
            "statements": [
              {"kind": "assign", "place": {"local": 2}, "rvalue": {"kind": "use", "operand": {"kind": "copy", "place": {"local": 1}}}}
            ],
            "terminator": {"kind": "goto", "target": 1}
          },
          {"terminator": {"kind": "return"}}
        ]
      }
    },
    {
      "defPath": "vault::vault::external",
      "name": "external"
    }
  ]
}
-- bad_successor.json --
{
  "functions": [
    {
      "defPath": "vault::vault::broken",
      "name": "broken",
      "body": {
        "argCount": 0,
        "locals": [{}],
        "blocks": [
          {"terminator": {"kind": "goto", "target": 7}}
        ]
      }
    }
  ]
}
-- bad_argcount.json --
{
  "functions": [
    {
      "defPath": "vault::vault::broken",
      "name": "broken",
      "body": {
        "argCount": 3,
        "locals": [{}, {}],
        "blocks": [
          {"terminator": {"kind": "return"}}
        ]
      }
    }
  ]
}
`

func fixture(t *testing.T, name string) string {
	t.Helper()
	ar := txtar.Parse([]byte(dumps))
	for _, f := range ar.Files {
		if f.Name == name {
			return string(f.Data)
		}
	}
	t.Fatalf("fixture %s not found", name)
	return ""
}

func TestDecodeProgram(t *testing.T) {
	prog, err := DecodeProgram(strings.NewReader(fixture(t, "valid.json")))
	if err != nil {
		t.Fatal(err)
	}

	if prog.Name != "vault" {
		t.Errorf("Name = %q, want vault", prog.Name)
	}

	def := prog.Struct("vault::Transfer")
	if def == nil {
		t.Fatal("struct index missing vault::Transfer")
	}
	if def.FieldIndex("to") != 1 {
		t.Errorf("FieldIndex(to) = %d, want 1", def.FieldIndex("to"))
	}

	fn := prog.Function("vault::vault::transfer")
	if fn == nil {
		t.Fatal("function index missing vault::vault::transfer")
	}
	if fn.Body == nil || len(fn.Body.Blocks) != 2 {
		t.Fatalf("body not decoded: %+v", fn.Body)
	}
	if fn.Body.Locals[1].Name != "ctx" {
		t.Errorf("local 1 name = %q, want ctx", fn.Body.Locals[1].Name)
	}

	stmt := fn.Body.Blocks[0].Statements[0]
	if stmt.Kind != StmtAssign || stmt.Rvalue.Kind != RvalueUse {
		t.Errorf("statement decoded as %v/%v", stmt.Kind, stmt.Rvalue.Kind)
	}
	if got := fn.Body.Blocks[0].Terminator.Target; got != 1 {
		t.Errorf("goto target = %d, want 1", got)
	}

	if ext := prog.Function("vault::vault::external"); ext == nil || ext.Body != nil {
		t.Errorf("bodyless function should decode with nil body, got %+v", ext)
	}
}

func TestDecodeDefaultsAbsentBlockTargets(t *testing.T) {
	prog, err := DecodeProgram(strings.NewReader(fixture(t, "valid.json")))
	if err != nil {
		t.Fatal(err)
	}
	fn := prog.Function("vault::vault::transfer")
	ret := fn.Body.Blocks[1].Terminator
	if ret.Target != NoBlock || ret.Otherwise != NoBlock {
		t.Errorf("return terminator targets = %d/%d, want NoBlock", ret.Target, ret.Otherwise)
	}
}

func TestDecodeRejectsBrokenGraphs(t *testing.T) {
	for _, name := range []string{"bad_successor.json", "bad_argcount.json"} {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeProgram(strings.NewReader(fixture(t, name))); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	if _, err := DecodeProgram(strings.NewReader("{not json")); err == nil {
		t.Error("expected a decode error")
	}
}
