package ir

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// UnmarshalJSON decodes a terminator, defaulting absent block targets to
// NoBlock so a missing "target" is not confused with block 0.
func (t *Terminator) UnmarshalJSON(data []byte) error {
	type terminator Terminator
	aux := terminator{Target: NoBlock, Otherwise: NoBlock}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = Terminator(aux)
	return nil
}

// DecodeProgram reads a host program dump from r.
func DecodeProgram(r io.Reader) (*Program, error) {
	var p Program
	dec := json.NewDecoder(r)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("ir: decoding program dump: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	p.buildIndexes()
	return &p, nil
}

// LoadProgram reads a host program dump from a file.
func LoadProgram(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ir: opening program dump: %w", err)
	}
	defer f.Close()
	return DecodeProgram(f)
}

// validate rejects dumps whose block graph is structurally broken. The
// host is expected to emit well-formed bodies; this only guards the I/O
// boundary, the kernel itself assumes validated input.
func (p *Program) validate() error {
	for _, fn := range p.Functions {
		body := fn.Body
		if body == nil {
			continue
		}
		if body.ArgCount < 0 || (len(body.Locals) > 0 && body.ArgCount > len(body.Locals)-1) {
			return fmt.Errorf("ir: function %s: argCount %d out of range", fn.DefPath, body.ArgCount)
		}
		for i, block := range body.Blocks {
			for _, succ := range block.Terminator.Successors() {
				if succ < 0 || int(succ) >= len(body.Blocks) {
					return fmt.Errorf("ir: function %s: block %d has successor %d out of range", fn.DefPath, i, succ)
				}
			}
		}
	}
	return nil
}
