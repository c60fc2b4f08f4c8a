package mapfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// dump writes a finished block to the debug directory. Failures are logged
// and never abort the parse.
func (p *Parser) dump(index int, t *Table) {
	path := filepath.Join(p.dumpDir, fmt.Sprintf("exit_%d.json", index))

	data, err := json.MarshalIndent(t, "", " ")
	if err != nil {
		p.log.Warn("Failed to encode block dump", "block", t.Name(), "error", err)
		return
	}
	if err := os.MkdirAll(p.dumpDir, 0o755); err != nil {
		p.log.Warn("Failed to create dump directory", "dir", p.dumpDir, "error", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		p.log.Warn("Failed to write block dump", "path", path, "error", err)
		return
	}
	p.log.Debug("Block dumped", "block", t.Name(), "path", path)
}
