package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/mediums/pkg/types"
)

// output writes text results to a command's stdout.
type output struct {
	w io.Writer
}

func (o *output) printf(format string, args ...any) {
	fmt.Fprintf(o.w, format, args...)
}

func (o *output) printInfo(info mediumInfo) {
	o.printf("bounds:     [%s, %s) %d bytes\n", info.Start, info.End, info.Size)
	o.printf("word size:  %d\n", info.WordSize)
	if info.EraseSize > 0 {
		o.printf("erase size: %d (value 0x%02x)\n", info.EraseSize, info.EraseValue)
	}
	o.printf("caps:       %s\n", info.Caps)
	if info.ID != "" {
		o.printf("id:         %s\n", info.ID)
	}
}

// hexLines writes data sixteen bytes per line, each prefixed with its
// address.
func (o *output) hexLines(addr types.Address, data []byte) {
	for off := 0; off < len(data); off += 16 {
		end := min(off+16, len(data))
		o.printf("%s  % x\n", addr+types.Address(off), data[off:end])
	}
}

// emit prints v as indented JSON in --json mode and calls text otherwise.
func (a *app) emit(cmd *cobra.Command, v any, text func(*output)) error {
	if a.flags.jsonMode {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return sysError(fmt.Errorf("encode output: %w", err))
		}
		return nil
	}
	text(&output{w: cmd.OutOrStdout()})
	return nil
}

// mediumInfo is the description printed by init and info.
type mediumInfo struct {
	Name    string `json:"name"`
	Backend string `json:"backend"`
	ID      string `json:"id,omitempty"`
	DataDir string `json:"data_dir,omitempty"`
	types.Info
	Wear []uint64 `json:"wear,omitempty"`
}

func describe(m types.Medium, cfg types.Config) mediumInfo {
	info := mediumInfo{
		Name:    cfg.MediumName(),
		Backend: cfg.Backend,
		Info:    types.Describe(m),
	}
	if at, ok := m.(types.Attachable); ok {
		info.ID = at.ID()
		info.DataDir = cfg.DataDir
	}
	return info
}
