package cli

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/mediums/pkg/image"
	"github.com/mesh-intelligence/mediums/pkg/mediums"
	"github.com/mesh-intelligence/mediums/pkg/ops"
	"github.com/mesh-intelligence/mediums/pkg/types"
)

// configErrors are Open failures caused by the configuration rather than
// the environment.
var configErrors = []error{
	types.ErrBackendEmpty,
	types.ErrBackendUnknown,
	types.ErrWordSizeInvalid,
	types.ErrEraseSizeInvalid,
	types.ErrSizeInvalid,
	types.ErrGeometryMismatch,
}

// open builds the configured medium.
func (a *app) open() (types.ReadWriteEraser, mediums.CloseFunc, types.Config, error) {
	cfg, _, err := a.resolveConfig()
	if err != nil {
		return nil, nil, cfg, err
	}
	log := a.logger()
	m, closeFn, err := mediums.Open(cfg, log)
	if err != nil {
		for _, ce := range configErrors {
			if errors.Is(err, ce) {
				return nil, nil, cfg, userError(err)
			}
		}
		return nil, nil, cfg, sysError(fmt.Errorf("open medium: %w", err))
	}
	log.Debug("medium opened", "name", cfg.MediumName(), "backend", cfg.Backend, "bounds", m.Bounds().String())
	return m, closeFn, cfg, nil
}

// withMedium opens the configured medium, runs fn and closes it.
func (a *app) withMedium(fn func(m types.ReadWriteEraser, cfg types.Config) error) error {
	m, closeFn, cfg, err := a.open()
	if err != nil {
		return err
	}
	runErr := fn(m, cfg)
	if err := closeFn(); err != nil && runErr == nil {
		return sysError(fmt.Errorf("close medium: %w", err))
	}
	return runErr
}

// parseNumber parses a decimal, 0x hex, 0o octal or 0b binary number.
func parseNumber(what, s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, userError(fmt.Errorf("invalid %s %q: %w", what, s, err))
	}
	return n, nil
}

// parseRegion parses an address and a length argument.
func parseRegion(addrArg, lenArg string) (types.Region, error) {
	addr, err := parseNumber("address", addrArg)
	if err != nil {
		return types.Region{}, err
	}
	n, err := parseNumber("length", lenArg)
	if err != nil {
		return types.Region{}, err
	}
	return types.NewRegion(types.Address(addr), n)
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Describe the configured medium",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMedium(func(m types.ReadWriteEraser, cfg types.Config) error {
				info := describe(m, cfg)
				if w, ok := m.(interface{ Wear() ([]uint64, error) }); ok {
					wear, err := w.Wear()
					if err != nil {
						return err
					}
					info.Wear = wear
				}
				return a.emit(cmd, info, func(o *output) {
					o.printf("name:       %s (%s)\n", info.Name, info.Backend)
					o.printInfo(info)
					if len(info.Wear) > 0 {
						o.printf("max wear:   %d\n", maxOf(info.Wear))
					}
				})
			})
		},
	}
}

func maxOf(v []uint64) uint64 {
	var m uint64
	for _, x := range v {
		m = max(m, x)
	}
	return m
}

// transfer is the JSON form of read and write results.
type transfer struct {
	Address types.Address `json:"address"`
	Length  int           `json:"length"`
	Data    string        `json:"data,omitempty"`
}

func newReadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read <addr> <len>",
		Short: "Read bytes from the medium",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := parseRegion(args[0], args[1])
			if err != nil {
				return err
			}
			return a.withMedium(func(m types.ReadWriteEraser, _ types.Config) error {
				data, err := ops.ReadN(m, r.Start, int(r.Len()))
				if err != nil {
					return err
				}
				res := transfer{Address: r.Start, Length: len(data), Data: hex.EncodeToString(data)}
				return a.emit(cmd, res, func(o *output) { o.hexLines(r.Start, data) })
			})
		},
	}
}

func newWriteCmd(a *app) *cobra.Command {
	var update bool
	cmd := &cobra.Command{
		Use:   "write <addr> <hex>",
		Short: "Write hex-encoded bytes to the medium",
		Long: "Write hex-encoded bytes at addr. On media that require erase before write the\n" +
			"target must be erased first, or pass --update to read, erase and rewrite the\n" +
			"surrounding erase units.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseNumber("address", args[0])
			if err != nil {
				return err
			}
			data, err := hex.DecodeString(args[1])
			if err != nil {
				return userError(fmt.Errorf("invalid hex data: %w", err))
			}
			return a.withMedium(func(m types.ReadWriteEraser, _ types.Config) error {
				at := types.Address(addr)
				if update {
					err = ops.Update(m, at, data)
				} else {
					err = m.Write(at, data)
				}
				if err != nil {
					return err
				}
				res := transfer{Address: at, Length: len(data)}
				return a.emit(cmd, res, func(o *output) { o.printf("wrote %d bytes at %s\n", len(data), at) })
			})
		},
	}
	cmd.Flags().BoolVar(&update, "update", false, "preserve surrounding bytes with a read-modify-erase-write")
	return cmd
}

func newEraseCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "erase [<addr> <len>]",
		Short: "Erase a region of the medium",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var r types.Region
			if !all {
				var err error
				if r, err = parseRegion(args[0], args[1]); err != nil {
					return err
				}
			}
			return a.withMedium(func(m types.ReadWriteEraser, _ types.Config) error {
				if all {
					r = m.Bounds()
				}
				if err := m.Erase(r); err != nil {
					return err
				}
				return a.emit(cmd, map[string]string{"erased": r.String()}, func(o *output) {
					o.printf("erased %s\n", r)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "erase the whole medium")
	return cmd
}

func newDigestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "digest [<addr> <len>]",
		Short: "Print the BLAKE2b-256 digest of a region (default: whole medium)",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("accepts 0 or 2 arg(s), received %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var r types.Region
			if len(args) == 2 {
				var err error
				if r, err = parseRegion(args[0], args[1]); err != nil {
					return err
				}
			}
			return a.withMedium(func(m types.ReadWriteEraser, _ types.Config) error {
				if len(args) == 0 {
					r = m.Bounds()
				}
				sum, err := ops.Digest(m, r)
				if err != nil {
					return err
				}
				res := map[string]string{"region": r.String(), "blake2b_256": hex.EncodeToString(sum)}
				return a.emit(cmd, res, func(o *output) { o.printf("%x  %s\n", sum, r) })
			})
		},
	}
}

func newDumpCmd(a *app) *cobra.Command {
	var addrFlag, lenFlag string
	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Save a region of the medium to an image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMedium(func(m types.ReadWriteEraser, _ types.Config) error {
				r := m.Bounds()
				if addrFlag != "" || lenFlag != "" {
					var err error
					if r, err = parseRegion(addrFlag, lenFlag); err != nil {
						return err
					}
				}
				img, err := image.Capture(m, r)
				if err != nil {
					return err
				}
				f, err := os.Create(args[0])
				if err != nil {
					return sysError(err)
				}
				if err := image.Encode(f, img); err != nil {
					f.Close()
					return sysError(fmt.Errorf("write image: %w", err))
				}
				if err := f.Close(); err != nil {
					return sysError(err)
				}
				res := map[string]string{"file": args[0], "region": r.String(), "digest": hex.EncodeToString(img.Digest)}
				return a.emit(cmd, res, func(o *output) {
					o.printf("dumped %s (%d bytes) to %s\n", r, r.Len(), args[0])
				})
			})
		},
	}
	cmd.Flags().StringVar(&addrFlag, "addr", "", "start address (default: medium start)")
	cmd.Flags().StringVar(&lenFlag, "len", "", "length in bytes (default: whole medium)")
	cmd.MarkFlagsRequiredTogether("addr", "len")
	return cmd
}

func newLoadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load <file>",
		Short: "Restore an image file onto the medium and verify it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return sysError(err)
			}
			img, err := image.Decode(f)
			f.Close()
			if err != nil {
				return userError(err)
			}
			return a.withMedium(func(m types.ReadWriteEraser, _ types.Config) error {
				if err := image.Restore(m, img); err != nil {
					return err
				}
				if err := ops.Verify(m, img.Base, img.Data); err != nil {
					return sysError(err)
				}
				res := map[string]string{"file": args[0], "region": img.Region().String()}
				return a.emit(cmd, res, func(o *output) {
					o.printf("loaded %s (%d bytes) from %s\n", img.Region(), len(img.Data), args[0])
				})
			})
		},
	}
}
