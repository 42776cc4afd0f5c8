package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mdp-go/drivers/mdp4"
	"mdp-go/errcode"
	"mdp-go/services/overlay"
	"mdp-go/services/overlay/config"
)

var timingCmd = &cobra.Command{
	Use:   "timing [dtv|lcdc]...",
	Short: "Print the timing block words for the board's modes",
	Example: `  mdpsim timing
  mdpsim timing dtv --board board.yaml`,
	RunE: runTiming,
}

func init() {
	rootCmd.AddCommand(timingCmd)
}

type output struct {
	path overlay.Path
	out  *config.Output
}

// selectOutputs returns the outputs named in args, or all configured ones.
func selectOutputs(b *config.Board, args []string) ([]output, error) {
	all := map[string]output{}
	var order []output
	if b.LCDC != nil {
		o := output{overlay.PathLCDC, b.LCDC}
		all["lcdc"] = o
		order = append(order, o)
	}
	if b.DTV != nil {
		o := output{overlay.PathDTV, b.DTV}
		all["dtv"] = o
		order = append(order, o)
	}
	if len(args) == 0 {
		return order, nil
	}
	var sel []output
	for _, a := range args {
		o, ok := all[a]
		if !ok {
			return nil, errcode.New(errcode.InvalidParams, "timing", "no "+a+" output on this board")
		}
		sel = append(sel, o)
	}
	return sel, nil
}

type word struct {
	name string
	off  uint32
	val  uint32
}

func timingWords(m mdp4.TimingMap, r mdp4.TimingRegisters) []word {
	return []word{
		{"hsync_ctrl", m.HsyncCtrl, r.HsyncCtrl},
		{"vsync_period", m.VsyncPeriod, r.VsyncPeriod},
		{"vsync_pulse", m.VsyncPulse, r.VsyncPulseTotal},
		{"display_hctl", m.DisplayHCtl, r.DisplayHCtl},
		{"display_vstart", m.DisplayVStart, r.DisplayVStart},
		{"display_vend", m.DisplayVEnd, r.DisplayVEnd},
		{"active_hctl", m.ActiveHCtl, r.ActiveHCtl},
		{"active_vstart", m.ActiveVStart, r.ActiveVStart},
		{"active_vend", m.ActiveVEnd, r.ActiveVEnd},
		{"border_color", m.BorderColor, r.BorderColor},
		{"underflow_color", m.UnderflowColor, r.UnderflowColor},
		{"hsync_skew", m.HsyncSkew, r.HsyncSkew},
		{"ctl_polarity", m.CtlPolarity, r.CtlPolarity},
	}
}

func runTiming(cmd *cobra.Command, args []string) error {
	b, err := loadBoard()
	if err != nil {
		return err
	}
	gen, _ := b.Gen()
	outs, err := selectOutputs(b, args)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	for _, o := range outs {
		cfg, err := o.out.Config(o.path, gen)
		if err != nil {
			return fmt.Errorf("%v: %w", o.path, err)
		}
		mode := o.out.Mode()
		base, m, opts := overlay.Layout(o.path, cfg)
		regs := mdp4.Compute(mode.Timing, opts)

		fmt.Fprintf(tw, "%v\t%s\t%s\n", o.path, gen, mode)
		for _, w := range timingWords(m, regs) {
			fmt.Fprintf(tw, "  %s\t0x%06x\t0x%08x\n", w.name, base+w.off, w.val)
		}
	}
	return tw.Flush()
}
