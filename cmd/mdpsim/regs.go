package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mdp-go/drivers/mdp4"
	"mdp-go/services/overlay"
)

var regsCmd = &cobra.Command{
	Use:   "regs [dtv|lcdc]...",
	Short: "Dump the live timing blocks through /dev/mem",
	Long: `regs maps the board's MDP register space through /dev/mem and prints each
timing word next to the value the board's mode would program. Needs root.`,
	RunE: runRegs,
}

func init() {
	rootCmd.AddCommand(regsCmd)
}

func runRegs(cmd *cobra.Command, args []string) error {
	b, err := loadBoard()
	if err != nil {
		return err
	}
	gen, _ := b.Gen()
	outs, err := selectOutputs(b, args)
	if err != nil {
		return err
	}

	mem, err := mdp4.OpenDevMem(int64(b.MDPBase), b.MDPSize)
	if err != nil {
		return err
	}
	defer mem.Close()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "intr_enable\t0x%08x\n", mem.Read32(mdp4.RegIntrEnable))
	fmt.Fprintf(tw, "intr_status\t0x%08x\n", mem.Read32(mdp4.RegIntrStatus))
	for _, o := range outs {
		cfg, err := o.out.Config(o.path, gen)
		if err != nil {
			return fmt.Errorf("%v: %w", o.path, err)
		}
		base, m, opts := overlay.Layout(o.path, cfg)
		want := mdp4.Compute(o.out.Mode().Timing, opts)

		fmt.Fprintf(tw, "%v\tenable=%d\n", o.path, mem.Read32(base+m.Enable))
		for _, w := range timingWords(m, want) {
			live := mem.Read32(base + w.off)
			mark := ""
			if live != w.val {
				mark = "*"
			}
			fmt.Fprintf(tw, "  %s\t0x%08x\t0x%08x\t%s\n", w.name, live, w.val, mark)
		}
	}
	return tw.Flush()
}
