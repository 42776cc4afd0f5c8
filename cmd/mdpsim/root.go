package main

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mdp-go/services/overlay/config"
	"mdp-go/x/logx"
)

//go:embed bench.yaml
var benchBoard []byte

var rootCmd = &cobra.Command{
	Use:   "mdpsim",
	Short: "MDP4 display output bench",
	Long: `mdpsim exercises the DTV and LCDC output controllers.

Without --board it uses a built-in board with a 720p HDMI output and a
480x800 LCD panel. Every flag can also be set through the environment with
the MDPSIM_ prefix, e.g. MDPSIM_LOG_LEVEL=debug.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logx.Init(viper.GetString("log_level"), viper.GetBool("pretty"))
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("board", "", "board description file (YAML)")
	pf.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	pf.Bool("pretty", false, "human readable console logs")

	viper.BindPFlag("board", pf.Lookup("board"))
	viper.BindPFlag("log_level", pf.Lookup("log-level"))
	viper.BindPFlag("pretty", pf.Lookup("pretty"))
}

func initConfig() {
	viper.SetEnvPrefix("MDPSIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// loadBoard reads --board, falling back to the built-in bench board.
func loadBoard() (*config.Board, error) {
	if p := viper.GetString("board"); p != "" {
		return config.Load(p)
	}
	return config.Parse(benchBoard)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
