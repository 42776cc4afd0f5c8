// Command mdpsim drives the DTV and LCDC output controllers against the
// simulated MDP4 register space, prints timing block words for a board, and
// dumps the live timing blocks through /dev/mem.
package main

func main() {
	Execute()
}
