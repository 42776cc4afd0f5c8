package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"mdp-go/drivers/hdmitx"
	"mdp-go/drivers/lcdpanel"
	"mdp-go/drivers/mdp4"
	"mdp-go/services/overlay"
	"mdp-go/services/overlay/config"
	"mdp-go/services/overlay/simhw"
	"mdp-go/x/logx"
)

var runCmd = &cobra.Command{
	Use:   "run [dtv|lcdc]...",
	Short: "Stream frames through the output controllers on simulated hardware",
	Example: `  mdpsim run --frames 300
  mdpsim run dtv --nowait --submitters 4 --log-level debug`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.Int("frames", 120, "frames per submitter")
	f.Int("submitters", 1, "concurrent submitters per output")
	f.Uint32("vsync-hz", 0, "simulated refresh rate (default: fastest output)")
	f.Bool("nowait", false, "submit without waiting, then wait once per output")

	viper.BindPFlag("run.frames", f.Lookup("frames"))
	viper.BindPFlag("run.submitters", f.Lookup("submitters"))
	viper.BindPFlag("run.vsync_hz", f.Lookup("vsync-hz"))
	viper.BindPFlag("run.nowait", f.Lookup("nowait"))

	rootCmd.AddCommand(runCmd)
}

type bench struct {
	hw   *simhw.Hardware
	comp *simhw.Compositor
	plat *simhw.Platform
	bus  *simhw.Bus
	d    *overlay.Display
	log  *zerolog.Logger
}

type stream struct {
	c    *overlay.Controller
	mode overlay.Mode
}

func newBench() *bench {
	hw := simhw.New()
	comp := simhw.NewCompositor(hw, 3, 2, true)
	return &bench{
		hw:   hw,
		comp: comp,
		plat: simhw.NewPlatform(),
		bus:  &simhw.Bus{},
		d:    overlay.NewDisplay(hw, comp, logx.WithComponent("overlay")),
		log:  logx.WithComponent("mdpsim"),
	}
}

// panelFor builds the panel hook on a simulated bus. A nil result leaves the
// controller's no-op panel in place.
func panelFor(p config.Panel) overlay.Panel {
	switch p.Kind {
	case "hdmitx":
		addr := p.Address
		if addr == 0 {
			addr = hdmitx.Address
		}
		tx := simhw.NewI2C(addr, map[byte]byte{0x00: 0x14, 0x41: 0x50, 0x42: 0x40})
		return hdmitx.New(tx, hdmitx.Config{Address: addr, RequireHotplug: p.RequireHotplug, DVI: p.DVI})
	case "spi":
		return lcdpanel.New(&simhw.SPI{}, lcdpanel.Config{
			DC:           func(bool) {},
			BitsPerPixel: p.BitsPerPixel,
		})
	default:
		return nil
	}
}

func (b *bench) attach(gen mdp4.Generation, o output) (stream, error) {
	cfg, err := o.out.Config(o.path, gen)
	if err != nil {
		return stream{}, fmt.Errorf("%v: %w", o.path, err)
	}
	hooks := overlay.Hooks{Platform: b.plat}
	if p := panelFor(o.out.Panel); p != nil {
		hooks.Panel = p
	}
	var c *overlay.Controller
	if o.path == overlay.PathDTV {
		c, err = b.d.NewDTV(cfg, hooks)
	} else {
		hooks.Bus = b.bus
		c, err = b.d.NewLCDC(cfg, hooks)
	}
	if err != nil {
		return stream{}, err
	}
	return stream{c: c, mode: o.out.Mode()}, nil
}

// pump submits frames alternating between two buffers laid out back to back
// from the mode's framebuffer.
func pump(ctx context.Context, s stream, frames int, nowait bool) error {
	fb := s.mode.FB
	size := fb.Stride * s.mode.Timing.ActiveHeight()
	for i := 0; i < frames; i++ {
		f := overlay.Frame{Addr: fb.Addr() + uint32(i&1)*size, NoWait: nowait}
		if err := s.c.Submit(ctx, f); err != nil {
			return err
		}
	}
	if nowait {
		return s.c.WaitForOverlay(ctx)
	}
	return nil
}

// fastest is the highest refresh rate among outs, 60 if none is set.
func fastest(outs []output) uint32 {
	var hz uint32
	for _, o := range outs {
		hz = max(hz, o.out.RefreshHz)
	}
	if hz == 0 {
		return 60
	}
	return hz
}

func runRun(cmd *cobra.Command, args []string) error {
	board, err := loadBoard()
	if err != nil {
		return err
	}
	gen, _ := board.Gen()
	outs, err := selectOutputs(board, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := newBench()
	var streams []stream
	for _, o := range outs {
		s, err := b.attach(gen, o)
		if err != nil {
			return err
		}
		streams = append(streams, s)
	}
	hz := viper.GetUint32("run.vsync_hz")
	if hz == 0 {
		hz = fastest(outs)
	}

	hwCtx, hwStop := context.WithCancel(context.Background())
	b.d.Serve(hwCtx, b.hw.Line())
	var hwg errgroup.Group
	hwg.Go(func() error { return b.hw.Run(hwCtx, hz) })
	defer func() {
		hwStop()
		hwg.Wait()
		<-b.d.Stopped()
	}()

	for _, s := range streams {
		if err := s.c.On(ctx, s.mode); err != nil {
			return fmt.Errorf("%v on: %w", s.c.Path(), err)
		}
	}

	frames := viper.GetInt("run.frames")
	nowait := viper.GetBool("run.nowait")
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range streams {
		s := s
		for n := 0; n < viper.GetInt("run.submitters"); n++ {
			g.Go(func() error { return pump(gctx, s, frames, nowait) })
		}
	}
	runErr := g.Wait()
	elapsed := time.Since(start)

	for _, s := range streams {
		if err := s.c.Off(context.Background()); err != nil {
			b.log.Error().Err(err).Str("path", s.c.Path().String()).Msg("off")
		}
		st := s.c.Stats()
		b.log.Info().
			Str("path", st.Path.String()).
			Uint32("kickoffs", st.Kickoffs).
			Uint32("signalled", st.Signalled).
			Uint32("timed_out", st.TimedOut).
			Uint32("cancelled", st.Cancelled).
			Int("pipe", st.PipeID).
			Msg("stream done")
	}
	handled, spurious := b.d.IRQStats()
	b.log.Info().
		Dur("elapsed", elapsed).
		Uint32("vsync_hz", hz).
		Uint32("ticks", b.hw.Ticks()).
		Uint32("coalesced", b.hw.Coalesced()).
		Uint32("irq_handled", handled).
		Uint32("irq_spurious", spurious).
		Uint32("releases", b.plat.Releases.Load()).
		Msg("bench done")
	return runErr
}
