package overlay

// Stats is a point-in-time snapshot of one controller.
type Stats struct {
	Path      Path
	State     State
	Kickoffs  uint32
	Signalled uint32
	TimedOut  uint32
	Cancelled uint32
	OvCount   uint32
	DMACount  uint32
	PipeID    int // -1 without a pipe
}

func (c *Controller) Stats() Stats {
	ws := c.sync.Stats()
	s := Stats{
		Path:      c.prof.path,
		State:     c.State(),
		Kickoffs:  c.kickoffs.Load(),
		Signalled: ws.Signalled,
		TimedOut:  ws.TimedOut,
		Cancelled: ws.Cancelled,
		PipeID:    -1,
	}
	if p := c.pipe.Load(); p != nil {
		s.OvCount = p.OvCount()
		s.DMACount = p.DMACount()
		s.PipeID = p.ID
	}
	return s
}
