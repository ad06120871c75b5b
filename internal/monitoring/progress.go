package monitoring

// Progress reports how far through a fixed-length loop a caller is. It logs
// once each time another Step percent of the work completes, so long
// sampling runs show signs of life without flooding the log.
type Progress struct {
	Desc  string
	Total int
	Step  int // percent between reports, default 10

	done     int
	lastPct  int
	reported bool
}

// NewProgress returns a Progress for total items described by desc.
func NewProgress(desc string, total int) *Progress {
	return &Progress{Desc: desc, Total: total, Step: 10, lastPct: -1}
}

// Add marks n more items as done and logs when a report boundary is crossed.
func (p *Progress) Add(n int) {
	if p == nil || p.Total <= 0 {
		return
	}
	p.done += n
	if p.done > p.Total {
		p.done = p.Total
	}
	step := p.Step
	if step <= 0 {
		step = 10
	}
	pct := p.done * 100 / p.Total
	if pct/step > p.lastPct/step || !p.reported {
		p.lastPct = pct
		p.reported = true
		Logf("%s: %d/%d (%d%%)", p.Desc, p.done, p.Total, pct)
	}
}

// Done reports the number of completed items.
func (p *Progress) Done() int {
	if p == nil {
		return 0
	}
	return p.done
}
