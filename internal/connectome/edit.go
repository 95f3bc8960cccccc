package connectome

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/KyungWonPark/RestingConnectome/internal/calc"
)

// RemoveChannel drops the named ROI from the channel list and from the time
// series of every sample, live or deleted. Derived matrices are left stale
// until Recompute. A removal that would leave too few channels for the
// configured eigen pair is refused.
func (d *Dataset) RemoveChannel(name string) error {
	at := -1
	for i, roi := range d.rois {
		if roi == name {
			at = i
			break
		}
	}
	if at < 0 {
		return fmt.Errorf("channel %q: %w", name, ErrNotFound)
	}
	if len(d.rois) <= 2 {
		return fmt.Errorf("removing %q would leave %d channel: %w", name, len(d.rois)-1, ErrUsage)
	}
	if _, err := calc.EigenColumn(d.settings.pair, len(d.rois)-1); err != nil {
		return fmt.Errorf("removing %q: %v: %w", name, err, ErrUsage)
	}

	for _, group := range [][]*Sample{d.samples, d.deleted} {
		for _, s := range group {
			s.TimeSeries = dropRow(s.TimeSeries, at)
			s.stale = true
		}
	}
	d.rois = append(d.rois[:at:at], d.rois[at+1:]...)

	d.log.WithFields(logrus.Fields{"channel": name, "remaining": len(d.rois)}).Info("channel removed")
	return nil
}

func dropRow(m *mat.Dense, at int) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(rows-1, cols, nil)
	for i, k := 0, 0; i < rows; i++ {
		if i == at {
			continue
		}
		out.SetRow(k, m.RawRowView(i))
		k++
	}
	return out
}

// Op moves samples between the live and deleted collections.
type Op int

const (
	// OpRemove moves a subject's live samples to the deleted collection.
	OpRemove Op = iota + 1
	// OpAdd moves a subject's deleted samples back to the live collection.
	OpAdd
)

func (o Op) String() string {
	switch o {
	case OpRemove:
		return "remove"
	case OpAdd:
		return "add"
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// ModSamples moves every sample of the named subjects between the live and
// deleted collections and refreshes the cohort structure. Every name must be
// present in the source collection; otherwise nothing moves.
func (d *Dataset) ModSamples(op Op, names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("%v: no subject names: %w", op, ErrUsage)
	}

	var from, to *[]*Sample
	switch op {
	case OpRemove:
		from, to = &d.samples, &d.deleted
	case OpAdd:
		from, to = &d.deleted, &d.samples
	default:
		return fmt.Errorf("operation %v: %w", op, ErrUsage)
	}

	present := make(map[string]bool, len(*from))
	for _, s := range *from {
		present[s.Name] = true
	}
	move := make(map[string]bool, len(names))
	for _, name := range names {
		if !present[name] {
			return fmt.Errorf("%v subject %q: %w", op, name, ErrNotFound)
		}
		move[name] = true
	}

	var keep []*Sample
	for _, s := range *from {
		if move[s.Name] {
			*to = append(*to, s)
		} else {
			keep = append(keep, s)
		}
	}
	*from = keep

	d.log.WithFields(logrus.Fields{
		"op":       op.String(),
		"subjects": len(names),
		"live":     len(d.samples),
		"deleted":  len(d.deleted),
	}).Info("samples moved")

	return d.refresh()
}

// RemoveSubjects soft-deletes every sample of the named subjects.
func (d *Dataset) RemoveSubjects(names ...string) error {
	return d.ModSamples(OpRemove, names)
}

// AddSubjects restores every deleted sample of the named subjects.
func (d *Dataset) AddSubjects(names ...string) error {
	return d.ModSamples(OpAdd, names)
}

// Selection picks time points along the time axis.
type Selection interface {
	columns(n int) ([]int, error)
}

// Span selects the time points [Start, Stop).
type Span struct {
	Start, Stop int
}

func (s Span) columns(n int) ([]int, error) {
	if s.Start < 0 || s.Stop > n || s.Start >= s.Stop {
		return nil, fmt.Errorf("span [%d, %d) of %d time points: %w", s.Start, s.Stop, n, ErrUsage)
	}
	out := make([]int, 0, s.Stop-s.Start)
	for t := s.Start; t < s.Stop; t++ {
		out = append(out, t)
	}
	return out, nil
}

// Spans concatenates several spans in order.
type Spans []Span

func (ss Spans) columns(n int) ([]int, error) {
	if len(ss) == 0 {
		return nil, fmt.Errorf("empty span list: %w", ErrUsage)
	}
	var out []int
	for _, s := range ss {
		cols, err := s.columns(n)
		if err != nil {
			return nil, err
		}
		out = append(out, cols...)
	}
	return out, nil
}

// EditTimeSeries replaces the time series of the live sample identified by
// subject, session and run with the selected time points. Derived matrices
// are left stale until Recompute.
func (d *Dataset) EditTimeSeries(subject string, session Session, run Run, sel Selection) error {
	if sel == nil {
		return fmt.Errorf("nil selection: %w", ErrUsage)
	}
	if session == "" || run == "" {
		return fmt.Errorf("session and run are required: %w", ErrUsage)
	}

	var target *Sample
	for _, s := range d.samples {
		if s.Name == subject && s.Session == session && s.Run == run {
			target = s
			break
		}
	}
	if target == nil {
		return fmt.Errorf("subject %q session %q run %q: %w", subject, session, run, ErrNotFound)
	}

	rows, n := target.TimeSeries.Dims()
	cols, err := sel.columns(n)
	if err != nil {
		return err
	}
	if len(cols) < 2 {
		return fmt.Errorf("selection keeps %d time point: %w", len(cols), ErrUsage)
	}

	out := mat.NewDense(rows, len(cols), nil)
	for i := 0; i < rows; i++ {
		src := target.TimeSeries.RawRowView(i)
		dst := out.RawRowView(i)
		for k, t := range cols {
			dst[k] = src[t]
		}
	}
	target.TimeSeries = out
	target.stale = true

	d.log.WithFields(logrus.Fields{"sample": target.String(), "points": len(cols)}).Info("time series edited")
	return nil
}
