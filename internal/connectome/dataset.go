// Package connectome aggregates per-scan lead, covariance and correlation
// matrices into a cohort and keeps cohort-level structure in step with the
// samples it holds.
package connectome

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/KyungWonPark/RestingConnectome/internal/calc"
)

// Dataset is a cohort of samples sharing one ordered channel (ROI) set.
//
// A Dataset is not safe for concurrent mutation; callers serialize edits.
type Dataset struct {
	cfg      Config
	settings settings
	pl       *calc.PipeLine
	log      logrus.FieldLogger

	rois    []string
	samples []*Sample
	deleted []*Sample

	sessions []Session
	runs     []Run
	cohort   cohort
	demo     Demographics
}

type task struct {
	subject *Subject
	scan    Scan
	label   scanLabel
}

// New preprocesses and analyzes every scan of every subject and returns the
// resulting dataset. The ROI set of the first scan fixes the channel order;
// a scan with any other ROI set fails the whole construction. Scans are
// processed concurrently, at most cfg.Workers at a time.
func New(ctx context.Context, subjects []Subject, cfg Config) (*Dataset, error) {
	st, err := cfg.resolve()
	if err != nil {
		return nil, err
	}

	d := &Dataset{
		cfg:      cfg,
		settings: st,
		pl:       calc.Init(0),
		log:      cfg.logger(),
	}

	var tasks []task
	for i := range subjects {
		subject := &subjects[i]
		for _, scan := range subject.Scans {
			if scan.Code == MetadataKey {
				continue
			}
			label, ok := scanCodes[scan.Code]
			if !ok {
				return nil, fmt.Errorf("subject %s: scan code %q: %w", subject.Name, scan.Code, ErrUsage)
			}
			if d.rois == nil {
				d.rois = append([]string(nil), scan.ROIs...)
			}
			tasks = append(tasks, task{subject: subject, scan: scan, label: label})
		}
	}

	if len(tasks) == 0 {
		return nil, fmt.Errorf("no scans to analyze: %w", ErrUsage)
	}
	if len(d.rois) < 2 {
		return nil, fmt.Errorf("%d ROIs, need at least 2: %w", len(d.rois), ErrUsage)
	}
	if _, err := calc.EigenColumn(st.pair, len(d.rois)); err != nil {
		return nil, fmt.Errorf("%d ROIs: %w: %v", len(d.rois), ErrConfig, err)
	}

	d.log.WithFields(logrus.Fields{
		"subjects": len(subjects),
		"scans":    len(tasks),
		"rois":     len(d.rois),
		"norm":     st.norm,
		"gsr":      st.gsr,
		"filter":   cfg.Filter,
	}).Info("building connectome dataset")

	// Every raw scan is validated before any heavy work starts.
	raws := make([]*mat.Dense, len(tasks))
	for i, t := range tasks {
		raw, err := t.scan.matrix(d.rois)
		if err != nil {
			return nil, fmt.Errorf("subject %s: %w", t.subject.Name, err)
		}
		raws[i] = raw
	}

	samples := make([]*Sample, len(tasks))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers())
	for i := range tasks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			t := tasks[i]
			ts, err := st.preprocess(d.pl, raws[i])
			if err != nil {
				return fmt.Errorf("subject %s scan %s: %w", t.subject.Name, t.scan.Code, err)
			}

			s := &Sample{
				Name:       t.subject.Name,
				Scan:       t.scan.Code,
				Session:    t.label.session,
				Run:        t.label.run,
				Metadata:   t.subject.Metadata,
				TimeSeries: ts,
			}
			if err := st.derive(d.pl, s); err != nil {
				return fmt.Errorf("subject %s scan %s: %w", t.subject.Name, t.scan.Code, err)
			}

			d.log.WithFields(logrus.Fields{"subject": s.Name, "scan": s.Scan}).Debug("sample analyzed")
			samples[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.samples = samples
	if err := d.refresh(); err != nil {
		return nil, err
	}

	return d, nil
}

// Recompute re-derives the matrices of every sample whose time series changed
// (after RemoveChannel or EditTimeSeries), live or deleted, then refreshes the
// cohort structure.
func (d *Dataset) Recompute(ctx context.Context) error {
	var stale []*Sample
	for _, s := range d.samples {
		if s.stale {
			stale = append(stale, s)
		}
	}
	for _, s := range d.deleted {
		if s.stale {
			stale = append(stale, s)
		}
	}

	// Results are committed only once every stale sample re-derived.
	next := make([]Sample, len(stale))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.workers())
	for i, s := range stale {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			next[i] = *s
			if err := d.settings.derive(d.pl, &next[i]); err != nil {
				return fmt.Errorf("sample %s: %w", s, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, s := range stale {
		*s = next[i]
	}

	d.log.WithField("samples", len(stale)).Info("recomputed stale samples")
	return d.refresh()
}

// refresh rebuilds everything derived from the live collection: session and
// run labels, the cohort covariance and the demographics.
func (d *Dataset) refresh() error {
	sessions := make(map[Session]bool)
	runs := make(map[Run]bool)
	for _, s := range d.samples {
		sessions[s.Session] = true
		runs[s.Run] = true
	}

	d.sessions = d.sessions[:0]
	for s := range sessions {
		d.sessions = append(d.sessions, s)
	}
	sort.Slice(d.sessions, func(i, j int) bool { return d.sessions[i] < d.sessions[j] })

	d.runs = d.runs[:0]
	for r := range runs {
		d.runs = append(d.runs, r)
	}
	sort.Slice(d.runs, func(i, j int) bool { return d.runs[i] < d.runs[j] })

	c, err := newCohort(d.samples, d.leadDim())
	if err != nil {
		return err
	}
	d.cohort = c
	if c.degenerate {
		d.log.WithField("samples", len(d.samples)).Warn("fewer than 2 live samples, cohort covariance is zero")
	}

	d.demo = newDemographics(d.samples)
	return nil
}

// leadDim is the size of the lead matrices currently held, which lags the
// channel count after RemoveChannel until Recompute.
func (d *Dataset) leadDim() int {
	for _, s := range d.samples {
		if s.Lead != nil {
			n, _ := s.Lead.Dims()
			return n
		}
	}
	for _, s := range d.deleted {
		if s.Lead != nil {
			n, _ := s.Lead.Dims()
			return n
		}
	}
	return len(d.rois)
}

// Config returns the configuration the dataset was built with.
func (d *Dataset) Config() Config { return d.cfg }

// ROIs returns the canonical channel names in order.
func (d *Dataset) ROIs() []string { return append([]string(nil), d.rois...) }

// Dim is the number of channels.
func (d *Dataset) Dim() int { return len(d.rois) }

// Len is the number of live samples.
func (d *Dataset) Len() int { return len(d.samples) }

// Samples returns the live samples in order.
func (d *Dataset) Samples() []*Sample { return append([]*Sample(nil), d.samples...) }

// Deleted returns the soft-deleted samples.
func (d *Dataset) Deleted() []*Sample { return append([]*Sample(nil), d.deleted...) }

// Sessions returns the distinct session labels of the live samples.
func (d *Dataset) Sessions() []Session { return append([]Session(nil), d.sessions...) }

// Runs returns the distinct run labels of the live samples.
func (d *Dataset) Runs() []Run { return append([]Run(nil), d.runs...) }

// Stale reports whether any sample needs Recompute.
func (d *Dataset) Stale() bool {
	for _, s := range d.samples {
		if s.stale {
			return true
		}
	}
	for _, s := range d.deleted {
		if s.stale {
			return true
		}
	}
	return false
}

// Select returns the live samples of subject, narrowed to session and run
// when they are not empty.
func (d *Dataset) Select(subject string, session Session, run Run) ([]*Sample, error) {
	var out []*Sample
	for _, s := range d.samples {
		if s.Name == subject && s.matches(session, run) {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("subject %q session %q run %q: %w", subject, session, run, ErrNotFound)
	}
	return out, nil
}
