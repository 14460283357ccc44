// Package detect locates the key prompt in captured frames and reads the
// symbol sequence it shows.
package detect

import (
	"image"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/soocke/keyprompt-bot/config"
	"github.com/soocke/keyprompt-bot/domain/capture"
)

const (
	clahClip          = 2.0
	discoveryTiles    = 8
	recognitionTiles  = 4
	defaultNMSOverlap = 0.3
)

// matchFunc matches one template against a precomputed region. stop is set
// once every symbol has a match and may be used to skip remaining levels.
type matchFunc func(pre *capture.GrayPrecomp, t Template, threshold float64, stop *atomic.Bool) []Detection

// Detector finds the prompt region and recognises sequences inside it. Its
// methods may be called from one goroutine at a time; ROI may be read
// concurrently.
type Detector struct {
	templates []Template // sorted by symbol
	logger    *slog.Logger

	sensitivity float64
	nms         float64
	margin      int
	clusterDist int
	stride      int

	pool  *workerPool
	match matchFunc

	mu  sync.RWMutex
	roi ROI
}

// New builds pyramids for every template and starts the matching pool.
// Nil images are ignored; an empty map yields a detector that never matches.
func New(templates map[string]*image.Gray, cfg config.Config, logger *slog.Logger) *Detector {
	_ = cfg.Validate()
	symbols := make([]string, 0, len(templates))
	for s, img := range templates {
		if img != nil {
			symbols = append(symbols, s)
		}
	}
	sort.Strings(symbols)
	d := &Detector{
		logger:      logger,
		sensitivity: cfg.Sensitivity,
		nms:         cfg.NMSThreshold,
		margin:      cfg.ROIMargin,
		clusterDist: cfg.MinClusterDistance,
		stride:      cfg.Stride,
		pool:        newWorkerPool(cfg.Workers),
	}
	if d.nms <= 0 {
		d.nms = defaultNMSOverlap
	}
	for _, s := range symbols {
		t := NewTemplate(s, templates[s], cfg.Scales)
		if len(t.Pyramid) == 0 && logger != nil {
			logger.Warn("template has no usable scale", "symbol", s)
		}
		d.templates = append(d.templates, t)
	}
	d.match = d.matchTemplate
	if logger != nil {
		logger.Debug("detector ready", "symbols", symbols, "scales", cfg.Scales, "workers", cfg.Workers)
	}
	return d
}

// Symbols returns the symbols the detector can recognise.
func (d *Detector) Symbols() []string {
	out := make([]string, len(d.templates))
	for i, t := range d.templates {
		out[i] = t.Symbol
	}
	return out
}

// ROI returns the current region of interest.
func (d *Detector) ROI() ROI {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.roi
}

// ConfirmROI promotes a tentative ROI. It reports whether an ROI is now
// confirmed.
func (d *Detector) ConfirmROI() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.roi.Status {
	case ROITentative:
		d.roi.Status = ROIConfirmed
		return true
	case ROIConfirmed:
		return true
	default:
		return false
	}
}

// InvalidateROI forgets the current ROI.
func (d *Detector) InvalidateROI() {
	d.mu.Lock()
	d.roi = ROI{}
	d.mu.Unlock()
}

// Close stops the worker pool. Detection calls after Close find nothing.
func (d *Detector) Close() { d.pool.close() }

// DiscoverROI searches frame for symbols and, when any survive suppression,
// stores their padded bounding box as a tentative ROI. A known ROI narrows the
// search to its neighbourhood. A confirmed ROI is never replaced here.
func (d *Detector) DiscoverROI(frame *image.RGBA) bool {
	if frame == nil || len(d.templates) == 0 {
		return false
	}
	enhanced := capture.CLAHE(capture.ToGray(frame), discoveryTiles, discoveryTiles, clahClip)
	bounds := enhanced.Bounds()

	current := d.ROI()
	search := bounds
	if current.Known() {
		pad := NeighborhoodPadding(current.Rect)
		search = current.Rect.Inset(-pad).Intersect(bounds)
		if search.Empty() {
			search = bounds
		}
	}
	region := enhanced.SubImage(search).(*image.Gray)
	mean, std := capture.GrayStats(region)
	threshold := AdaptiveThreshold(mean, std, d.sensitivity)

	dets := d.matchAll(capture.PrecomputeGray(region), threshold, true)
	kept := NMS(dets, d.nms)
	if len(kept) == 0 {
		return false
	}
	for i := range kept {
		kept[i].Rect = kept[i].Rect.Add(search.Min)
	}
	box := BoundingBox(kept).Inset(-d.margin).Intersect(bounds)
	if box.Empty() {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.roi.Status == ROIConfirmed {
		if d.logger != nil {
			d.logger.Debug("roi discovery ignored, roi confirmed", "found", box, "roi", d.roi.Rect)
		}
		return true
	}
	d.roi = ROI{Status: ROITentative, Rect: box}
	if d.logger != nil {
		d.logger.Debug("roi discovered", "roi", box, "matches", len(kept), "threshold", threshold)
	}
	return true
}

// RecognizeSequence reads the symbols inside the ROI from left to right. It
// returns an empty sequence when the ROI is unknown or outside the frame.
func (d *Detector) RecognizeSequence(frame *image.RGBA) Sequence {
	dets := d.RecognizeDetections(frame)
	if len(dets) == 0 {
		return Sequence{}
	}
	seq := make(Sequence, len(dets))
	for i, det := range dets {
		seq[i] = det.Symbol
	}
	return seq
}

// RecognizeDetections returns the clustered detections behind
// RecognizeSequence, in frame coordinates.
func (d *Detector) RecognizeDetections(frame *image.RGBA) []Detection {
	if frame == nil || len(d.templates) == 0 {
		return nil
	}
	roi := d.ROI()
	if !roi.Known() {
		return nil
	}
	fb := frame.Bounds()
	r := roi.Rect.Add(fb.Min).Intersect(fb)
	if r.Empty() {
		return nil
	}
	enhanced := capture.CLAHE(capture.ToGray(frame.SubImage(r)), recognitionTiles, recognitionTiles, clahClip)
	dets := d.matchAll(capture.PrecomputeGray(enhanced), d.sensitivity, false)
	reps := Cluster(dets, d.clusterDist)
	offset := r.Min.Sub(fb.Min)
	for i := range reps {
		reps[i].Rect = reps[i].Rect.Add(offset)
	}
	return reps
}

// matchAll fans one job per symbol out to the pool and joins them. Results
// are concatenated in symbol order. With earlyExit, remaining scale levels are
// skipped once every symbol has at least one match.
func (d *Detector) matchAll(pre *capture.GrayPrecomp, threshold float64, earlyExit bool) []Detection {
	if pre == nil {
		return nil
	}
	results := make([][]Detection, len(d.templates))
	var (
		wg    sync.WaitGroup
		found atomic.Int32
		stop  atomic.Bool
	)
	total := int32(len(d.templates))
	for i, t := range d.templates {
		i, t := i, t // per-iteration copies (pre-Go 1.22 loop semantics)
		wg.Add(1)
		job := func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = nil
					if d.logger != nil {
						d.logger.Error("template matching panic", "symbol", t.Symbol, "panic", r)
					}
				}
			}()
			var s *atomic.Bool
			if earlyExit {
				s = &stop
			}
			results[i] = d.match(pre, t, threshold, s)
			if earlyExit && len(results[i]) > 0 && found.Add(1) == total {
				stop.Store(true)
			}
		}
		if !d.pool.submit(job) {
			wg.Done()
		}
	}
	wg.Wait()

	var out []Detection
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

func (d *Detector) matchTemplate(pre *capture.GrayPrecomp, t Template, threshold float64, stop *atomic.Bool) []Detection {
	var out []Detection
	for _, level := range t.Pyramid {
		if stop != nil && stop.Load() && len(out) > 0 {
			break
		}
		for _, m := range capture.MatchAll(pre, level.pc, capture.NCCOptions{Threshold: threshold, Stride: d.stride}) {
			out = append(out, Detection{
				Symbol:     t.Symbol,
				Rect:       image.Rect(m.X, m.Y, m.X+m.W, m.Y+m.H),
				Confidence: m.Score,
				Scale:      level.Scale,
			})
		}
	}
	return out
}
