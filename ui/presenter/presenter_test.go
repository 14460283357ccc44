package presenter

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soocke/keyprompt-bot/domain/detect"
	"github.com/soocke/keyprompt-bot/domain/minigame"
	"github.com/soocke/keyprompt-bot/domain/window"
	"github.com/soocke/keyprompt-bot/ui/model"
)

type mockRunner struct {
	started, stopped int
	err              error
}

func (r *mockRunner) Start(context.Context) error {
	if r.err != nil {
		return r.err
	}
	r.started++
	return nil
}
func (r *mockRunner) Stop() { r.stopped++ }

type mockView struct {
	reset, editableCalls int
	lastEditable         bool
	toggle               string
	state                string
	log                  []string
	detections           int
	window               string
	session, total       time.Duration
	runExec, totalExec   int
}

func (v *mockView) PreviewReset()                 { v.reset++ }
func (v *mockView) ConfigEditable(b bool)         { v.editableCalls++; v.lastEditable = b }
func (v *mockView) SetToggleLabel(s string)       { v.toggle = s }
func (v *mockView) SetState(s minigame.State)     { v.state = s.String() }
func (v *mockView) SetLog(lines []string)         { v.log = lines }
func (v *mockView) UpdateDetection(image.Image)   { v.detections++ }
func (v *mockView) SetWindowLabel(s string)       { v.window = s }
func (v *mockView) SetSession(s, t time.Duration) { v.session, v.total = s, t }
func (v *mockView) SetExecutions(s, t int)        { v.runExec, v.totalExec = s, t }

func TestControlPresenter_EnableDisable_Idempotent(t *testing.T) {
	m := &model.RunModel{}
	r := &mockRunner{}
	view := &mockView{}
	p := NewControlPresenter(context.Background(), m, r, view, nil)

	p.Enable()
	if !m.Enabled() || r.started != 1 || view.lastEditable || view.toggle != "Stop" {
		t.Fatalf("enable failed: enabled=%v started=%d editable=%v toggle=%q", m.Enabled(), r.started, view.lastEditable, view.toggle)
	}
	p.Enable()
	if r.started != 1 {
		t.Fatalf("enable not idempotent: started=%d", r.started)
	}

	p.Disable()
	if m.Enabled() || r.stopped != 1 || view.reset != 1 || !view.lastEditable || view.toggle != "Start" {
		t.Fatalf("disable failed: enabled=%v stopped=%d reset=%d", m.Enabled(), r.stopped, view.reset)
	}
	p.Disable()
	if r.stopped != 1 || view.reset != 1 {
		t.Fatalf("disable not idempotent: stopped=%d reset=%d", r.stopped, view.reset)
	}
}

func TestControlPresenter_Toggle(t *testing.T) {
	m := &model.RunModel{}
	r := &mockRunner{}
	p := NewControlPresenter(context.Background(), m, r, &mockView{}, nil)
	p.Toggle()
	if !m.Enabled() || r.started != 1 {
		t.Fatalf("toggle enable failed")
	}
	p.Toggle()
	if m.Enabled() || r.stopped != 1 {
		t.Fatalf("toggle disable failed")
	}
}

func TestControlPresenter_StartErrorIsLogged(t *testing.T) {
	m := &model.RunModel{}
	log := model.NewLogModel(10)
	view := &mockView{}
	p := NewControlPresenter(context.Background(), m, &mockRunner{err: errors.New("window missing")}, view, log)
	p.Enable()
	if m.Enabled() || view.editableCalls != 0 {
		t.Fatalf("failed start must leave the toggle off")
	}
	lines := log.Lines()
	if len(lines) != 1 || !strings.Contains(lines[0], "start failed: window missing") {
		t.Fatalf("log=%v", lines)
	}
}

func TestControlPresenter_Terminated(t *testing.T) {
	m := &model.RunModel{}
	r := &mockRunner{}
	view := &mockView{}
	log := model.NewLogModel(10)
	p := NewControlPresenter(context.Background(), m, r, view, log)
	p.Terminated("ignored while off")
	if len(log.Lines()) != 0 {
		t.Fatalf("termination while off should be ignored")
	}
	p.Enable()
	p.Terminated("target window lost")
	if m.Enabled() || r.stopped != 0 || view.toggle != "Start" {
		t.Fatalf("terminated run should only reset the UI: enabled=%v stopped=%d", m.Enabled(), r.stopped)
	}
	if lines := log.Lines(); len(lines) != 1 || !strings.Contains(lines[0], "target window lost") {
		t.Fatalf("log=%v", lines)
	}
}

type chanSource struct{ ch chan minigame.Event }

func (s chanSource) Events() <-chan minigame.Event { return s.ch }

func TestEventPresenter_DrainsIntoModels(t *testing.T) {
	ch := make(chan minigame.Event, 16)
	view := &mockView{}
	log := model.NewLogModel(50)
	det := model.NewDetectionModel()
	sess := model.NewSessionModel()
	p := NewEventPresenter(chanSource{ch}, view, log, det, sess)
	var terminated string
	p.OnTerminated = func(reason string) { terminated = reason }

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	roi := image.Rect(30, 40, 270, 80)
	preview := image.NewRGBA(image.Rect(0, 0, 240, 40))
	ch <- minigame.Event{Kind: minigame.EventStateChanged, State: minigame.StateROIUnknown, At: at}
	ch <- minigame.Event{Kind: minigame.EventROIFound, State: minigame.StateROITesting, ROI: roi, Preview: preview, At: at}
	ch <- minigame.Event{Kind: minigame.EventROIConfirmed, State: minigame.StateSeqIdle, ROI: roi, Message: "roi confirmed", At: at}
	ch <- minigame.Event{Kind: minigame.EventExecuted, State: minigame.StateSeqExecuting, Sequence: detect.Sequence{"W", "A", "S", "D", "A"}, Message: "executed 5 keys: W A S D A", At: at}
	ch <- minigame.Event{Kind: minigame.EventTerminated, State: minigame.StateTerminated, Message: "target window lost", At: at}
	p.Tick(at)

	if view.state != "terminated" {
		t.Fatalf("state label=%q", view.state)
	}
	if r, confirmed := det.ROI(); r != roi || !confirmed {
		t.Fatalf("roi=%v confirmed=%v", r, confirmed)
	}
	if view.detections != 2 {
		t.Fatalf("expected preview on found and confirmed, got %d", view.detections)
	}
	if run, _ := sess.Executions(); run != 1 {
		t.Fatalf("executions=%d", run)
	}
	if det.Sequence().Key() != "W A S D A" {
		t.Fatalf("sequence=%v", det.Sequence())
	}
	if terminated != "target window lost" {
		t.Fatalf("terminated=%q", terminated)
	}
	// the bare state change is not logged
	if len(view.log) != 4 || !strings.HasPrefix(view.log[0], "03:04:05 ") {
		t.Fatalf("log=%v", view.log)
	}
	if !strings.Contains(view.log[1], "roi confirmed at (30,40)-(270,80)") {
		t.Fatalf("log=%v", view.log)
	}
}

func TestEventPresenter_InvalidationClearsROI(t *testing.T) {
	ch := make(chan minigame.Event, 4)
	det := model.NewDetectionModel()
	p := NewEventPresenter(chanSource{ch}, &mockView{}, model.NewLogModel(10), det, model.NewSessionModel())
	ch <- minigame.Event{Kind: minigame.EventROIFound, ROI: image.Rect(0, 0, 10, 10)}
	ch <- minigame.Event{Kind: minigame.EventROIInvalidated, Message: "validation failed"}
	p.Tick(time.Now())
	if r, _ := det.ROI(); !r.Empty() {
		t.Fatalf("roi should be cleared, got %v", r)
	}
}

func TestEventPresenter_BoundedPerTick(t *testing.T) {
	ch := make(chan minigame.Event, maxEventsPerTick+10)
	for i := 0; i < maxEventsPerTick+10; i++ {
		ch <- minigame.Event{Kind: minigame.EventStatus, Message: "x"}
	}
	p := NewEventPresenter(chanSource{ch}, &mockView{}, model.NewLogModel(500), model.NewDetectionModel(), model.NewSessionModel())
	p.Tick(time.Now())
	if len(ch) != 10 {
		t.Fatalf("expected 10 events left, got %d", len(ch))
	}
}

func TestEventPresenter_NilChannel(t *testing.T) {
	view := &mockView{}
	p := NewEventPresenter(chanSource{}, view, model.NewLogModel(10), model.NewDetectionModel(), model.NewSessionModel())
	p.Tick(time.Now())
	if view.log != nil || view.state != "" {
		t.Fatalf("nil channel must be a no-op")
	}
}

func TestSessionPresenter_PushesCounts(t *testing.T) {
	sess := model.NewSessionModel()
	run := &model.RunModel{}
	view := &mockView{}
	p := NewSessionPresenter(sess, run, view)
	base := time.Unix(100, 0)
	run.SetEnabled(true)
	p.Tick(base)
	sess.AddExecution()
	p.Tick(base.Add(2 * time.Second))
	if view.session != 2*time.Second || view.runExec != 1 || view.totalExec != 1 {
		t.Fatalf("view session=%v exec=%d/%d", view.session, view.runExec, view.totalExec)
	}
}

func TestLoop_TicksAndReschedules(t *testing.T) {
	scheduled := 0
	sess := model.NewSessionModel()
	view := &mockView{}
	l := NewLoop(nil, NewSessionPresenter(sess, &model.RunModel{}, view), nil, func() { scheduled++ })
	l.Tick()
	l.Tick()
	if scheduled != 2 {
		t.Fatalf("scheduled=%d", scheduled)
	}
	var zero *Loop
	zero.Tick()
}

func TestWindowWatcher_TracksPresence(t *testing.T) {
	var present atomic.Bool
	find := func(title string) (window.Handle, error) {
		if title == "Game" && present.Load() {
			return 42, nil
		}
		return 0, window.ErrNotFound
	}
	view := &mockView{}
	w := NewWindowWatcher(find, func() string { return " Game " }, view, nil)
	w.interval = 10 * time.Millisecond
	w.Start()
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	w.Tick()
	if w.Found() || view.window != "Window: <missing>" {
		t.Fatalf("expected missing, label=%q", view.window)
	}
	present.Store(true)
	time.Sleep(50 * time.Millisecond)
	w.Tick()
	if !w.Found() || view.window != "Window: Game" {
		t.Fatalf("expected found, label=%q", view.window)
	}
}

func TestWindowWatcher_StopIsIdempotent(t *testing.T) {
	w := NewWindowWatcher(func(string) (window.Handle, error) { return 1, nil }, nil, nil, nil)
	w.Start()
	w.Start()
	w.Stop()
	w.Stop()
	if w.Found() {
		t.Fatalf("empty title must never be found")
	}
}
