package presenter

import (
	"fmt"
	"image"
	"time"

	"github.com/soocke/keyprompt-bot/domain/minigame"
	"github.com/soocke/keyprompt-bot/ui/images"
	"github.com/soocke/keyprompt-bot/ui/model"
)

// maxEventsPerTick bounds the work done on the Tk thread per tick; the rest
// stays buffered in the channel for the next one.
const maxEventsPerTick = 64

// EventSource yields the channel of the current automation run. A nil
// channel means no run exists yet.
type EventSource interface {
	Events() <-chan minigame.Event
}

// EventView is the UI surface fed from controller events.
type EventView interface {
	SetState(minigame.State)
	SetLog(lines []string)
	UpdateDetection(img image.Image)
}

// EventPresenter drains controller events into the models and pushes the
// result to the view.
type EventPresenter struct {
	src    EventSource
	view   EventView
	log    *model.LogModel
	det    *model.DetectionModel
	sess   *model.SessionModel
	latest minigame.State

	// OnTerminated is called when a run ends on its own.
	OnTerminated func(reason string)
}

func NewEventPresenter(src EventSource, view EventView, log *model.LogModel, det *model.DetectionModel, sess *model.SessionModel) *EventPresenter {
	return &EventPresenter{src: src, view: view, log: log, det: det, sess: sess, latest: -1}
}

// Tick handles the pending events and refreshes the view.
func (p *EventPresenter) Tick(now time.Time) {
	if p == nil || p.src == nil || p.view == nil {
		return
	}
	ch := p.src.Events()
	for i := 0; i < maxEventsPerTick; i++ {
		select {
		case ev := <-ch:
			p.handle(ev)
			continue
		default:
		}
		break
	}
	if p.log.TakeDirty() {
		p.view.SetLog(p.log.Lines())
	}
}

func (p *EventPresenter) handle(ev minigame.Event) {
	if ev.State != p.latest {
		p.latest = ev.State
		p.view.SetState(ev.State)
	}
	switch ev.Kind {
	case minigame.EventROIFound:
		p.det.SetROI(ev.ROI, false, detach(ev.Preview))
		p.showPreview()
	case minigame.EventROIConfirmed:
		p.det.SetROI(ev.ROI, true, detach(ev.Preview))
		p.showPreview()
	case minigame.EventROIInvalidated:
		p.det.Clear()
	case minigame.EventExecuted:
		p.sess.AddExecution()
		p.det.SetSequence(ev.Sequence)
	case minigame.EventTerminated:
		if p.OnTerminated != nil {
			p.OnTerminated(ev.Message)
		}
	}
	if line := formatEvent(ev); line != "" {
		p.log.Append(line)
	}
}

func (p *EventPresenter) showPreview() {
	if img := p.det.Preview(); img != nil {
		p.view.UpdateDetection(img)
	}
}

// detach copies a preview out of its frame; nil stays nil.
func detach(preview *image.RGBA) image.Image {
	if preview == nil {
		return nil
	}
	img, _, err := images.ExtractROI(preview, preview.Bounds())
	if err != nil {
		return nil
	}
	return img
}

// formatEvent renders an event as a log line; state changes without a
// message are shown by the state label only.
func formatEvent(ev minigame.Event) string {
	msg := ev.Message
	switch ev.Kind {
	case minigame.EventStateChanged:
		return ""
	case minigame.EventROIFound, minigame.EventROIConfirmed:
		if msg == "" {
			msg = ev.Kind.String()
		}
		msg = fmt.Sprintf("%s at %v", msg, ev.ROI)
	}
	if msg == "" {
		return ""
	}
	return ev.At.Format("15:04:05") + " " + msg
}
