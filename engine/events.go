package engine

// eventQueueSize bounds pending input between frames.
const eventQueueSize = 64

// Point is one pointer or touch location in scene coordinates.
type Point struct {
	X, Y float64
}

type eventKind uint8

const (
	evPointerMove eventKind = iota
	evPointerLeave
	evResize
	evVisible
)

type event struct {
	kind    eventKind
	x, y    float64
	w, h    int
	visible bool
}

// PointerMove records the pointer position for the next frame.
func (b *Background) PointerMove(x, y float64) {
	b.post(event{kind: evPointerMove, x: x, y: y})
}

// PointerLeave removes the pointer from the scene.
func (b *Background) PointerLeave() {
	b.post(event{kind: evPointerLeave})
}

// Touch normalises touch input to the pointer: the first touch drives it and an
// empty set clears it.
func (b *Background) Touch(points []Point) {
	if len(points) == 0 {
		b.PointerLeave()
		return
	}
	b.PointerMove(points[0].X, points[0].Y)
}

// Resize changes the viewport at the next frame.
func (b *Background) Resize(w, h int) {
	b.post(event{kind: evResize, w: w, h: h})
}

// SetVisible pauses the background while hidden. Hidden frames neither tick nor draw.
func (b *Background) SetVisible(visible bool) {
	b.post(event{kind: evVisible, visible: visible})
}

// post enqueues e without blocking. When the queue is full the oldest event is
// dropped so the newest state always arrives.
func (b *Background) post(e event) {
	if b.torn.Load() {
		return
	}
	for {
		select {
		case b.events <- e:
			return
		default:
		}
		select {
		case <-b.events:
		default:
		}
	}
}

// drainEvents applies every pending event. Called with b.mu held.
func (b *Background) drainEvents() {
	for {
		select {
		case e := <-b.events:
			b.apply(e)
		default:
			return
		}
	}
}

func (b *Background) apply(e event) {
	switch e.kind {
	case evPointerMove:
		b.sc.SetPointer(e.x, e.y)
	case evPointerLeave:
		b.sc.ClearPointer()
	case evResize:
		b.applyResize(e.w, e.h)
	case evVisible:
		if b.visible != e.visible {
			b.log.Debug("background visibility changed", "visible", e.visible)
		}
		b.visible = e.visible
	}
}

func (b *Background) applyResize(w, h int) {
	if w <= 0 || h <= 0 {
		b.log.Debug("ignoring degenerate resize", "width", w, "height", h)
		return
	}
	if b.surf != nil {
		if err := b.surf.Resize(w, h); err != nil {
			b.log.Warn("surface resize failed", "error", err, "width", w, "height", h)
			return
		}
	}
	b.sc.Resize(float64(w), float64(h))
	b.log.Info("background resized", "width", w, "height", h)
}
