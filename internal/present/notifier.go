package present

// Notifier shows modal notifications one at a time. A notification that
// arrives while another is on screen waits until the player dismisses the
// current one. It is not safe for concurrent use; the game loop owns it.
type Notifier struct {
	sink    Sink
	current *pending
	queue   []pending
}

type pending struct {
	kind Kind
	n    Notification
}

// NewNotifier creates a notifier that emits through sink.
func NewNotifier(sink Sink) *Notifier {
	return &Notifier{sink: sink}
}

// Notify shows n now, or queues it behind the notification on screen.
func (q *Notifier) Notify(kind Kind, n Notification) {
	p := pending{kind: kind, n: n}
	if q.current != nil {
		q.queue = append(q.queue, p)
		return
	}
	q.show(p)
}

func (q *Notifier) show(p pending) {
	q.current = &p
	q.sink.Emit(Event{Kind: p.kind, Data: p.n})
}

// Dismiss closes the notification on screen and shows the next queued one.
// It reports false when nothing was showing.
func (q *Notifier) Dismiss() bool {
	if q.current == nil {
		return false
	}
	q.sink.Emit(Event{Kind: KindNotificationDismissed, Data: q.current.n})
	q.current = nil
	if len(q.queue) > 0 {
		next := q.queue[0]
		q.queue = q.queue[1:]
		q.show(next)
	}
	return true
}

// Current returns the notification on screen.
func (q *Notifier) Current() (Notification, bool) {
	if q.current == nil {
		return Notification{}, false
	}
	return q.current.n, true
}

// Pending returns how many notifications wait behind the current one.
func (q *Notifier) Pending() int {
	return len(q.queue)
}
