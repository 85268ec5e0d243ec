package broadcast

// Listener observes channel activity. Callbacks run synchronously on the goroutine
// that opened, closed or sent, so implementations must be safe for concurrent use.
type Listener interface {
	OnOpen(service string, weak bool)
	OnClose(service string)
	OnSend(service string, receivers int)
	OnTrim(service string, before, after int)
	OnStale(service string, removed int)
	OnEvict(service string)
}

// SelectiveListener is a Listener built from optional callbacks.
type SelectiveListener struct {
	OnOpenCb  func(service string, weak bool)
	OnCloseCb func(service string)
	OnSendCb  func(service string, receivers int)
	OnTrimCb  func(service string, before, after int)
	OnStaleCb func(service string, removed int)
	OnEvictCb func(service string)
}

func (l *SelectiveListener) OnOpen(service string, weak bool) {
	if l.OnOpenCb != nil {
		l.OnOpenCb(service, weak)
	}
}

func (l *SelectiveListener) OnClose(service string) {
	if l.OnCloseCb != nil {
		l.OnCloseCb(service)
	}
}

func (l *SelectiveListener) OnSend(service string, receivers int) {
	if l.OnSendCb != nil {
		l.OnSendCb(service, receivers)
	}
}

func (l *SelectiveListener) OnTrim(service string, before, after int) {
	if l.OnTrimCb != nil {
		l.OnTrimCb(service, before, after)
	}
}

func (l *SelectiveListener) OnStale(service string, removed int) {
	if l.OnStaleCb != nil {
		l.OnStaleCb(service, removed)
	}
}

func (l *SelectiveListener) OnEvict(service string) {
	if l.OnEvictCb != nil {
		l.OnEvictCb(service)
	}
}

type nopListener struct{}

func (nopListener) OnOpen(string, bool)     {}
func (nopListener) OnClose(string)          {}
func (nopListener) OnSend(string, int)      {}
func (nopListener) OnTrim(string, int, int) {}
func (nopListener) OnStale(string, int)     {}
func (nopListener) OnEvict(string)          {}
