package fileupload

// Event is emitted by an Item. The set of events is closed: Uploading,
// Selected and Remove.
type Event interface {
	event()
}

// Uploading relays the uploader's notification unchanged.
type Uploading struct {
	File File
}

// Selected reports a click on a view-only item.
type Selected struct{}

// Remove asks the parent to remove File.
type Remove struct {
	File File
}

func (Uploading) event() {}
func (Selected) event()  {}
func (Remove) event()    {}

// Handler receives each kind of Event.
type Handler interface {
	OnUploading(f File)
	OnSelected()
	OnRemove(f File)
}

// Dispatch calls the Handler method matching e.
func Dispatch(e Event, h Handler) {
	switch ev := e.(type) {
	case Uploading:
		h.OnUploading(ev.File)
	case Selected:
		h.OnSelected()
	case Remove:
		h.OnRemove(ev.File)
	}
}

// Emitter receives events from an Item.
type Emitter interface {
	Emit(e Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(e Event)

// Emit calls f(e).
func (f EmitterFunc) Emit(e Event) { f(e) }

// HandlerEmitter returns an Emitter dispatching to h.
func HandlerEmitter(h Handler) Emitter {
	return EmitterFunc(func(e Event) { Dispatch(e, h) })
}
