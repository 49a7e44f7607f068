package fileupload

import (
	"fmt"
	"sync"
)

// Item is one file slot in a node's file list.
type Item struct {
	mu      sync.Mutex
	props   Props
	emitter Emitter

	// quota is nil until SetQuota is called.
	quota *quota
}

type quota struct {
	user User
	used int64
}

// NewItem creates an item emitting to e.
func NewItem(props Props, e Emitter) *Item {
	return &Item{props: props, emitter: e}
}

// SetProps replaces the item's props.
func (it *Item) SetProps(p Props) {
	it.mu.Lock()
	it.props = p
	it.mu.Unlock()
}

// Props returns the item's props.
func (it *Item) Props() Props {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.props
}

// View renders the item's current props.
func (it *Item) View() View {
	return Render(it.Props())
}

// Click handles a click on the item row. A view-only item emits Selected;
// an editable item emits nothing and reports that a file dialog should open.
func (it *Item) Click() (openDialog bool) {
	if it.Props().IsViewOnly() {
		it.emitter.Emit(Selected{})
		return false
	}
	return true
}

// ClickRemove handles a click on the remove control. It emits Remove only
// when the control is shown.
func (it *Item) ClickRemove() {
	p := it.Props()
	if !Render(p).ShowRemove {
		return
	}
	it.emitter.Emit(Remove{File: *p.File})
}

// SetQuota limits uploads to what fits in u's allowance next to used bytes.
// Callers refresh used as uploads complete, typically from Usage.
func (it *Item) SetQuota(u User, used int64) {
	it.mu.Lock()
	it.quota = &quota{user: u, used: used}
	it.mu.Unlock()
}

// Uploading relays an uploader notification to the parent unchanged. When a
// quota is set and f does not fit, nothing is emitted and the error wraps
// ErrInsufficientSpace.
func (it *Item) Uploading(f File) error {
	it.mu.Lock()
	q := it.quota
	it.mu.Unlock()
	if q != nil {
		if err := CheckQuota(q.user, q.used, f.FileSize); err != nil {
			return fmt.Errorf("upload %s: %w", f.Checksum, err)
		}
	}
	it.emitter.Emit(Uploading{File: f})
	return nil
}
