package engine

import (
	"fmt"

	"github.com/rhuss/strom/pkg/api"
)

// OutputItem is one assistant message of a response. Its content parts are
// created lazily and at most one may be open at a time. The item shares
// the response's sequence counter so frames of all items interleave into
// one gap-free sequence.
type OutputItem struct {
	id          string
	outputIndex int
	seq         *SequenceCounter
	status      api.ItemStatus
	nextContent int
	content     []api.OutputTextPart
	open        *TextPart
	final       *api.OutputItem
}

func newOutputItem(id string, outputIndex int, seq *SequenceCounter) *OutputItem {
	return &OutputItem{id: id, outputIndex: outputIndex, seq: seq}
}

// ID returns the item id.
func (it *OutputItem) ID() string { return it.id }

// OutputIndex returns the item's position in the response output.
func (it *OutputItem) OutputIndex() int { return it.outputIndex }

// OpenPart returns the currently open content part, or nil.
func (it *OutputItem) OpenPart() *TextPart { return it.open }

// Open returns the output_item.added frame carrying an empty in_progress
// message.
func (it *OutputItem) Open() (api.StreamEvent, error) {
	if err := api.ValidateItemTransition(it.status, api.ItemStatusInProgress); err != nil {
		return api.StreamEvent{}, err
	}
	it.status = api.ItemStatusInProgress
	return api.StreamEvent{
		Type:           api.EventOutputItemAdded,
		SequenceNumber: it.seq.Next(),
		OutputIndex:    it.outputIndex,
		Item:           it.message(nil),
	}, nil
}

// NewTextPart allocates the next content part. It fails when another part
// is still open or the item is not in progress.
func (it *OutputItem) NewTextPart() (*TextPart, error) {
	if it.status != api.ItemStatusInProgress {
		return nil, fmt.Errorf("output item %s is %q, not in_progress", it.id, it.status)
	}
	if it.open != nil {
		return nil, fmt.Errorf("output item %s already has open content part %d", it.id, it.open.index)
	}
	p := &TextPart{item: it, index: it.nextContent}
	it.nextContent++
	it.open = p
	return p, nil
}

// Close returns the output_item.done frame with the completed message and
// all closed parts in creation order. It fails while a part is open.
func (it *OutputItem) Close() (api.StreamEvent, error) {
	if it.open != nil {
		return api.StreamEvent{}, fmt.Errorf("output item %s closed with content part %d still open", it.id, it.open.index)
	}
	if err := api.ValidateItemTransition(it.status, api.ItemStatusCompleted); err != nil {
		return api.StreamEvent{}, err
	}
	it.status = api.ItemStatusCompleted
	final := it.message(it.content)
	it.final = final
	return api.StreamEvent{
		Type:           api.EventOutputItemDone,
		SequenceNumber: it.seq.Next(),
		OutputIndex:    it.outputIndex,
		Item:           final,
	}, nil
}

// Snapshot returns the completed message. ok is false until Close succeeded.
func (it *OutputItem) Snapshot() (item api.OutputItem, ok bool) {
	if it.final == nil {
		return api.OutputItem{}, false
	}
	return it.final.Clone(), true
}

func (it *OutputItem) registerPart(p *TextPart, snap api.OutputTextPart) {
	it.content = append(it.content, snap)
	if it.open == p {
		it.open = nil
	}
}

func (it *OutputItem) message(content []api.OutputTextPart) *api.OutputItem {
	parts := make([]api.OutputTextPart, len(content))
	copy(parts, content)
	return &api.OutputItem{
		ID:      it.id,
		Content: parts,
		Role:    api.RoleAssistant,
		Status:  it.status,
		Type:    api.ItemTypeMessage,
	}
}
