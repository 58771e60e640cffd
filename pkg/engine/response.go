package engine

import (
	"github.com/rhuss/strom/pkg/api"
	"github.com/rhuss/strom/pkg/run"
)

// ResponseStream builds one response and the frames that describe it. It
// owns the sequence counter and the output items; nothing is shared
// between responses.
type ResponseStream struct {
	resp  *api.Response
	seq   SequenceCounter
	items []*OutputItem
	newID func() string
}

// NewResponseStream returns an in_progress response with the given
// identity.
func NewResponseStream(id string, createdAt int64, model string) *ResponseStream {
	return &ResponseStream{
		resp:  api.NewResponse(id, createdAt, model),
		newID: api.NewMessageID,
	}
}

// ID returns the response id.
func (rs *ResponseStream) ID() string { return rs.resp.ID }

// Items returns the output items in creation order.
func (rs *ResponseStream) Items() []*OutputItem { return rs.items }

// Created returns the response.created frame with the in_progress snapshot.
func (rs *ResponseStream) Created() api.StreamEvent {
	return api.StreamEvent{
		Type:           api.EventResponseCreated,
		SequenceNumber: rs.seq.Next(),
		Response:       rs.resp.Clone(),
	}
}

// AddOutputItem allocates the next output item. The caller opens it.
func (rs *ResponseStream) AddOutputItem() *OutputItem {
	it := newOutputItem(rs.newID(), len(rs.items), &rs.seq)
	rs.items = append(rs.items, it)
	return it
}

// Complete marks the response completed and returns the response.completed
// frame. Output holds the snapshots of closed items in creation order;
// items that were never closed are left out. Usage is copied from m when
// the upstream reported it.
func (rs *ResponseStream) Complete(m *run.Metrics) (api.StreamEvent, error) {
	if err := api.ValidateResponseTransition(rs.resp.Status, api.ResponseStatusCompleted); err != nil {
		return api.StreamEvent{}, err
	}
	output := make([]api.OutputItem, 0, len(rs.items))
	for _, it := range rs.items {
		if snap, ok := it.Snapshot(); ok {
			output = append(output, snap)
		}
	}
	rs.resp.Output = output
	rs.resp.Usage = usageFromMetrics(m)
	rs.resp.Status = api.ResponseStatusCompleted
	return api.StreamEvent{
		Type:           api.EventResponseCompleted,
		SequenceNumber: rs.seq.Next(),
		Response:       rs.resp.Clone(),
	}, nil
}

// Snapshot returns a copy of the response in its current state.
func (rs *ResponseStream) Snapshot() *api.Response {
	return rs.resp.Clone()
}

// FramesIssued returns how many sequence numbers were handed out.
func (rs *ResponseStream) FramesIssued() int { return rs.seq.Last() }

func usageFromMetrics(m *run.Metrics) *api.Usage {
	if m == nil {
		return nil
	}
	u := &api.Usage{
		InputTokens:  m.InputTokens,
		OutputTokens: m.OutputTokens,
		TotalTokens:  m.TotalTokens,
	}
	if m.CacheReadTokens != nil {
		u.InputTokensDetails.CachedTokens = *m.CacheReadTokens
	}
	return u
}

