package run

// Kind is the discriminator of an upstream run event.
type Kind string

const (
	KindStarted          Kind = "run_started"
	KindContent          Kind = "run_content"
	KindContentCompleted Kind = "run_content_completed"
	KindCompleted        Kind = "run_completed"
)

// ContentTypeText is the content type of plain text chunks.
const ContentTypeText = "str"

// Event is one upstream run event. The set of implementations is closed.
type Event interface {
	Kind() Kind
	isEvent()
}

// Started opens the run.
type Started struct {
	RunID     string
	CreatedAt int64
}

// Content carries one chunk of generated content. Content is nil when the
// upstream sent a null payload.
type Content struct {
	ContentType string
	Content     any
}

// ContentCompleted marks the end of the current content span.
type ContentCompleted struct{}

// Completed closes the run. Metrics may be nil.
type Completed struct {
	Metrics *Metrics
}

// Unknown is any event whose discriminator is not recognized.
type Unknown struct {
	Name string
}

func (Started) Kind() Kind          { return KindStarted }
func (Content) Kind() Kind          { return KindContent }
func (ContentCompleted) Kind() Kind { return KindContentCompleted }
func (Completed) Kind() Kind        { return KindCompleted }
func (u Unknown) Kind() Kind        { return Kind(u.Name) }

func (Started) isEvent()          {}
func (Content) isEvent()          {}
func (ContentCompleted) isEvent() {}
func (Completed) isEvent()        {}
func (Unknown) isEvent()          {}

// Text returns the content as a string when it is a plain text chunk.
func (c Content) Text() (string, bool) {
	if c.ContentType != ContentTypeText {
		return "", false
	}
	s, ok := c.Content.(string)
	return s, ok
}

// Metrics is the token accounting reported by the upstream at completion.
type Metrics struct {
	InputTokens     int  `json:"input_tokens"`
	OutputTokens    int  `json:"output_tokens"`
	TotalTokens     int  `json:"total_tokens"`
	CacheReadTokens *int `json:"cache_read_tokens,omitempty"`
}
