package api

import "encoding/json"

// ResponseStatus is the lifecycle status of a response.
type ResponseStatus string

const (
	ResponseStatusInProgress ResponseStatus = "in_progress"
	ResponseStatusCompleted  ResponseStatus = "completed"
)

// ItemStatus is the lifecycle status of an output item.
type ItemStatus string

const (
	ItemStatusInProgress ItemStatus = "in_progress"
	ItemStatusCompleted  ItemStatus = "completed"
)

const (
	ObjectResponse     = "response"
	ItemTypeMessage    = "message"
	RoleAssistant      = "assistant"
	PartTypeOutputText = "output_text"
	ToolChoiceAuto     = "auto"
)

// OutputTextPart is one output_text content part of an assistant message.
// Annotations are always empty in this protocol revision.
type OutputTextPart struct {
	Annotations []json.RawMessage `json:"annotations"`
	Text        string            `json:"text"`
	Type        string            `json:"type"`
}

// MarshalJSON forces annotations to an empty array and defaults the type.
func (p OutputTextPart) MarshalJSON() ([]byte, error) {
	type wire OutputTextPart
	w := wire(p)
	if w.Annotations == nil {
		w.Annotations = []json.RawMessage{}
	}
	if w.Type == "" {
		w.Type = PartTypeOutputText
	}
	return json.Marshal(w)
}

// OutputItem is an assistant message carried in a response's output list
// and in output_item frames.
type OutputItem struct {
	ID      string           `json:"id"`
	Content []OutputTextPart `json:"content"`
	Role    string           `json:"role"`
	Status  ItemStatus       `json:"status"`
	Type    string           `json:"type"`
}

// MarshalJSON renders a nil content list as [] and fills the fixed
// role/type discriminators.
func (it OutputItem) MarshalJSON() ([]byte, error) {
	type wire OutputItem
	w := wire(it)
	if w.Content == nil {
		w.Content = []OutputTextPart{}
	}
	if w.Role == "" {
		w.Role = RoleAssistant
	}
	if w.Type == "" {
		w.Type = ItemTypeMessage
	}
	return json.Marshal(w)
}

// Usage reports token consumption for a completed response.
type Usage struct {
	InputTokens         int                 `json:"input_tokens"`
	InputTokensDetails  InputTokensDetails  `json:"input_tokens_details"`
	OutputTokens        int                 `json:"output_tokens"`
	OutputTokensDetails OutputTokensDetails `json:"output_tokens_details"`
	TotalTokens         int                 `json:"total_tokens"`
}

// InputTokensDetails breaks down input token usage.
type InputTokensDetails struct {
	CachedTokens int `json:"cached_tokens"`
}

// OutputTokensDetails breaks down output token usage.
type OutputTokensDetails struct {
	ReasoningTokens int `json:"reasoning_tokens"`
}

// Response is the response resource snapshot. Fields typed as any or as
// pointers are protocol filler that this gateway always emits as null; they
// are kept so clients with strict schemas accept the payload.
type Response struct {
	ID                   string            `json:"id"`
	CreatedAt            int64             `json:"created_at"`
	Error                *APIError         `json:"error"`
	IncompleteDetails    any               `json:"incomplete_details"`
	Instructions         any               `json:"instructions"`
	Metadata             map[string]string `json:"metadata"`
	Model                string            `json:"model"`
	Object               string            `json:"object"`
	Output               []OutputItem      `json:"output"`
	ParallelToolCalls    bool              `json:"parallel_tool_calls"`
	Temperature          *float64          `json:"temperature"`
	ToolChoice           string            `json:"tool_choice"`
	Tools                []json.RawMessage `json:"tools"`
	TopP                 *float64          `json:"top_p"`
	Background           *bool             `json:"background"`
	Conversation         any               `json:"conversation"`
	MaxOutputTokens      *int              `json:"max_output_tokens"`
	MaxToolCalls         *int              `json:"max_tool_calls"`
	PreviousResponseID   *string           `json:"previous_response_id"`
	Prompt               any               `json:"prompt"`
	PromptCacheKey       *string           `json:"prompt_cache_key"`
	PromptCacheRetention *string           `json:"prompt_cache_retention"`
	Reasoning            any               `json:"reasoning"`
	SafetyIdentifier     *string           `json:"safety_identifier"`
	ServiceTier          *string           `json:"service_tier"`
	Status               ResponseStatus    `json:"status"`
	Text                 any               `json:"text"`
	TopLogprobs          *int              `json:"top_logprobs"`
	Truncation           *string           `json:"truncation"`
	Usage                *Usage            `json:"usage"`
	User                 *string           `json:"user"`
}

// NewResponse returns an in_progress response with every filler field at
// its protocol default.
func NewResponse(id string, createdAt int64, model string) *Response {
	return &Response{
		ID:                id,
		CreatedAt:         createdAt,
		Model:             model,
		Object:            ObjectResponse,
		Output:            []OutputItem{},
		ParallelToolCalls: true,
		ToolChoice:        ToolChoiceAuto,
		Tools:             []json.RawMessage{},
		Status:            ResponseStatusInProgress,
	}
}

// MarshalJSON keeps output and tools as arrays even when unset.
func (r Response) MarshalJSON() ([]byte, error) {
	type wire Response
	w := wire(r)
	if w.Output == nil {
		w.Output = []OutputItem{}
	}
	if w.Tools == nil {
		w.Tools = []json.RawMessage{}
	}
	if w.Object == "" {
		w.Object = ObjectResponse
	}
	return json.Marshal(w)
}

// Clone returns a deep copy of the response so that emitted snapshots stay
// fixed while the owner keeps mutating.
func (r *Response) Clone() *Response {
	c := *r
	if r.Output != nil {
		c.Output = make([]OutputItem, len(r.Output))
		for i, it := range r.Output {
			c.Output[i] = it.Clone()
		}
	}
	if r.Usage != nil {
		u := *r.Usage
		c.Usage = &u
	}
	return &c
}

// Clone returns a deep copy of the item.
func (it OutputItem) Clone() OutputItem {
	c := it
	if it.Content != nil {
		c.Content = append([]OutputTextPart(nil), it.Content...)
	}
	return c
}
