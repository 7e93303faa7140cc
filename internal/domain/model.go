package domain

// Message roles accepted by every chat provider.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one role/content pair of a chat request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat selects between free text and JSON-mode output.
type ResponseFormat string

const (
	FormatText ResponseFormat = "text"
	FormatJSON ResponseFormat = "json_object"
)

// ModelRequest is one logical LLM call. It is constructed per call site and
// consumed exactly once by the invoker.
type ModelRequest struct {
	Stage          string
	RequestID      string // distinguishes parallel requests within a stage, e.g. "source_3"
	PrimaryModel   string
	FallbackModel  string
	Messages       []Message
	ResponseFormat ResponseFormat
	MaxTokens      int
}

// TokenUsage holds provider-reported token counts; any of them may be zero
// when the provider omits the figure.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	ReasoningTokens  int `json:"reasoning_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens"`
}

// Add sums another usage sample into the receiver.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.ReasoningTokens += other.ReasoningTokens
	u.TotalTokens += other.TotalTokens
}

// ChatResponse is what a provider hands back for a single attempt.
type ChatResponse struct {
	Text  string
	Usage TokenUsage
}

// ModelResult is the terminal outcome of a ModelRequest after retries and
// fallback. Transport failures end up here with Succeeded=false rather than
// as returned errors.
type ModelResult struct {
	RawText   string     `json:"raw_text,omitempty"`
	ModelUsed string     `json:"model_used"`
	Attempts  int        `json:"attempts"`
	Usage     TokenUsage `json:"usage"`
	Succeeded bool       `json:"succeeded"`
	Err       string     `json:"error,omitempty"`
}
