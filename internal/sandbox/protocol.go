package sandbox

// Host ↔ instance wire protocol. Internal boundary, kept stable: the host
// correlates responses by id.

// Request types.
const (
	ReqInit       = "init"
	ReqEval       = "eval"
	ReqEvalModule = "evalModule"
)

// Response types.
const (
	RespReady  = "ready"
	RespResult = "result"
	RespError  = "error"
)

// Request is one host → instance message.
type Request struct {
	Type    string            `json:"type"`
	ID      string            `json:"id,omitempty"`
	Code    string            `json:"code,omitempty"`
	Entry   string            `json:"entry,omitempty"`
	Modules map[string]string `json:"modules,omitempty"`
}

// Response is one instance → host message.
type Response struct {
	Type   string      `json:"type"`
	ID     string      `json:"id,omitempty"`
	Result *ExecResult `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
	Logs   []string    `json:"logs,omitempty"`
}

// Instance lifecycle states.
const (
	StateUninitialized = "uninitialized"
	StateInitializing  = "initializing"
	StateReady         = "ready"
	StateExecuting     = "executing"
	StateIdle          = "idle"
	StateError         = "error"
)
