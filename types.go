package slackdm

const (
	StatusSuccess        = "success"
	StatusRetryRequested = "retry_requested"
	StatusHalted         = "halted"
)

// ExecutionContext is supplied by the host framework for each invocation.
// The handler only reads from it.
type ExecutionContext struct {
	Environment map[string]string
	Secrets     map[string]string
}

func (ec ExecutionContext) env(key string) string {
	return ec.Environment[key]
}

func (ec ExecutionContext) secret(key string) string {
	return ec.Secrets[key]
}

// Params are the job parameters of a single invocation.
type Params struct {
	UserEmail string `json:"userEmail" yaml:"userEmail"`
	Text      string `json:"text" yaml:"text"`
	Delay     string `json:"delay,omitempty" yaml:"delay,omitempty"`
	Address   string `json:"address,omitempty" yaml:"address,omitempty"`
}

// Result is returned by [Handler.Invoke] when the message was delivered.
type Result struct {
	Status    string `json:"status"`
	UserEmail string `json:"userEmail"`
	UserID    string `json:"userId"`
	Text      string `json:"text"`
	TS        string `json:"ts"`
	OK        bool   `json:"ok"`
}

// RetryResult asks the host framework to invoke the action again.
type RetryResult struct {
	Status string `json:"status"`
}

// HaltResult acknowledges a halt request.
type HaltResult struct {
	Status    string `json:"status"`
	UserEmail string `json:"userEmail"`
	Reason    string `json:"reason"`
	HaltedAt  string `json:"halted_at"`
}
