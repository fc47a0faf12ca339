package protocol

// Inbound records. The service includes a few fields the client does not act
// on (timestamps, echoed project ids); they are kept where a consumer might
// reasonably want them.

// ProjectCreated confirms a new_project command and assigns the project id.
type ProjectCreated struct {
	ProjectID   string `json:"project_id"`
	ProjectName string `json:"project_name"`
	Message     string `json:"message,omitempty"`
}

// AgentResponse carries one specialist's reply to a user message.
type AgentResponse struct {
	Agent     string  `json:"agent"`
	Message   string  `json:"message"`
	Timestamp float64 `json:"timestamp,omitempty"`
}

// CodeGenerated is the successful terminal record of a generation run.
type CodeGenerated struct {
	ProjectID  string          `json:"project_id,omitempty"`
	Files      []GeneratedFile `json:"files"`
	PreviewURL string          `json:"preview_url,omitempty"`
	FileCount  int             `json:"file_count,omitempty"`
	TotalSize  int             `json:"total_size,omitempty"`
	Status     string          `json:"status,omitempty"`
}

// CodeGenerationError is the failing terminal record of a generation run.
type CodeGenerationError struct {
	ProjectID string `json:"project_id,omitempty"`
	Error     string `json:"error"`
	Status    string `json:"status,omitempty"`
}

// PreviewURL carries the address of a hosted preview for the project.
type PreviewURL struct {
	ProjectID  string `json:"project_id,omitempty"`
	PreviewURL string `json:"preview_url"`
}

// GenerationStatus reports whether the service has gathered enough specialist
// input to generate. Status is set on completion records ("completed" or
// "failed"); it is empty on plain readiness reports.
type GenerationStatus struct {
	ProjectID              string   `json:"project_id,omitempty"`
	CanGenerate            bool     `json:"can_generate"`
	SubstantialAgents      int      `json:"substantial_agents,omitempty"`
	AgentContributions     []string `json:"agent_contributions,omitempty"`
	HasMinimalRequirements bool     `json:"has_minimal_requirements,omitempty"`
	Message                string   `json:"message,omitempty"`
	Status                 string   `json:"status,omitempty"`
}

// GenerationStarted acknowledges a generate_code command. It carries no state
// the client does not already have.
type GenerationStarted struct {
	ProjectID string `json:"project_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

// GenerationFailed is sent when the service refuses to start a generation
// run, typically because requirements are still too thin.
type GenerationFailed struct {
	ProjectID string `json:"project_id,omitempty"`
	Error     string `json:"error"`
	Status    string `json:"status,omitempty"`
}

// ServerError is the service's generic error record.
type ServerError struct {
	Message   string  `json:"message"`
	Timestamp float64 `json:"timestamp,omitempty"`
}
