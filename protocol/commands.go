package protocol

// Outbound commands. Each constructor returns a value ready for JSON
// serialization, with the type discriminant filled in.

type PingCommand struct {
	Type string `json:"type"`
}

func Ping() PingCommand {
	return PingCommand{Type: TypePing}
}

type NewProjectCommand struct {
	Type        string `json:"type"`
	ProjectName string `json:"project_name"`
}

func NewProject(name string) NewProjectCommand {
	return NewProjectCommand{Type: TypeNewProject, ProjectName: name}
}

type UserMessageCommand struct {
	Type      string `json:"type"`
	ProjectID string `json:"project_id"`
	Message   string `json:"message"`
}

func UserMessage(projectID, message string) UserMessageCommand {
	return UserMessageCommand{Type: TypeUserMessage, ProjectID: projectID, Message: message}
}

type GenerateCodeCommand struct {
	Type      string `json:"type"`
	ProjectID string `json:"project_id"`
}

func GenerateCode(projectID string) GenerateCodeCommand {
	return GenerateCodeCommand{Type: TypeGenerateCode, ProjectID: projectID}
}

type CheckGenerationStatusCommand struct {
	Type      string `json:"type"`
	ProjectID string `json:"project_id"`
}

func CheckGenerationStatus(projectID string) CheckGenerationStatusCommand {
	return CheckGenerationStatusCommand{Type: TypeCheckGenerationStatus, ProjectID: projectID}
}

type GetPreviewCommand struct {
	Type      string `json:"type"`
	ProjectID string `json:"project_id"`
}

func GetPreview(projectID string) GetPreviewCommand {
	return GetPreviewCommand{Type: TypeGetPreview, ProjectID: projectID}
}

type DebugRequestCommand struct {
	Type            string `json:"type"`
	ProjectID       string `json:"project_id"`
	ErrorLog        string `json:"error_log"`
	ProblematicFile string `json:"problematic_file"`
}

func DebugRequest(projectID, errorLog, problematicFile string) DebugRequestCommand {
	return DebugRequestCommand{
		Type:            TypeDebugRequest,
		ProjectID:       projectID,
		ErrorLog:        errorLog,
		ProblematicFile: problematicFile,
	}
}
