package protocol

import "strings"

// Specialist identifiers used by the service's orchestrator.
const (
	AgentRequirements     = "requirements_evolver"
	AgentUXArchitect      = "ux_architect"
	AgentUIDesigner       = "ui_designer"
	AgentFrontendEngineer = "frontend_engineer"
	AgentDataArchitect    = "data_architect"
	AgentAPIDesigner      = "api_designer"
	AgentDevOps           = "devops"
)

// AgentChain lists the specialists in the order the service consults them.
var AgentChain = []string{
	AgentRequirements,
	AgentUXArchitect,
	AgentUIDesigner,
	AgentFrontendEngineer,
	AgentDataArchitect,
	AgentAPIDesigner,
	AgentDevOps,
}

// AgentDisplayName renders a specialist identifier for humans:
// "ux_architect" becomes "Ux Architect".
func AgentDisplayName(agent string) string {
	words := strings.Split(agent, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
