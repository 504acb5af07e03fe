package domain

import "time"

// Agent is an addressable instance on the remote agent platform.
type Agent struct {
	Name      string    `json:"name"`
	Parent    string    `json:"parent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionAgent is the clone of the template agent owned by one browser session.
type SessionAgent struct {
	SessionID       string         `json:"session_id"`
	Name            string         `json:"name,omitempty"`
	ParentAgentName string         `json:"parent_agent_name"`
	State           ProvisionState `json:"state"`
	Error           string         `json:"error,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	ReadyAt         *time.Time     `json:"ready_at,omitempty"`
}
