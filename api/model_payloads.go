package api

import "time"

// ResourceChanged is the payload of every "<resource>:changed" event. An empty
// ID means the whole collection should be re-fetched.
type ResourceChanged struct {
	Id     string `json:"id,omitempty"`
	Action string `json:"action,omitempty" validate:"omitempty,oneof=create update"`
}

// ResourceDeleted is the payload of every "<resource>:deleted" event.
type ResourceDeleted struct {
	Id string `json:"id" validate:"required"`
}

type SpaceChanged struct {
	Id     string `json:"id" validate:"required"`
	UserId string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
	// Status is the runtime state of the space as last reported by its agent.
	Status string `json:"status,omitempty" validate:"omitempty,oneof=pending running stopping stopped deleting failed"`
}

type TemplateChanged struct {
	Id        string `json:"id" validate:"required"`
	Name      string `json:"name,omitempty"`
	IsManaged bool   `json:"is_managed,omitempty"`
}

type VolumeChanged struct {
	Id       string `json:"id" validate:"required"`
	Name     string `json:"name,omitempty"`
	Zone     string `json:"zone,omitempty"`
	Location string `json:"location,omitempty"`
}

type UserChanged struct {
	Id       string   `json:"id" validate:"required"`
	Username string   `json:"username,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	Groups   []string `json:"groups,omitempty"`
}

type AuditLogsChanged struct {
	Since time.Time `json:"since,omitempty"`
}

type AuthRequired struct {
	Reason string `json:"reason,omitempty"`
}
