package models

// Notification is a result dialog shown to the user after an operation.
type Notification struct {
	Action      string `json:"action"`
	Message     string `json:"message"`
	ShowButtons bool   `json:"show_buttons"`
	Blocking    bool   `json:"blocking,omitempty"`
	Success     bool   `json:"success"`
}
