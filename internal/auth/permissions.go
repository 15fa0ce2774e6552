package auth

// Resource is a protected part of the API.
type Resource string

const (
	ResourceSounds  Resource = "sounds"
	ResourcePresets Resource = "presets"
	ResourceMixer   Resource = "mixer"
)

// Action is an operation on a resource.
type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
	// ActionControl covers anything that changes what is heard.
	ActionControl Action = "control"
)
