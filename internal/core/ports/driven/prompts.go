package driven

// PromptStore supplies the system prompts sent to the reasoning service.
type PromptStore interface {
	// Load returns the named prompt. Built-in prompts always resolve, falling
	// back to their compiled-in text.
	Load(name string) (string, error)

	// Reload drops cached prompts.
	Reload()
}

// PromptTutorSystem names the tutor's system prompt. It has no placeholders.
const PromptTutorSystem = "tutor_system"

// PromptStoreAware is implemented by services whose prompts can be customised.
type PromptStoreAware interface {
	SetPromptStore(store PromptStore)
}
