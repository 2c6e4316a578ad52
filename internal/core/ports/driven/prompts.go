package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the
// binary. User-editable prompt files let reviewers adjust extraction
// behaviour without rebuilding.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()

	// Dir returns the directory holding the editable prompt files.
	Dir() string
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptScreen decides whether a reference is relevant to the
	// user's description. Expects %s (description), %s (title),
	// %s (abstract) placeholders.
	PromptScreen = "screen"

	// PromptScreenSystem is the system message for the screening chat.
	// No placeholders.
	PromptScreenSystem = "screen_system"

	// PromptMeta is the pass-1 study-level extraction instruction.
	// No placeholders; the paper text is appended by the service.
	PromptMeta = "extract_meta"

	// PromptDetail is the pass-2 per-result extraction instruction.
	// Expects a %s placeholder for the main result statement.
	PromptDetail = "extract_detail"

	// PromptExtras is the pass-3 header for user-supplied extra items.
	// No placeholders; the enumerated item list and paper text are
	// appended by the service.
	PromptExtras = "extract_extras"
)
