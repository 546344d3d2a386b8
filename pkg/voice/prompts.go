package voice

// Spoken feedback.
const (
	PromptListening      = "I'm listening. Please speak your question."
	PromptProcessing     = "Processing your question..."
	PromptNotUnderstood  = "Sorry, I couldn't understand that. Please try again."
	PromptMicUnavailable = "I couldn't access the microphone. Please check your permissions."
)
