package model

// FlowMode selects how a turn reaches the model.
type FlowMode string

const (
	// FlowTemplate renders the flow's prompt template and sends it as one
	// user message.
	FlowTemplate FlowMode = "template"
	// FlowDirect forwards the caller's messages to the model as they are.
	FlowDirect FlowMode = "direct"
)

// Stream protocols understood by the chat page.
const (
	StreamText = "text"
	StreamData = "data"
)

// NoWorkoutRoutine is what the edit prompt receives when the user's current
// routine cannot be fetched.
const NoWorkoutRoutine = "The user has no active workout routine."

// Flow is one configured chat endpoint.
type Flow struct {
	Name           string
	Path           string
	PagePath       string
	Greeting       string
	Mode           FlowMode
	Model          string
	Temperature    *float64
	Stop           []string
	Template       string
	RequireToken   bool
	WorkoutContext bool
	StreamProtocol string
	Completion     CompletionDetector
	Forward        ForwardTarget
}

// ForwardTarget is where completed questionnaires are posted.
type ForwardTarget struct {
	Endpoint      string
	StripNonASCII bool
}

// Forwards reports whether the flow posts anything to the fitness API.
func (f Flow) Forwards() bool {
	return f.Forward.Endpoint != "" && f.Completion.Enabled()
}
