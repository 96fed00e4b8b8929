package pipeline

// CommandSource says where a command was discovered in the source material.
type CommandSource string

const (
	SourceCodeBlock CommandSource = "code-block"
	SourceInline    CommandSource = "inline"
	SourceExtracted CommandSource = "extracted"
)

// ParsedCommand is a shell command discovered by an external parsing
// collaborator. The pipeline core consumes these records; it never produces
// them.
type ParsedCommand struct {
	Text             string
	Source           CommandSource
	CommandType      string
	Context          string
	Priority         int
	PolicyViolations []string
	Allowed          bool
}
