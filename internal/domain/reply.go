package domain

// ParseStage records which extraction attempt produced a ParsedReply.
type ParseStage string

const (
	// StageFenced means the payload came from a ```json fenced block.
	StageFenced ParseStage = "fenced"
	// StageBrace means the payload came from bare braces in the reply.
	StageBrace ParseStage = "brace"
	// StageNone means no structured payload could be extracted.
	StageNone ParseStage = "none"
)

// ParsedReply is the result of splitting one completion reply.
type ParsedReply struct {
	ConversationText       string          `json:"conversation_text" yaml:"conversation_text"`
	Tasks                  []Task          `json:"tasks" yaml:"tasks"`
	Schedule               []ScheduleEntry `json:"schedule" yaml:"schedule"`
	Mood                   Mood            `json:"mood" yaml:"mood"`
	EnergyLevel            EnergyLevel     `json:"energy_level" yaml:"energy_level"`
	StructuredPayloadFound bool            `json:"structured_payload_found" yaml:"structured_payload_found"`
	Stage                  ParseStage      `json:"stage" yaml:"stage"`
}

// Unstructured wraps text that carried no usable payload.
func Unstructured(text string) ParsedReply {
	return ParsedReply{
		ConversationText: text,
		Tasks:            []Task{},
		Schedule:         []ScheduleEntry{},
		Mood:             MoodNeutral,
		EnergyLevel:      EnergyMedium,
		Stage:            StageNone,
	}
}
