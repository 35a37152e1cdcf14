// Package parser splits free-form completion replies into conversational text
// and a normalized task/schedule payload.
//
// Extraction runs as a small state machine:
//
//	seekingFence -> seekingBrace -> noStructure
//
// Each state either produces a reply or hands off to the next one. Parse never
// fails; the worst case is the raw reply returned unchanged with no payload.
package parser

import (
	"encoding/json"
	"strings"

	"github.com/ashureev/braindump/internal/domain"
)

const (
	fenceOpen  = "```json"
	fenceClose = "```"
)

type state int

const (
	seekingFence state = iota
	seekingBrace
	noStructure
)

// Parse extracts the conversational portion and structured payload from raw.
func Parse(raw string) domain.ParsedReply {
	st := seekingFence
	for {
		switch st {
		case seekingFence:
			if reply, ok := parseFenced(raw); ok {
				return reply
			}
			st = seekingBrace
		case seekingBrace:
			if reply, ok := parseBrace(raw); ok {
				return reply
			}
			st = noStructure
		default:
			return domain.Unstructured(raw)
		}
	}
}

// parseFenced handles "prose ```json {...} ``` trailing". The body runs to the
// next closing fence, or to the end of the reply when the fence is unterminated.
func parseFenced(raw string) (domain.ParsedReply, bool) {
	before, after, found := strings.Cut(raw, fenceOpen)
	if !found {
		return domain.ParsedReply{}, false
	}
	body, _, _ := strings.Cut(after, fenceClose)

	reply, ok := decodePayload(strings.TrimSpace(body))
	if !ok {
		return domain.ParsedReply{}, false
	}
	reply.ConversationText = strings.TrimSpace(before)
	reply.Stage = domain.StageFenced
	return reply, true
}

// parseBrace treats the text before the first '{' as prose and the span from
// the last '{' to the last '}' as the payload. Nested objects therefore only
// survive when the innermost object is also the last one in the reply.
func parseBrace(raw string) (domain.ParsedReply, bool) {
	first := strings.IndexByte(raw, '{')
	if first < 0 {
		return domain.ParsedReply{}, false
	}
	tail := raw[first:]
	start := strings.LastIndexByte(tail, '{')
	end := strings.LastIndexByte(tail, '}')
	if end < start {
		return domain.ParsedReply{}, false
	}

	reply, ok := decodePayload(tail[start : end+1])
	if !ok {
		return domain.ParsedReply{}, false
	}
	reply.ConversationText = strings.TrimSpace(raw[:first])
	reply.Stage = domain.StageBrace
	return reply, true
}

// decodePayload accepts any JSON object and normalizes it field by field.
func decodePayload(candidate string) (domain.ParsedReply, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil || fields == nil {
		return domain.ParsedReply{}, false
	}

	return domain.ParsedReply{
		Tasks:                  normalizeTasks(fields["tasks"]),
		Schedule:               normalizeSchedule(fields["schedule"]),
		Mood:                   domain.ParseMood(stringField(fields, "mood")),
		EnergyLevel:            domain.ParseEnergyLevel(stringField(fields, "energy_level")),
		StructuredPayloadFound: true,
	}, true
}

func normalizeTasks(raw json.RawMessage) []domain.Task {
	tasks := []domain.Task{}
	for _, elem := range objectElements(raw) {
		tasks = append(tasks, domain.Task{
			Title:         strings.TrimSpace(stringField(elem, "title")),
			Priority:      domain.ParsePriority(stringField(elem, "priority")),
			Category:      domain.ParseCategory(stringField(elem, "category")),
			EstimatedTime: strings.TrimSpace(textField(elem, "estimated_time")),
		})
	}
	return tasks
}

func normalizeSchedule(raw json.RawMessage) []domain.ScheduleEntry {
	schedule := []domain.ScheduleEntry{}
	for _, elem := range objectElements(raw) {
		schedule = append(schedule, domain.ScheduleEntry{
			Time:     strings.TrimSpace(textField(elem, "time")),
			Activity: strings.TrimSpace(textField(elem, "activity")),
		})
	}
	return schedule
}

// objectElements returns the object members of a JSON array. Anything that is
// not an array yields nothing; array members that are not objects are skipped.
func objectElements(raw json.RawMessage) []map[string]json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]map[string]json.RawMessage, 0, len(items))
	for _, item := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil || obj == nil {
			continue
		}
		out = append(out, obj)
	}
	return out
}

// stringField returns obj[key] when it is a JSON string, else "".
func stringField(obj map[string]json.RawMessage, key string) string {
	raw, ok := obj[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// textField is stringField for free-form fields: JSON numbers are kept in
// their literal form instead of being dropped.
func textField(obj map[string]json.RawMessage, key string) string {
	raw, ok := obj[key]
	if !ok {
		return ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return stringField(obj, key)
}
