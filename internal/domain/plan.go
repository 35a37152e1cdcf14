// Package domain contains core domain types for the brain dump assistant.
package domain

import "strings"

// Priority ranks a task by urgency.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Category groups tasks for display.
type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryHealth   Category = "health"
	CategoryErrands  Category = "errands"
)

// Mood is the emotional tone the assistant detected in the latest turn.
type Mood string

const (
	MoodPositive Mood = "positive"
	MoodNeutral  Mood = "neutral"
	MoodStressed Mood = "stressed"
	MoodExcited  Mood = "excited"
)

// EnergyLevel is the user's reported or inferred energy.
type EnergyLevel string

const (
	EnergyHigh   EnergyLevel = "high"
	EnergyMedium EnergyLevel = "medium"
	EnergyLow    EnergyLevel = "low"
)

// Task is a single actionable item extracted from a brain dump.
type Task struct {
	Title         string   `json:"title" yaml:"title"`
	Priority      Priority `json:"priority" yaml:"priority"`
	Category      Category `json:"category" yaml:"category"`
	EstimatedTime string   `json:"estimated_time" yaml:"estimated_time"`
}

// ScheduleEntry places an activity at a free-form time of day.
type ScheduleEntry struct {
	Time     string `json:"time" yaml:"time"`
	Activity string `json:"activity" yaml:"activity"`
}

// ParsePriority returns the priority named by s, falling back to medium.
func ParsePriority(s string) Priority {
	switch p := Priority(normalizeEnum(s)); p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p
	}
	return PriorityMedium
}

// ParseCategory returns the category named by s, falling back to personal.
func ParseCategory(s string) Category {
	switch c := Category(normalizeEnum(s)); c {
	case CategoryWork, CategoryPersonal, CategoryHealth, CategoryErrands:
		return c
	}
	return CategoryPersonal
}

// ParseMood returns the mood named by s, falling back to neutral.
func ParseMood(s string) Mood {
	switch m := Mood(normalizeEnum(s)); m {
	case MoodPositive, MoodNeutral, MoodStressed, MoodExcited:
		return m
	}
	return MoodNeutral
}

// ParseEnergyLevel returns the energy level named by s, falling back to medium.
func ParseEnergyLevel(s string) EnergyLevel {
	switch e := EnergyLevel(normalizeEnum(s)); e {
	case EnergyHigh, EnergyMedium, EnergyLow:
		return e
	}
	return EnergyMedium
}

func normalizeEnum(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
