package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ashureev/braindump/internal/domain"
	"gopkg.in/yaml.v3"
)

const fencedReply = "Busy day!\n```json\n" +
	`{"tasks":[{"title":"Email boss","priority":"HIGH","category":"work","estimated_time":"15m"}],` +
	`"schedule":[],"mood":"stressed","energy_level":"low"}` +
	"\n```"

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReplyparseJSONFromStdin(t *testing.T) {
	t.Parallel()

	out, err := run(t, fencedReply)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	var got domain.ParsedReply
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got.ConversationText != "Busy day!" || got.Stage != domain.StageFenced {
		t.Fatalf("unexpected reply: %+v", got)
	}
	if len(got.Tasks) != 1 || got.Tasks[0].Priority != domain.PriorityHigh {
		t.Fatalf("unexpected tasks: %+v", got.Tasks)
	}
}

func TestReplyparseYAMLFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reply.txt")
	if err := os.WriteFile(path, []byte(fencedReply), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	out, err := run(t, "", "--format", "yaml", path)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	var got domain.ParsedReply
	if err := yaml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, out)
	}
	if got.Mood != domain.MoodStressed || got.EnergyLevel != domain.EnergyLow {
		t.Fatalf("unexpected mood/energy: %+v", got)
	}
}

func TestReplyparseStage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{fencedReply, "fenced"},
		{`Sure {"tasks":[],"schedule":[]}`, "brace"},
		{"Have a great day!", "none"},
	}

	for _, tt := range tests {
		out, err := run(t, tt.input, "--stage")
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if got := strings.TrimSpace(out); got != tt.want {
			t.Errorf("stage for %q = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestReplyparseErrors(t *testing.T) {
	t.Parallel()

	if _, err := run(t, "hi", "--format", "xml"); err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Fatalf("expected unknown format error, got %v", err)
	}
	if _, err := run(t, "", filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
