package workflowdef

import "testing"

const sampleTOML = `
[meta]
name = "greeting-workflow"
description = "says hello"

[[stage]]
name = "greet"
prompt_template = "Say hello to {{name}}"

  [stage.agent]
  name = "greeter"
  system_prompt = "You are friendly."

[[stage]]
name = "farewell"
prompt_template = "Say goodbye to {{name}}"
max_retries = 0

  [stage.agent]
  name = "farewell-agent"
`

const sampleYAML = `
meta:
  name: greeting-workflow
  description: says hello
stages:
  - name: greet
    prompt_template: "Say hello to {{name}}"
    agent:
      name: greeter
`

func TestLoadTOML(t *testing.T) {
	f, err := LoadTOML([]byte(sampleTOML))
	if err != nil {
		t.Fatalf("LoadTOML returned error: %v", err)
	}
	if f.Meta.Name != "greeting-workflow" {
		t.Fatalf("Meta.Name = %q", f.Meta.Name)
	}
	if len(f.Stages) != 2 {
		t.Fatalf("got %d stages, want 2", len(f.Stages))
	}
	if f.Stages[1].MaxRetries == nil || *f.Stages[1].MaxRetries != 0 {
		t.Fatalf("expected explicit max_retries=0 to be preserved, got %v", f.Stages[1].MaxRetries)
	}
	if f.Stages[0].MaxRetries != nil {
		t.Fatalf("expected unspecified max_retries to stay nil, got %v", *f.Stages[0].MaxRetries)
	}
}

func TestLoadYAML(t *testing.T) {
	f, err := LoadYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("LoadYAML returned error: %v", err)
	}
	if f.Meta.Name != "greeting-workflow" {
		t.Fatalf("Meta.Name = %q", f.Meta.Name)
	}
	if len(f.Stages) != 1 {
		t.Fatalf("got %d stages, want 1", len(f.Stages))
	}
}

func TestLoadTOMLRejectsMissingMetaName(t *testing.T) {
	_, err := LoadTOML([]byte(`
[[stage]]
name = "a"
prompt_template = "x"
`))
	if err == nil {
		t.Fatal("expected error for missing meta.name")
	}
}

func TestLoadTOMLRejectsDuplicateStageNames(t *testing.T) {
	_, err := LoadTOML([]byte(`
[meta]
name = "dup"

[[stage]]
name = "a"
prompt_template = "x"

[[stage]]
name = "a"
prompt_template = "y"
`))
	if err == nil {
		t.Fatal("expected error for duplicate stage names")
	}
}

func TestBuildAppliesDefaultMaxRetriesWhenUnspecified(t *testing.T) {
	f, err := LoadTOML([]byte(sampleTOML))
	if err != nil {
		t.Fatal(err)
	}
	stages, err := Build(f, 5)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if stages[0].MaxRetries != 5 {
		t.Fatalf("stage[0].MaxRetries = %d, want 5 (the passed-in default)", stages[0].MaxRetries)
	}
	if stages[1].MaxRetries != 0 {
		t.Fatalf("stage[1].MaxRetries = %d, want 0 (explicit override preserved)", stages[1].MaxRetries)
	}
}
