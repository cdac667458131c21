// Package workflowdef loads declarative workflow definitions from TOML or
// YAML files and builds them into real types.StageDefinition lists that
// run through internal/stage's Driver — it never fabricates stage output.
package workflowdef

// File is the on-disk shape of a declarative workflow definition, common
// to both the TOML and YAML front-ends.
type File struct {
	Meta   Meta    `toml:"meta" yaml:"meta"`
	Stages []Stage `toml:"stage" yaml:"stages"`
}

// Meta carries the workflow's identifying information; it has no runtime
// effect on execution.
type Meta struct {
	Name        string `toml:"name" yaml:"name"`
	Description string `toml:"description" yaml:"description"`
}

// Stage is one declarative stage entry. MaxRetries is a pointer so the
// loader can distinguish "unspecified" (nil, falls back to
// types.DefaultMaxRetries or the configured stage default) from an
// explicit zero (no attempts at all, per the stage executor's contract).
type Stage struct {
	Name           string  `toml:"name" yaml:"name"`
	PromptTemplate string  `toml:"prompt_template" yaml:"prompt_template"`
	MaxRetries     *int    `toml:"max_retries" yaml:"max_retries"`
	Agent          Agent   `toml:"agent" yaml:"agent"`
	TaskMetadata   map[string]any `toml:"task_metadata" yaml:"task_metadata"`
}

// Agent is the declarative shape of types.AgentDescriptor; it carries no
// Provider, since an LLMProvider is a live collaborator wired up by the
// caller building stages from a File, not something a file can express.
type Agent struct {
	Name         string `toml:"name" yaml:"name"`
	Description  string `toml:"description" yaml:"description"`
	SystemPrompt string `toml:"system_prompt" yaml:"system_prompt"`
}
