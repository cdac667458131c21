package workflowdef

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/meow-stack/stageflow/internal/stageerr"
	"github.com/meow-stack/stageflow/internal/types"
)

// LoadFile reads a workflow definition, choosing the TOML or YAML decoder
// by the file extension (.toml, or .yaml/.yml).
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, stageerr.Wrap(stageerr.CodeInputInvalid, "workflowdef: failed to read file", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		return LoadTOML(data)
	case ".yaml", ".yml":
		return LoadYAML(data)
	default:
		return nil, stageerr.InputInvalidf("workflowdef: unsupported workflow file extension %q", ext)
	}
}

// LoadTOML decodes a workflow definition from TOML source. Unknown keys
// are rejected, matching the teacher's decode-then-validate idiom of
// treating stray fields as an authoring mistake rather than ignoring them.
func LoadTOML(data []byte) (*File, error) {
	var f File
	meta, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, stageerr.Wrap(stageerr.CodeInputInvalid, "workflowdef: invalid TOML", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, stageerr.InputInvalidf("workflowdef: unrecognized TOML keys: %v", undecoded)
	}
	if err := validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadYAML decodes a workflow definition from YAML source, used as an
// alternate declarative format to TOML.
func LoadYAML(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, stageerr.Wrap(stageerr.CodeInputInvalid, "workflowdef: invalid YAML", err)
	}
	if err := validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

func validate(f *File) error {
	if f.Meta.Name == "" {
		return stageerr.InputInvalid("workflowdef: meta.name must not be blank")
	}
	if len(f.Stages) == 0 {
		return stageerr.InputInvalid("workflowdef: workflow must declare at least one stage")
	}
	seen := make(map[string]bool, len(f.Stages))
	for _, s := range f.Stages {
		if s.Name == "" {
			return stageerr.InputInvalid("workflowdef: stage name must not be blank")
		}
		if seen[s.Name] {
			return stageerr.InputInvalidf("workflowdef: duplicate stage name %q", s.Name)
		}
		seen[s.Name] = true
		if s.PromptTemplate == "" {
			return stageerr.InputInvalidf("workflowdef: stage %q: prompt_template must not be blank", s.Name)
		}
	}
	return nil
}

// Build converts a loaded File into real types.StageDefinition values
// ready to run through stage.Driver. defaultMaxRetries is applied to any
// stage that leaves max_retries unspecified.
func Build(f *File, defaultMaxRetries int) ([]types.StageDefinition, error) {
	stages := make([]types.StageDefinition, 0, len(f.Stages))
	for _, s := range f.Stages {
		maxRetries := defaultMaxRetries
		if s.MaxRetries != nil {
			maxRetries = *s.MaxRetries
		}
		def := types.StageDefinition{
			Name: s.Name,
			Agent: types.AgentDescriptor{
				Name:         s.Agent.Name,
				Description:  s.Agent.Description,
				SystemPrompt: s.Agent.SystemPrompt,
			},
			PromptTemplate: s.PromptTemplate,
			MaxRetries:     maxRetries,
			TaskMetadata:   s.TaskMetadata,
		}
		stages = append(stages, def)
	}
	return stages, nil
}
