// Package prompts manages the versioned prompt templates the pipeline sends
// to the LLM. Templates live in the store with copy-on-write versioning;
// compiled-in Dutch defaults keep the pipeline working on an empty database.
package prompts

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/matchbaan/match-cli/internal/model"
	"github.com/matchbaan/match-cli/internal/resilience"
	"github.com/matchbaan/match-cli/internal/store"
)

// Entity types recorded in prompt usage logs.
const (
	EntityCandidate = "candidate"
	EntityVacancy   = "vacancy"
)

// Template placeholder names accepted by Render.
const (
	VarCVText      = "cv_text"
	VarDescription = "description"
)

// Manager resolves, versions, and seeds prompt templates on top of the store.
type Manager struct {
	store store.Store
}

// NewManager creates a Manager backed by st.
func NewManager(st store.Store) *Manager {
	return &Manager{store: st}
}

// Active returns the active prompt version for a type. When the table has no
// rows for the type it returns the compiled-in default as an unsaved prompt
// (ID 0), so extraction works before the database has ever been seeded.
func (m *Manager) Active(ctx context.Context, pt model.PromptType) (*model.Prompt, error) {
	if !model.ValidPromptType(pt) {
		return nil, resilience.NewValidationError("onbekend prompt type: %s", pt)
	}
	p, err := m.store.ActivePrompt(ctx, pt)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &model.Prompt{Type: pt, Content: DefaultContent(pt), Active: true}, nil
		}
		return nil, err
	}
	return p, nil
}

// NewVersion stores content as the next version of a type and activates it.
// The previously active version becomes the parent, so every edit keeps a
// traceable lineage back to the text it replaced.
func (m *Manager) NewVersion(ctx context.Context, pt model.PromptType, content string) (*model.Prompt, error) {
	if !model.ValidPromptType(pt) {
		return nil, resilience.NewValidationError("onbekend prompt type: %s", pt)
	}
	if strings.TrimSpace(content) == "" {
		return nil, resilience.NewValidationError("prompt inhoud mag niet leeg zijn")
	}

	var parentID *int64
	current, err := m.store.ActivePrompt(ctx, pt)
	switch {
	case err == nil:
		parentID = &current.ID
	case errors.Is(err, store.ErrNotFound):
		// first version for this type
	default:
		return nil, err
	}

	return m.store.CreatePrompt(ctx, pt, content, parentID)
}

// Activate switches the active version within the prompt's type.
func (m *Manager) Activate(ctx context.Context, id int64) error {
	return m.store.ActivatePrompt(ctx, id)
}

// Get returns one prompt version by id.
func (m *Manager) Get(ctx context.Context, id int64) (*model.Prompt, error) {
	return m.store.GetPrompt(ctx, id)
}

// List returns stored prompt versions, optionally filtered by type. An empty
// type lists all types.
func (m *Manager) List(ctx context.Context, pt model.PromptType) ([]model.Prompt, error) {
	if pt != "" && !model.ValidPromptType(pt) {
		return nil, resilience.NewValidationError("onbekend prompt type: %s", pt)
	}
	return m.store.ListPrompts(ctx, pt)
}

// seedFile is the shape of the optional prompts.yaml seed file.
type seedFile struct {
	Prompts []seedEntry `yaml:"prompts"`
}

type seedEntry struct {
	Type    model.PromptType `yaml:"type"`
	Content string           `yaml:"content"`
}

// Seed creates version 1 for every prompt type that has no stored versions
// yet. Content comes from the optional YAML file at path when it has an entry
// for the type, and from the compiled-in defaults otherwise. Existing rows
// are never touched. Returns the number of versions created.
func (m *Manager) Seed(ctx context.Context, path string) (int, error) {
	overrides, err := loadSeedFile(path)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, pt := range model.KnownPromptTypes {
		existing, err := m.store.ListPrompts(ctx, pt)
		if err != nil {
			return created, err
		}
		if len(existing) > 0 {
			continue
		}

		content, ok := overrides[pt]
		if !ok {
			content = DefaultContent(pt)
		}
		if _, err := m.store.CreatePrompt(ctx, pt, content, nil); err != nil {
			return created, err
		}
		created++
		zap.L().Info("prompts: seeded initial version",
			zap.String("type", string(pt)),
			zap.Bool("from_file", ok))
	}
	return created, nil
}

// loadSeedFile reads the optional seed YAML. A missing file is not an error;
// entries with unknown types are skipped with a warning.
func loadSeedFile(path string) (map[model.PromptType]string, error) {
	overrides := map[model.PromptType]string{}
	if path == "" {
		return overrides, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Debug("prompts: no seed file", zap.String("path", path))
			return overrides, nil
		}
		return nil, eris.Wrapf(err, "prompts: read seed file %s", path)
	}

	// The YAML has a top-level "prompts" key.
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "prompts: parse seed file %s", path)
	}

	for _, e := range f.Prompts {
		if !model.ValidPromptType(e.Type) {
			zap.L().Warn("prompts: seed file entry with unknown type skipped",
				zap.String("type", string(e.Type)))
			continue
		}
		if strings.TrimSpace(e.Content) == "" {
			zap.L().Warn("prompts: seed file entry with empty content skipped",
				zap.String("type", string(e.Type)))
			continue
		}
		overrides[e.Type] = e.Content
	}
	return overrides, nil
}

// LogUse records that a prompt version produced output for an entity. The
// compiled-in default (ID 0) has no row to reference and is skipped. Failures
// are logged and swallowed: a missing usage record must not fail an LLM call
// that already succeeded.
func (m *Manager) LogUse(ctx context.Context, p *model.Prompt, entityType string, entityID int64) {
	if p == nil || p.ID == 0 {
		return
	}
	if err := m.store.LogPromptUse(ctx, p.ID, entityType, entityID); err != nil {
		zap.L().Warn("prompts: usage log failed",
			zap.Int64("prompt_id", p.ID),
			zap.String("entity_type", entityType),
			zap.Int64("entity_id", entityID),
			zap.Error(err))
	}
}

// Render substitutes {name}-style placeholders in a prompt template. Literal
// braces elsewhere in the template (the JSON example in the extraction
// prompt) are left untouched, as are placeholders not present in vars.
func Render(content string, vars map[string]string) string {
	for k, v := range vars {
		content = strings.ReplaceAll(content, "{"+k+"}", v)
	}
	return content
}
