// Package catalog holds the static content the tools work from: dialogue
// lines, evidence image prompts, the evidence title map, and the mix timeline.
//
// A default catalog is embedded in the binary; a TOML file with the same
// shape replaces it without a rebuild.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
)

//go:embed default_catalog.toml
var defaultCatalog []byte

// Role is a voice slot that a voice identifier is bound to.
type Role struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
}

// Voices lists the roles in the order their identifiers are supplied.
type Voices struct {
	Roles []Role `toml:"roles"`
}

// DialogueLine is a scripted utterance with its synthesis tuning.
type DialogueLine struct {
	Filename   string  `toml:"filename"`
	Role       string  `toml:"role"`
	Text       string  `toml:"text"`
	Stability  float64 `toml:"stability"`
	Similarity float64 `toml:"similarity"`
}

// EvidenceImageSpec is a target filename and the prompt that produces it.
type EvidenceImageSpec struct {
	Filename string `toml:"filename"`
	Case     string `toml:"case"`
	Evidence string `toml:"evidence"`
	Prompt   string `toml:"prompt"`
}

// EvidenceLink ties an evidence row title to its image file.
type EvidenceLink struct {
	Title    string `toml:"title"`
	Filename string `toml:"filename"`
}

// TimelineStep is one entry of the mix. A clip step places a named clip and
// advances by its length plus PauseMS. A static step places a noise burst
// and advances by AdvanceMS.
type TimelineStep struct {
	Clip          string  `toml:"clip"`
	GainDB        float64 `toml:"gain_db"`
	ReverbDelayMS int     `toml:"reverb_delay_ms"`
	PauseMS       int     `toml:"pause_ms"`
	StaticMS      int     `toml:"static_ms"`
	StaticDB      float64 `toml:"static_db"`
	FadeOutMS     int     `toml:"fade_out_ms"`
	AdvanceMS     int     `toml:"advance_ms"`
}

// IsClip reports whether the step places a clip.
func (s TimelineStep) IsClip() bool {
	return s.Clip != ""
}

// Effect parameters a catalog gets when its mix section leaves them out.
const (
	DefaultReverbTaps   = 3
	DefaultReverbStepDB = 10.0
	DefaultStaticFadeMS = 50
)

// Mix describes the timeline and the effect parameters shared by its steps.
type Mix struct {
	ReverbTaps   int            `toml:"reverb_taps"`
	ReverbStepDB float64        `toml:"reverb_step_db"`
	StaticFadeMS int            `toml:"static_fade_ms"`
	Steps        []TimelineStep `toml:"steps"`
}

// ClipNames returns the distinct clips referenced by the timeline, in order.
func (m Mix) ClipNames() []string {
	seen := make(map[string]struct{}, len(m.Steps))
	names := make([]string, 0, len(m.Steps))

	for _, step := range m.Steps {
		if !step.IsClip() {
			continue
		}

		if _, ok := seen[step.Clip]; ok {
			continue
		}

		seen[step.Clip] = struct{}{}
		names = append(names, step.Clip)
	}

	return names
}

// Catalog is the complete content catalog.
type Catalog struct {
	Voices         Voices              `toml:"voices"`
	Dialogue       []DialogueLine      `toml:"dialogue"`
	EvidenceImages []EvidenceImageSpec `toml:"evidence_images"`
	EvidenceLinks  []EvidenceLink      `toml:"evidence_links"`
	Mix            Mix                 `toml:"mix"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Decode(bytes.NewReader(defaultCatalog))
}

// Load returns the catalog at path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %s: %w", path, err)
	}
	defer file.Close()

	cat, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}

	return cat, nil
}

// Decode parses and validates a catalog. Unknown keys are rejected and
// effect parameters missing from the mix section keep their defaults.
func Decode(r io.Reader) (*Catalog, error) {
	cat := Catalog{Mix: Mix{
		ReverbTaps:   DefaultReverbTaps,
		ReverbStepDB: DefaultReverbStepDB,
		StaticFadeMS: DefaultStaticFadeMS,
	}}

	decoder := toml.NewDecoder(r)
	decoder.DisallowUnknownFields()

	err := decoder.Decode(&cat)
	if err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	err = cat.Validate()
	if err != nil {
		return nil, err
	}

	return &cat, nil
}

// ImageMap returns the evidence title to image filename map.
func (c *Catalog) ImageMap() map[string]string {
	m := make(map[string]string, len(c.EvidenceLinks))
	for _, link := range c.EvidenceLinks {
		m[link.Title] = link.Filename
	}

	return m
}

// RoleNames returns the role names in argument order.
func (c *Catalog) RoleNames() []string {
	names := make([]string, len(c.Voices.Roles))
	for i, role := range c.Voices.Roles {
		names[i] = role.Name
	}

	return names
}

// AssignVoices binds voice identifiers to roles by position.
func (c *Catalog) AssignVoices(voiceIDs []string) (map[string]string, error) {
	if len(voiceIDs) < len(c.Voices.Roles) {
		return nil, fmt.Errorf("%w: need %d voice identifiers, got %d",
			ErrNotEnoughVoices, len(c.Voices.Roles), len(voiceIDs))
	}

	assigned := make(map[string]string, len(c.Voices.Roles))
	for i, role := range c.Voices.Roles {
		assigned[role.Name] = voiceIDs[i]
	}

	return assigned, nil
}
