package catalog

import (
	"errors"
	"fmt"
)

// Validation errors.
var (
	ErrInvalidCatalog    = errors.New("invalid catalog")
	ErrDuplicateFilename = errors.New("duplicate filename")
	ErrUnknownRole       = errors.New("unknown voice role")
	ErrNotEnoughVoices   = errors.New("not enough voice identifiers")
)

const (
	errFmtEmptyField       = "%w: %s %d has an empty %s"
	errFmtDuplicate        = "%w: %q in %s"
	errFmtSettingRange     = "%w: dialogue %q %s must be between 0.0 and 1.0, got %.2f"
	errFmtStepKind         = "%w: mix step %d must set exactly one of clip or static_ms"
	errFmtStepNegative     = "%w: mix step %d has a negative %s"
	errFmtStaticAdvance    = "%w: mix step %d static burst needs a positive advance_ms"
	errFmtDuplicateTitle   = "%w: duplicate evidence title %q"
	errFmtReverbParameters = "%w: reverb_taps and static_fade_ms must be non-negative"
)

// Validate checks the catalog's invariants: non-empty fields, unique
// filenames per table, declared roles, and well-formed timeline steps.
func (c *Catalog) Validate() error {
	validators := []func() error{
		c.validateRoles,
		c.validateDialogue,
		c.validateEvidenceImages,
		c.validateEvidenceLinks,
		c.validateMix,
	}

	for _, validate := range validators {
		err := validate()
		if err != nil {
			return err
		}
	}

	return nil
}

func (c *Catalog) validateRoles() error {
	seen := make(map[string]struct{}, len(c.Voices.Roles))

	for i, role := range c.Voices.Roles {
		if role.Name == "" {
			return fmt.Errorf(errFmtEmptyField, ErrInvalidCatalog, "voice role", i+1, "name")
		}

		if _, ok := seen[role.Name]; ok {
			return fmt.Errorf(errFmtDuplicate, ErrInvalidCatalog, role.Name, "voice roles")
		}

		seen[role.Name] = struct{}{}
	}

	return nil
}

func (c *Catalog) validateDialogue() error {
	roles := make(map[string]struct{}, len(c.Voices.Roles))
	for _, role := range c.Voices.Roles {
		roles[role.Name] = struct{}{}
	}

	seen := make(map[string]struct{}, len(c.Dialogue))

	for i, line := range c.Dialogue {
		if line.Filename == "" {
			return fmt.Errorf(errFmtEmptyField, ErrInvalidCatalog, "dialogue line", i+1, "filename")
		}

		if line.Text == "" {
			return fmt.Errorf(errFmtEmptyField, ErrInvalidCatalog, "dialogue line", i+1, "text")
		}

		if _, ok := seen[line.Filename]; ok {
			return fmt.Errorf(errFmtDuplicate, ErrDuplicateFilename, line.Filename, "dialogue")
		}

		seen[line.Filename] = struct{}{}

		if _, ok := roles[line.Role]; !ok {
			return fmt.Errorf("%w: %q for %s", ErrUnknownRole, line.Role, line.Filename)
		}

		if line.Stability < 0 || line.Stability > 1 {
			return fmt.Errorf(errFmtSettingRange, ErrInvalidCatalog, line.Filename, "stability", line.Stability)
		}

		if line.Similarity < 0 || line.Similarity > 1 {
			return fmt.Errorf(errFmtSettingRange, ErrInvalidCatalog, line.Filename, "similarity", line.Similarity)
		}
	}

	return nil
}

func (c *Catalog) validateEvidenceImages() error {
	seen := make(map[string]struct{}, len(c.EvidenceImages))

	for i, spec := range c.EvidenceImages {
		if spec.Filename == "" {
			return fmt.Errorf(errFmtEmptyField, ErrInvalidCatalog, "evidence image", i+1, "filename")
		}

		if spec.Prompt == "" {
			return fmt.Errorf(errFmtEmptyField, ErrInvalidCatalog, "evidence image", i+1, "prompt")
		}

		if _, ok := seen[spec.Filename]; ok {
			return fmt.Errorf(errFmtDuplicate, ErrDuplicateFilename, spec.Filename, "evidence images")
		}

		seen[spec.Filename] = struct{}{}
	}

	return nil
}

func (c *Catalog) validateEvidenceLinks() error {
	titles := make(map[string]struct{}, len(c.EvidenceLinks))

	for i, link := range c.EvidenceLinks {
		if link.Title == "" {
			return fmt.Errorf(errFmtEmptyField, ErrInvalidCatalog, "evidence link", i+1, "title")
		}

		if link.Filename == "" {
			return fmt.Errorf(errFmtEmptyField, ErrInvalidCatalog, "evidence link", i+1, "filename")
		}

		if _, ok := titles[link.Title]; ok {
			return fmt.Errorf(errFmtDuplicateTitle, ErrInvalidCatalog, link.Title)
		}

		titles[link.Title] = struct{}{}
	}

	return nil
}

func (c *Catalog) validateMix() error {
	if c.Mix.ReverbTaps < 0 || c.Mix.StaticFadeMS < 0 {
		return fmt.Errorf(errFmtReverbParameters, ErrInvalidCatalog)
	}

	for i, step := range c.Mix.Steps {
		index := i + 1

		if step.IsClip() == (step.StaticMS > 0) {
			return fmt.Errorf(errFmtStepKind, ErrInvalidCatalog, index)
		}

		switch {
		case step.PauseMS < 0:
			return fmt.Errorf(errFmtStepNegative, ErrInvalidCatalog, index, "pause_ms")
		case step.ReverbDelayMS < 0:
			return fmt.Errorf(errFmtStepNegative, ErrInvalidCatalog, index, "reverb_delay_ms")
		case step.FadeOutMS < 0:
			return fmt.Errorf(errFmtStepNegative, ErrInvalidCatalog, index, "fade_out_ms")
		}

		if !step.IsClip() && step.AdvanceMS <= 0 {
			return fmt.Errorf(errFmtStaticAdvance, ErrInvalidCatalog, index)
		}
	}

	return nil
}
