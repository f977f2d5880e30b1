package lifecycle

import (
	"context"
	"fmt"
	"strconv"

	cperrors "github.com/FilippTrigub/space-goose/internal/errors"
	"github.com/FilippTrigub/space-goose/internal/metadata"
)

// SettingChange is one key/value write requested by update_settings.
type SettingChange struct {
	Key   string
	Value string
}

// UpdateSettingsResult reports whether any changed key declares
// requires_restart; it is set whether or not the project was active and a
// restart actually ran.
type UpdateSettingsResult struct {
	RestartRequired bool
}

// UpdateSettings applies changes to the metadata store; if any changed key
// declares requires_restart=true and the project is active, it patches the
// config map and triggers a rolling restart. It returns once the restart
// annotation is written, not once new pods are ready.
func (e *Engine) UpdateSettings(ctx context.Context, projectID string, changes []SettingChange) (*UpdateSettingsResult, error) {
	unlock := e.lockProject(projectID)
	defer unlock()

	project, err := e.meta.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	restartRequired := false
	for _, c := range changes {
		def, ok := metadata.LookupSetting(c.Key)
		if !ok {
			return nil, cperrors.New(cperrors.KindInvalidArgument, fmt.Sprintf("unrecognized setting key %q", c.Key))
		}
		if err := validateSettingValue(def, c.Value); err != nil {
			return nil, err
		}
		if err := e.meta.UpsertSetting(projectID, c.Key, c.Value); err != nil {
			return nil, err
		}
		if def.RequiresRestart {
			restartRequired = true
		}
	}

	if restartRequired && project.Status == metadata.StatusActive {
		if err := e.reapplyConfigAndRestart(ctx, project); err != nil {
			return nil, err
		}
	}

	return &UpdateSettingsResult{RestartRequired: restartRequired}, nil
}

// validateSettingValue performs the minimal type coercion check implied by
// the setting's declared type; enum values must be one of EnumValues.
func validateSettingValue(def metadata.SettingDef, value string) error {
	switch def.Type {
	case metadata.SettingEnum:
		for _, v := range def.EnumValues {
			if v == value {
				return nil
			}
		}
		return cperrors.New(cperrors.KindInvalidArgument, fmt.Sprintf("setting %q must be one of %v", def.Key, def.EnumValues))
	case metadata.SettingBool:
		if value != "true" && value != "false" {
			return cperrors.New(cperrors.KindInvalidArgument, fmt.Sprintf("setting %q must be true or false", def.Key))
		}
	case metadata.SettingInt:
		if _, err := strconv.Atoi(value); err != nil {
			return cperrors.New(cperrors.KindInvalidArgument, fmt.Sprintf("setting %q must be an integer", def.Key))
		}
	case metadata.SettingFloat:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return cperrors.New(cperrors.KindInvalidArgument, fmt.Sprintf("setting %q must be a number", def.Key))
		}
	}
	return nil
}

// reapplyConfigAndRestart re-renders the config map (and secret, since
// rendering is cheap and idempotent) and stamps the restart annotation.
func (e *Engine) reapplyConfigAndRestart(ctx context.Context, project *metadata.Project) error {
	user, err := e.meta.GetUser(project.UserID)
	if err != nil {
		return err
	}
	return e.restartWithFreshRender(ctx, user, project)
}
