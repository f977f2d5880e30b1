package metadata

// RecognizedSettings is the fixed, compile-time set of setting keys the
// agent workload understands. update_settings rejects any key outside
// this set.
var RecognizedSettings = []SettingDef{
	{Key: "model", Type: SettingString, Default: "claude-sonnet", RequiresRestart: true, EnvVar: "AGENT_MODEL"},
	{Key: "temperature", Type: SettingFloat, Default: "0.7", RequiresRestart: false, EnvVar: "AGENT_TEMPERATURE"},
	{Key: "max_tokens", Type: SettingInt, Default: "4096", RequiresRestart: false, EnvVar: "AGENT_MAX_TOKENS"},
	{Key: "auto_approve_tools", Type: SettingBool, Default: "false", RequiresRestart: true, EnvVar: "AGENT_AUTO_APPROVE_TOOLS"},
	{Key: "log_level", Type: SettingEnum, Default: "info", RequiresRestart: true, EnvVar: "AGENT_LOG_LEVEL", EnumValues: []string{"debug", "info", "warn", "error"}},
}

// settingDefByKey indexes RecognizedSettings for O(1) lookup.
var settingDefByKey = func() map[string]SettingDef {
	m := make(map[string]SettingDef, len(RecognizedSettings))
	for _, d := range RecognizedSettings {
		m[d.Key] = d
	}
	return m
}()

// LookupSetting returns the definition for key, or ok=false if unrecognized.
func LookupSetting(key string) (SettingDef, bool) {
	d, ok := settingDefByKey[key]
	return d, ok
}
