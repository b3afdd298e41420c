package sensor

// Preset names for common capture geometries.
const (
	Preset480p  = "480p"
	Preset720p  = "720p"
	Preset1080p = "1080p"
)

type geometry struct {
	width, height int
}

var presets = map[string]geometry{
	Preset480p:  {640, 480},
	Preset720p:  {1280, 720},
	Preset1080p: {1920, 1080},
}

// PresetNames returns the available preset names.
func PresetNames() []string {
	return []string{Preset480p, Preset720p, Preset1080p}
}

// ApplyPreset sets the resolution named by preset on cfg. It returns
// the updated config and whether the preset was recognized.
func ApplyPreset(cfg Config, preset string) (Config, bool) {
	g, ok := presets[preset]
	if !ok {
		return cfg, false
	}
	cfg.Width = g.width
	cfg.Height = g.height
	return cfg, true
}
