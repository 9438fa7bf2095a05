package config

// Defaults applied by Normalize.
const (
	DefaultFreqHz          = 800000
	DefaultBrightness      = 128
	DefaultPattern         = "rainbow_wave"
	DefaultExportIntervalS = 10
)

// Normalize applies post-validation defaults.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Hardware.FreqHz == 0 {
		cfg.Hardware.FreqHz = DefaultFreqHz
	}
	if cfg.Hardware.Brightness == nil {
		b := DefaultBrightness
		cfg.Hardware.Brightness = &b
	}

	if cfg.Startup.Pattern == "" {
		cfg.Startup.Pattern = DefaultPattern
	}

	if cfg.Metrics.ExportIntervalS == 0 {
		cfg.Metrics.ExportIntervalS = DefaultExportIntervalS
	}
}

// EffectiveBrightness resolves the startup brightness: the startup override
// wins over the hardware default.
func (c *Config) EffectiveBrightness() int {
	if c.Startup.Brightness != nil {
		return *c.Startup.Brightness
	}
	if c.Hardware.Brightness != nil {
		return *c.Hardware.Brightness
	}
	return DefaultBrightness
}
