package config

import "testing"

func validConfig() *Config {
	cfg := &Config{}
	cfg.Signals = SignalConfig{
		ShortWindowDays:          30,
		LongWindowDays:           180,
		MinRecurringOccurrences:  3,
		RecurringAmountCVMax:     0.25,
		UtilizationWarnPct:       30,
		UtilizationHighPct:       50,
		UtilizationCriticalPct:   80,
		MinPaymentTolerancePct:   5,
		InterestLookbackDays:     35,
		MinPaycheckOccurrences:   2,
		WeeklyGapToleranceDays:   2,
		BiweeklyGapToleranceDays: 3,
		MonthlyGapToleranceDays:  5,
	}
	cfg.Personas = PersonaConfig{
		HighUtilizationPct:    50,
		VariablePayGapDays:    45,
		LowCashBufferMonths:   1,
		SubscriptionMinCount:  3,
		SubscriptionSpendMin:  50,
		SubscriptionShareMin:  0.10,
		TightCashBufferMonths: 2,
		SavingsGrowthLow:      0.01,
		SavingsInflowLow:      100,
		SavingsGrowthMin:      0.02,
		SavingsInflowMin:      200,
		SavingsMaxUtilPct:     30,
	}
	cfg.Selection = SelectionConfig{EducationMin: 3, EducationMax: 5, OffersMin: 1, OffersMax: 3}
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"inverted windows", func(c *Config) { c.Signals.ShortWindowDays = 200 }},
		{"zero window", func(c *Config) { c.Signals.LongWindowDays = 0 }},
		{"recurring minimum too low", func(c *Config) { c.Signals.MinRecurringOccurrences = 1 }},
		{"negative CV ceiling", func(c *Config) { c.Signals.RecurringAmountCVMax = -0.1 }},
		{"unordered utilization thresholds", func(c *Config) { c.Signals.UtilizationHighPct = 90 }},
		{"education min above max", func(c *Config) { c.Selection.EducationMin = 9 }},
		{"offers min above max", func(c *Config) { c.Selection.OffersMin = 9 }},
		{"share threshold above one", func(c *Config) { c.Personas.SubscriptionShareMin = 1.5 }},
		{"nonpositive pay gap bound", func(c *Config) { c.Personas.VariablePayGapDays = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default configuration must validate: %v", err)
	}
	if cfg.Signals.ShortWindowDays != 30 || cfg.Signals.LongWindowDays != 180 {
		t.Errorf("unexpected default windows: %d/%d", cfg.Signals.ShortWindowDays, cfg.Signals.LongWindowDays)
	}
}

func TestLoadFromEnvRejectsMalformedValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric float", "PERSONA_HIGH_UTILIZATION_PCT", "abc"},
		{"non-numeric int", "SIGNAL_SHORT_WINDOW_DAYS", "thirty"},
		{"trailing junk", "SIGNAL_LONG_WINDOW_DAYS", "180days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := LoadFromEnv(); err == nil {
				t.Errorf("expected load error for %s=%q", tt.key, tt.value)
			}
		})
	}
}
