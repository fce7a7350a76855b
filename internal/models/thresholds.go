package models

// IntRange 整数阈值范围（闭区间，越界即违反）
type IntRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// FloatRange 浮点阈值范围（闭区间）
type FloatRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// VitalThresholds 生命体征阈值配置（进程级默认值，可按调用覆盖；纯配置，不持久化）
type VitalThresholds struct {
	HeartRate           IntRange   `json:"heart_rate"`
	OxygenSaturationMin int        `json:"oxygen_saturation_min"` // 血氧只有下限
	Temperature         FloatRange `json:"temperature"`
	Systolic            IntRange   `json:"systolic"`
	Diastolic           IntRange   `json:"diastolic"`
}

// DefaultThresholds 默认阈值
func DefaultThresholds() VitalThresholds {
	return VitalThresholds{
		HeartRate:           IntRange{Min: 60, Max: 100},
		OxygenSaturationMin: 90,
		Temperature:         FloatRange{Min: 96.8, Max: 100.4},
		Systolic:            IntRange{Min: 90, Max: 140},
		Diastolic:           IntRange{Min: 60, Max: 90},
	}
}
