package evaluator

import (
	"vital-guard/internal/models"
)

// 危急带阈值（比默认阈值更宽的界限，越过即危急）
var (
	criticalHeartRate   = models.IntRange{Min: 40, Max: 150}
	criticalOxygenMin   = 85
	criticalTemperature = models.FloatRange{Min: 95.0, Max: 104.0}
	criticalSystolic    = models.IntRange{Min: 70, Max: 180}
	criticalDiastolic   = models.IntRange{Min: 40, Max: 120}
)

// IsEmergency 判断读数是否为紧急
// 逐字段独立评估，任一存在字段越界即为紧急；缺失字段跳过，不算违反。
// 纯函数，无 I/O，阈值可按调用覆盖。
func IsEmergency(v models.VitalSigns, th models.VitalThresholds) bool {
	return countViolations(v, th) > 0
}

// Severity 按危急带/警告带计算报警级别
// 这是比 IsEmergency 更粗的分类器：IsEmergency 决定是否报警，
// Severity 决定通知的紧急程度。
// 规则：>=2 个危急带违反 → critical；>=1 个 → high；
// >=2 个警告带违反（无危急）→ medium；否则 → low。
func Severity(v models.VitalSigns) string {
	critical := countCriticalViolations(v)
	warning := countViolations(v, models.DefaultThresholds())

	switch {
	case critical >= 2:
		return models.SeverityCritical
	case critical >= 1:
		return models.SeverityHigh
	case warning >= 2:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// countViolations 统计相对给定阈值的越界字段数（警告带）
func countViolations(v models.VitalSigns, th models.VitalThresholds) int {
	count := 0

	if v.HeartRate != nil {
		if *v.HeartRate < th.HeartRate.Min || *v.HeartRate > th.HeartRate.Max {
			count++
		}
	}
	if v.OxygenSaturation != nil {
		if *v.OxygenSaturation < th.OxygenSaturationMin {
			count++
		}
	}
	if v.Temperature != nil {
		if *v.Temperature < th.Temperature.Min || *v.Temperature > th.Temperature.Max {
			count++
		}
	}
	if v.BloodPressure != nil {
		if v.BloodPressure.Systolic < th.Systolic.Min || v.BloodPressure.Systolic > th.Systolic.Max {
			count++
		}
		if v.BloodPressure.Diastolic < th.Diastolic.Min || v.BloodPressure.Diastolic > th.Diastolic.Max {
			count++
		}
	}

	return count
}

// countCriticalViolations 统计危急带越界字段数
func countCriticalViolations(v models.VitalSigns) int {
	count := 0

	if v.HeartRate != nil {
		if *v.HeartRate < criticalHeartRate.Min || *v.HeartRate > criticalHeartRate.Max {
			count++
		}
	}
	if v.OxygenSaturation != nil {
		if *v.OxygenSaturation < criticalOxygenMin {
			count++
		}
	}
	if v.Temperature != nil {
		if *v.Temperature < criticalTemperature.Min || *v.Temperature > criticalTemperature.Max {
			count++
		}
	}
	if v.BloodPressure != nil {
		if v.BloodPressure.Systolic < criticalSystolic.Min || v.BloodPressure.Systolic > criticalSystolic.Max {
			count++
		}
		if v.BloodPressure.Diastolic < criticalDiastolic.Min || v.BloodPressure.Diastolic > criticalDiastolic.Max {
			count++
		}
	}

	return count
}
