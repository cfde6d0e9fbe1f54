package cloud

import "strconv"

// strField 容错读取字符串字段,数字也转成字符串。
// 服务端同一字段在不同固件代次上可能是字符串或数字。
func strField(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// numField 容错读取数值字段,无法解析时返回 0
func numField(m map[string]interface{}, key string) float64 {
	v, _ := lookupNum(m, key)
	return v
}

func lookupNum(m map[string]interface{}, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case string:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// realtimeReady 判断实时数据是否已就位。触发后服务端会先返回
// 全零占位数据,只要出现一个可信的非零字段就算就绪。
func realtimeReady(m map[string]interface{}) bool {
	if numField(m, "time") > 0 {
		return true
	}
	if numField(m, "enduranceMileage") > 0 {
		return true
	}
	for _, key := range []string{
		"tirePressureFrontLeft",
		"tirePressureFrontRight",
		"tirePressureRearLeft",
		"tirePressureRearRight",
	} {
		if numField(m, key) > 0 {
			return true
		}
	}
	return false
}

// gpsReady 判断定位数据是否已就位
func gpsReady(m map[string]interface{}) bool {
	if numField(m, "time") > 0 {
		return true
	}
	return numField(m, "latitude") != 0 || numField(m, "longitude") != 0
}

// Outcome 远程指令的三态结果
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

// commandOutcomeOf 解析指令回执。controlState 和 res 两个字段
// 在不同端点上并存,都有时以 controlState 为准。
func commandOutcomeOf(m map[string]interface{}) Outcome {
	if v, ok := lookupNum(m, "controlState"); ok {
		switch int(v) {
		case 1:
			return OutcomeSuccess
		case 2:
			return OutcomeFailure
		default:
			return OutcomePending
		}
	}
	if v, ok := lookupNum(m, "res"); ok {
		switch int(v) {
		case 2:
			return OutcomeSuccess
		case 0:
			return OutcomePending
		default:
			return OutcomeFailure
		}
	}
	return OutcomePending
}

// commandReady 指令回执出现终态即就绪
func commandReady(m map[string]interface{}) bool {
	return commandOutcomeOf(m) != OutcomePending
}
