package cloud

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/vclink/vclink-bridge/internal/protocol"
)

// 推送事件类型
const (
	eventRealtime = 200
	eventGPS      = 201
	eventCommand  = 300
)

// TelemetrySink 接收未匹配任何在途操作的主动推送数据
type TelemetrySink func(vin string, kind Kind, payload map[string]interface{}, source string)

// PushRouter 解密 MQTT 推送并按事件类型分发:优先兑现在途操作,
// 兑现不了的实时/定位数据按主动推送入库
type PushRouter struct {
	sessions  *SessionManager
	orch      *CommandOrchestrator
	sink      TelemetrySink
	staleHook func()
}

// NewPushRouter 创建推送分发器
func NewPushRouter(sessions *SessionManager, orch *CommandOrchestrator, sink TelemetrySink) *PushRouter {
	return &PushRouter{
		sessions: sessions,
		orch:     orch,
		sink:     sink,
	}
}

// SetStaleTokenHook 注册解密失败回调。推送解不开通常意味着
// encryToken 已经换过,由桥接服务决定是否重新登录。
func (r *PushRouter) SetStaleTokenHook(h func()) {
	r.staleHook = h
}

// HandleMessage 处理一条推送消息
func (r *PushRouter) HandleMessage(topic string, payload []byte) {
	sess := r.sessions.Current()
	if sess == nil {
		log.Debug().Str("topic", topic).Msg("无会话，丢弃推送")
		return
	}

	decoded, err := protocol.DecryptPayload(strings.TrimSpace(string(payload)), protocol.ContentKey(sess))
	if err != nil {
		log.Warn().
			Err(err).
			Str("topic", topic).
			Msg("推送解密失败，丢弃")
		if r.staleHook != nil {
			r.staleHook()
		}
		return
	}

	eventType := int(numField(decoded, "eventType"))
	vin := strField(decoded, "vin")
	serial := strField(decoded, "requestSerial")
	body, _ := decoded["data"].(map[string]interface{})
	if body == nil {
		body = decoded
	}

	switch eventType {
	case eventRealtime:
		r.routeTelemetry(vin, serial, KindRealtime, body)
	case eventGPS:
		r.routeTelemetry(vin, serial, KindGPS, body)
	case eventCommand:
		r.routeCommandResult(vin, serial, body)
	default:
		log.Debug().
			Int("eventType", eventType).
			Str("vin", vin).
			Msg("未知推送事件类型")
	}
}

// routeTelemetry 分发实时/定位推送。带序列号的按序列号兑现,
// 不带的退回同车同类最旧的在途操作,都没有就按主动推送处理。
func (r *PushRouter) routeTelemetry(vin, serial string, kind Kind, body map[string]interface{}) {
	res := Result{Source: SourcePush, Payload: body}

	if serial != "" {
		if r.orch.table.resolve(serial, res) {
			return
		}
	} else if r.orch.table.resolveOldest(vin, kind, res) {
		return
	}

	// 主动推送:实时数据进缓存,再交给数据落地回调
	if kind == KindRealtime {
		r.orch.cache.Put(vin, body)
	}
	if r.sink != nil {
		r.sink(vin, kind, body, SourcePush)
	}

	log.Debug().
		Str("vin", vin).
		Str("kind", kind.String()).
		Msg("收到主动推送数据")
}

// routeCommandResult 分发指令回执。只有终态才兑现在途操作,
// 过程态一律忽略,也不算主动推送数据。
func (r *PushRouter) routeCommandResult(vin, serial string, body map[string]interface{}) {
	if commandOutcomeOf(body) == OutcomePending {
		log.Debug().
			Str("vin", vin).
			Msg("指令回执仍在过程态，忽略")
		return
	}

	res := Result{Source: SourcePush, Payload: body}
	resolved := false
	if serial != "" {
		resolved = r.orch.table.resolve(serial, res)
	} else {
		resolved = r.orch.table.resolveOldest(vin, KindCommand, res)
	}
	if !resolved {
		log.Debug().
			Str("vin", vin).
			Str("requestSerial", serial).
			Msg("指令回执无在途操作可兑现")
	}
}
