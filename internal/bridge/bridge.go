package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/vclink/vclink-bridge/internal/cloud"
	"github.com/vclink/vclink-bridge/internal/config"
	"github.com/vclink/vclink-bridge/internal/models"
	"github.com/vclink/vclink-bridge/internal/protocol"
	"github.com/vclink/vclink-bridge/internal/push"
)

// NATS 主题
const (
	SubjectVehicleList    = "vclink.vehicle.list"
	SubjectCommandRequest = "vclink.command.request"
	SubjectCommandResult  = "vclink.command.result"
	SubjectProtocolEvent  = "vclink.event.protocol"

	commandQueueGroup = "cloud-bridge"
)

// natsConn 是桥接服务用到的 NATS 连接子集
type natsConn interface {
	Publish(subject string, data []byte) error
	QueueSubscribe(subject, queue string, handler nats.MsgHandler) (*nats.Subscription, error)
}

// Bridge 云端桥接服务:维持云端会话和推送通道,周期性拉取遥测
// 发布到 NATS,并消费指令请求转发给云端
type Bridge struct {
	cfg          *config.Config
	nc           natsConn
	codec        *protocol.Codec
	sessions     *cloud.SessionManager
	orch         *cloud.CommandOrchestrator
	router       *cloud.PushRouter
	push         *push.Client
	pushClientID string

	// relogin 推送侧检测到令牌失效时的重新登录信号,容量 1
	relogin chan struct{}

	mu       sync.RWMutex
	vins     []string
	reported map[string]bool // 已上报过的不支持端点,避免每个周期重复发事件
}

// New 创建桥接服务
func New(cfg *config.Config, nc natsConn) (*Bridge, error) {
	if err := cfg.Cloud.Validate(); err != nil {
		return nil, err
	}

	device := protocol.DeviceIdentity{
		IMEI:       cfg.Cloud.Device.IMEI,
		MAC:        cfg.Cloud.Device.MAC,
		Model:      cfg.Cloud.Device.Model,
		SDKLevel:   cfg.Cloud.Device.SDKLevel,
		AppVersion: cfg.Cloud.Device.AppVersion,
	}
	codec, err := protocol.NewCodec(device, cfg.Cloud.Device.CountryCode, cfg.Cloud.Device.Language)
	if err != nil {
		return nil, fmt.Errorf("create codec: %w", err)
	}

	client, err := cloud.NewClient(cfg.Cloud.BaseURL, codec)
	if err != nil {
		return nil, fmt.Errorf("create cloud client: %w", err)
	}
	client.SetTimeout(cfg.Cloud.HTTPTimeout)

	sessions := cloud.NewSessionManager(client, codec, cfg.Cloud.Account, cfg.Cloud.Password)

	orch, err := cloud.NewOrchestrator(client, codec, sessions, cloud.OrchestratorConfig{
		PushWait:         cfg.Cloud.PushWait,
		PollInterval:     cfg.Cloud.PollInterval,
		PollAttempts:     cfg.Cloud.PollAttempts,
		RateLimitDelay:   cfg.Cloud.RateLimitInterval,
		RateLimitRetries: cfg.Cloud.RateLimitRetries,
		CacheSize:        cfg.Cloud.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("create orchestrator: %w", err)
	}

	b := &Bridge{
		cfg:          cfg,
		nc:           nc,
		codec:        codec,
		sessions:     sessions,
		orch:         orch,
		pushClientID: protocol.PushClientID(cfg.Cloud.Device.IMEI),
		relogin:      make(chan struct{}, 1),
		reported:     make(map[string]bool),
	}

	b.router = cloud.NewPushRouter(sessions, orch, b.publishTelemetry)
	b.router.SetStaleTokenHook(b.onStaleToken)
	sessions.SetHooks(b.onSessionUp, b.onSessionDown)

	return b, nil
}

// Run 启动桥接服务并阻塞到 ctx 取消
func (b *Bridge) Run(ctx context.Context) error {
	// 登录,带指数退避重试;账号密码错误直接失败
	if err := b.loginWithRetry(ctx); err != nil {
		return fmt.Errorf("initial login: %w", err)
	}

	// 拉取并发布车辆列表
	if err := b.syncVehicles(ctx); err != nil {
		log.Error().Err(err).Msg("同步车辆列表失败")
	}

	// 连接推送通道。连不上只降级为轮询,不算致命
	b.connectPush(ctx)

	// 订阅指令请求
	sub, err := b.nc.QueueSubscribe(SubjectCommandRequest, commandQueueGroup, b.handleCommandRequest)
	if err != nil {
		return fmt.Errorf("subscribe command requests: %w", err)
	}

	go b.updateLoop(ctx)
	go b.reloginLoop(ctx)

	log.Info().
		Int("vehicles", len(b.currentVINs())).
		Msg("云端桥接服务已启动")

	<-ctx.Done()

	sub.Unsubscribe()
	if b.push != nil {
		b.push.Close()
	}
	return ctx.Err()
}

// loginWithRetry 执行初次登录。网络类故障指数退避重试,
// 登录被拒(账号或密码错误)不重试
func (b *Bridge) loginWithRetry(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		err := b.sessions.Login(ctx)
		if err == nil {
			return nil
		}
		var authErr *protocol.AuthError
		if errors.As(err, &authErr) {
			return backoff.Permanent(err)
		}
		log.Warn().Err(err).Msg("登录失败，退避后重试")
		return err
	}, backoff.WithContext(policy, ctx))
}

// syncVehicles 拉取车辆列表,发布到 NATS 并记录 VIN 集合
func (b *Bridge) syncVehicles(ctx context.Context) error {
	vehicles, err := b.orch.ListVehicles(ctx)
	if err != nil {
		return err
	}

	infos := make([]models.VehicleInfo, 0, len(vehicles))
	vins := make([]string, 0, len(vehicles))
	for _, v := range vehicles {
		infos = append(infos, models.VehicleInfo{
			VIN:   v.VIN,
			Brand: v.Brand,
			Model: v.Model,
			Name:  v.Name,
		})
		vins = append(vins, v.VIN)
	}

	b.mu.Lock()
	b.vins = vins
	b.mu.Unlock()

	msg := models.VehicleListMessage{
		Vehicles:    infos,
		RetrievedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode vehicle list: %w", err)
	}
	if err := b.nc.Publish(SubjectVehicleList, data); err != nil {
		return fmt.Errorf("publish vehicle list: %w", err)
	}

	log.Info().Int("count", len(vins)).Msg("车辆列表已同步")
	return nil
}

// connectPush 查询推送 broker 并建立 MQTT 长连接
func (b *Bridge) connectPush(ctx context.Context) {
	info, err := b.orch.MessageBrokerAddress(ctx)
	if err != nil {
		log.Error().Err(err).Msg("查询推送 broker 失败，推送通道不可用")
		return
	}

	address := info.Address
	topic := info.Topic
	if b.cfg.Push.Address != "" {
		address = b.cfg.Push.Address
	}
	if b.cfg.Push.Topic != "" {
		topic = b.cfg.Push.Topic
	}

	b.push = push.NewClient(push.Config{
		Address:        address,
		Topic:          topic,
		ClientID:       b.pushClientID,
		ConnectTimeout: b.cfg.Push.ConnectTimeout,
		OnConnect: func() {
			b.publishEvent(models.EventLevelInfo, models.EventTypePushConnected, "", "",
				"Push channel connected", map[string]interface{}{"topic": topic})
		},
		OnLost: func(err error) {
			b.publishEvent(models.EventLevelWarning, models.EventTypePushLost, "", "",
				"Push channel lost: "+err.Error(), nil)
		},
	}, b.pushCredentials, b.router.HandleMessage)

	if err := b.push.Connect(); err != nil {
		log.Error().Err(err).Msg("推送通道连接失败，改用轮询兜底")
	}
}

// pushCredentials 为每次 MQTT 连接生成口令。口令内嵌时间戳,
// 必须读当前会话现算
func (b *Bridge) pushCredentials() (string, string, bool) {
	sess := b.sessions.Current()
	if sess == nil {
		return "", "", false
	}
	return sess.UserID, protocol.PushPassword(sess, b.pushClientID, time.Now()), true
}

// updateLoop 周期性拉取每辆车的实时状态和定位
func (b *Bridge) updateLoop(ctx context.Context) {
	ticker := time.NewTicker(b.cfg.Cloud.UpdateInterval)
	defer ticker.Stop()

	// 启动后立即跑一轮,不等第一个周期
	b.updateAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.updateAll(ctx)
		}
	}
}

// updateAll 串行遍历所有车辆。并发拉取容易触发厂商限流,
// 串行慢一点但稳
func (b *Bridge) updateAll(ctx context.Context) {
	for _, vin := range b.currentVINs() {
		if ctx.Err() != nil {
			return
		}
		b.updateVehicle(ctx, vin)
	}
}

// updateVehicle 拉取一辆车的实时状态和定位并发布
func (b *Bridge) updateVehicle(ctx context.Context, vin string) {
	if res, err := b.orch.GetRealtimeStatus(ctx, vin); err != nil {
		b.handleFetchError(vin, cloud.KindRealtime, err)
	} else {
		b.publishTelemetry(vin, cloud.KindRealtime, res.Payload, res.Source)
	}

	if res, err := b.orch.GetPosition(ctx, vin); err != nil {
		b.handleFetchError(vin, cloud.KindGPS, err)
	} else {
		b.publishTelemetry(vin, cloud.KindGPS, res.Payload, res.Source)
	}
}

// handleFetchError 处理单车单端点的拉取失败:失败只跳过本周期,
// 不中断整轮更新
func (b *Bridge) handleFetchError(vin string, kind cloud.Kind, err error) {
	var unsupported *protocol.EndpointNotSupportedError
	if errors.As(err, &unsupported) {
		key := vin + "/" + kind.String()
		b.mu.Lock()
		seen := b.reported[key]
		b.reported[key] = true
		b.mu.Unlock()

		// 编排器已记住该端点,这里只在第一次上报事件
		if !seen {
			log.Warn().
				Str("vin", vin).
				Str("kind", kind.String()).
				Msg("云端声明端点不支持，停止拉取")
			b.publishEvent(models.EventLevelWarning, models.EventTypeUnsupported, "", vin,
				fmt.Sprintf("Endpoint %s not supported, fetches suspended", kind.String()), nil)
		}
		return
	}

	var limited *protocol.RateLimitedError
	if errors.As(err, &limited) {
		log.Warn().
			Str("vin", vin).
			Str("kind", kind.String()).
			Msg("触发限流，跳过本周期")
		b.publishEvent(models.EventLevelWarning, models.EventTypeRateLimited, protocol.CodeRateLimited, vin,
			"Telemetry fetch rate limited", nil)
		return
	}

	log.Error().
		Err(err).
		Str("vin", vin).
		Str("kind", kind.String()).
		Msg("拉取遥测失败")
}

// publishTelemetry 发布一条遥测。既接收轮询结果,也作为推送
// 分发器的落点
func (b *Bridge) publishTelemetry(vin string, kind cloud.Kind, payload map[string]interface{}, source string) {
	var kindName string
	switch kind {
	case cloud.KindRealtime:
		kindName = models.TelemetryKindRealtime
	case cloud.KindGPS:
		kindName = models.TelemetryKindGPS
	default:
		return
	}

	msg := models.TelemetryUpdate{
		VIN:        vin,
		Kind:       kindName,
		Source:     source,
		Payload:    payload,
		CapturedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("vin", vin).Msg("序列化遥测失败")
		return
	}

	subject := fmt.Sprintf("vclink.telemetry.%s.%s", kindName, vin)
	if err := b.nc.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("发布遥测失败")
		return
	}

	log.Debug().
		Str("vin", vin).
		Str("kind", kindName).
		Str("source", source).
		Msg("遥测已发布")
}

// handleCommandRequest 消费一条指令请求并执行
func (b *Bridge) handleCommandRequest(msg *nats.Msg) {
	var req models.CommandRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		log.Error().Err(err).Msg("解析指令请求失败")
		return
	}
	if req.ID == "" || req.VIN == "" {
		log.Error().Msg("指令请求缺少 id 或 vin")
		return
	}

	log.Info().
		Str("id", req.ID).
		Str("vin", req.VIN).
		Str("action", req.Action).
		Msg("收到远程指令请求")

	ctx, cancel := context.WithTimeout(context.Background(), b.commandTimeout())
	defer cancel()

	result := models.CommandResultMessage{
		ID:  req.ID,
		VIN: req.VIN,
	}

	res, err := b.orch.SendCommand(ctx, req.VIN, req.Action, req.Params, req.ControlPIN)
	if err != nil {
		// 控制密码错误等原样带回,由调用方决定怎么处理
		result.Error = err.Error()
	} else {
		result.Success = res.Success
		result.Payload = res.Payload
		if !res.Success {
			result.Error = res.Message
		}
	}
	result.CompletedAt = time.Now().UTC()

	data, err := json.Marshal(result)
	if err != nil {
		log.Error().Err(err).Str("id", req.ID).Msg("序列化指令结果失败")
		return
	}
	if err := b.nc.Publish(SubjectCommandResult, data); err != nil {
		log.Error().Err(err).Str("id", req.ID).Msg("发布指令结果失败")
		return
	}

	if result.Success {
		log.Info().
			Str("id", req.ID).
			Str("vin", req.VIN).
			Str("action", req.Action).
			Msg("指令执行成功")
	} else {
		log.Warn().
			Str("id", req.ID).
			Str("vin", req.VIN).
			Str("action", req.Action).
			Str("error", result.Error).
			Msg("指令执行失败")
	}
}

// commandTimeout 单条指令的总预算:推送等待加轮询全程,再留余量
func (b *Bridge) commandTimeout() time.Duration {
	c := b.cfg.Cloud
	budget := c.PushWait + time.Duration(c.PollAttempts)*c.PollInterval
	return budget + 30*time.Second
}

// reloginLoop 消费推送侧的重新登录信号
func (b *Bridge) reloginLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.relogin:
			stale := b.sessions.Current()
			if err := b.sessions.Recover(ctx, stale); err != nil {
				log.Error().Err(err).Msg("会话恢复失败")
				continue
			}
			b.publishEvent(models.EventLevelInfo, models.EventTypeSessionRecovered, "", "",
				"Cloud session recovered after stale push token", nil)
		}
	}
}

// onStaleToken 推送解密失败回调:上报丢弃事件并触发重新登录
func (b *Bridge) onStaleToken() {
	b.publishEvent(models.EventLevelWarning, models.EventTypePushDropped, "", "",
		"Push message dropped, session tokens may have rotated", nil)

	select {
	case b.relogin <- struct{}{}:
	default:
	}
}

// onSessionUp 会话建立回调
func (b *Bridge) onSessionUp(sess *protocol.Session) {
	b.publishEvent(models.EventLevelInfo, models.EventTypeSessionLogin, "", "",
		"Cloud session established", map[string]interface{}{"userId": sess.UserID})
}

// onSessionDown 会话失效回调
func (b *Bridge) onSessionDown() {
	b.publishEvent(models.EventLevelWarning, models.EventTypeSessionExpired, "", "",
		"Cloud session expired", nil)
}

// publishEvent 发布一条协议事件
func (b *Bridge) publishEvent(level models.EventLevel, typ models.EventType, code, vin, description string, details map[string]interface{}) {
	msg := models.EventMessage{
		Level:       string(level),
		Type:        string(typ),
		Code:        code,
		VIN:         vin,
		Description: description,
		Details:     details,
		At:          time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := b.nc.Publish(SubjectProtocolEvent, data); err != nil {
		log.Error().Err(err).Str("type", string(typ)).Msg("发布协议事件失败")
	}
}

func (b *Bridge) currentVINs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	vins := make([]string, len(b.vins))
	copy(vins, b.vins)
	return vins
}
