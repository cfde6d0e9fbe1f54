package cloud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/vclink/vclink-bridge/internal/protocol"
)

// 触发类操作的默认节奏
const (
	DefaultPushWait         = 5 * time.Second
	DefaultPollInterval     = 2 * time.Second
	DefaultPollAttempts     = 12
	DefaultRateLimitDelay   = 5 * time.Second
	DefaultRateLimitRetries = 3
	DefaultCacheSize        = 128
)

// OrchestratorConfig 触发/推送/轮询的节奏参数
type OrchestratorConfig struct {
	PushWait         time.Duration
	PollInterval     time.Duration
	PollAttempts     int
	RateLimitDelay   time.Duration
	RateLimitRetries int
	CacheSize        int
}

func (c *OrchestratorConfig) applyDefaults() {
	if c.PushWait <= 0 {
		c.PushWait = DefaultPushWait
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.PollAttempts <= 0 {
		c.PollAttempts = DefaultPollAttempts
	}
	if c.RateLimitDelay <= 0 {
		c.RateLimitDelay = DefaultRateLimitDelay
	}
	if c.RateLimitRetries <= 0 {
		c.RateLimitRetries = DefaultRateLimitRetries
	}
	if c.CacheSize <= 0 {
		c.CacheSize = DefaultCacheSize
	}
}

// Vehicle 车辆列表里的一辆车
type Vehicle struct {
	VIN   string
	Brand string
	Model string
	Name  string
	Raw   map[string]interface{}
}

// CommandResult 远程指令的结构化结果
type CommandResult struct {
	Success bool
	Source  string
	Message string
	Payload map[string]interface{}
}

// BrokerInfo 推送 broker 的接入信息
type BrokerInfo struct {
	Address string
	Topic   string
}

// CommandOrchestrator 把触发/推送/轮询三段式传输收敛成单次调用。
// 每个操作先发触发请求拿 requestSerial,登记到关联表后等推送,
// 超时再走轮询兜底。
type CommandOrchestrator struct {
	client   *Client
	codec    *protocol.Codec
	sessions *SessionManager
	cfg      OrchestratorConfig

	table       *correlationTable
	cache       *RealtimeCache
	unsupported *UnsupportedEndpoints
}

// NewOrchestrator 创建指令编排器
func NewOrchestrator(client *Client, codec *protocol.Codec, sessions *SessionManager, cfg OrchestratorConfig) (*CommandOrchestrator, error) {
	cfg.applyDefaults()

	cache, err := NewRealtimeCache(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create realtime cache: %w", err)
	}
	return &CommandOrchestrator{
		client:      client,
		codec:       codec,
		sessions:    sessions,
		cfg:         cfg,
		table:       newCorrelationTable(),
		cache:       cache,
		unsupported: NewUnsupportedEndpoints(),
	}, nil
}

// Cache 暴露实时缓存,桥接服务用它回答降级查询
func (o *CommandOrchestrator) Cache() *RealtimeCache {
	return o.cache
}

// errRateLimited 内部重试信号,对外转成 RateLimitedError
var errRateLimited = errors.New("cloud rate limited")

type exchangeResult struct {
	resp *protocol.Response
	sess *protocol.Session
}

// post 发出一次带会话签名的请求。未登录直接失败,
// 登录之外的所有调用都要求持有会话。
func (o *CommandOrchestrator) post(ctx context.Context, path string, inner map[string]string) (*protocol.Response, *protocol.Session, error) {
	sess := o.sessions.Current()
	if sess == nil {
		return nil, nil, protocol.ErrNotAuthenticated
	}
	env, _, err := o.codec.BuildSessionEnvelope(sess, inner)
	if err != nil {
		return nil, nil, fmt.Errorf("build envelope for %s: %w", path, err)
	}
	resp, err := o.client.PostEnvelope(ctx, path, env)
	if err != nil {
		return nil, nil, err
	}
	return resp, sess, nil
}

// exchange 发送请求并处理会话过期:恢复会话后重发一次,
// 第二次仍过期则放弃
func (o *CommandOrchestrator) exchange(ctx context.Context, path string, inner map[string]string) (*protocol.Response, *protocol.Session, error) {
	resp, sess, err := o.post(ctx, path, inner)
	if err != nil {
		return nil, nil, err
	}
	if !protocol.IsSessionExpiredCode(resp.Code) {
		return resp, sess, nil
	}

	log.Warn().
		Str("path", path).
		Str("code", resp.Code).
		Msg("会话过期，尝试恢复")
	if err := o.sessions.Recover(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("session recovery: %w", err)
	}

	resp, sess, err = o.post(ctx, path, inner)
	if err != nil {
		return nil, nil, err
	}
	if protocol.IsSessionExpiredCode(resp.Code) {
		return nil, nil, &protocol.SessionExpiredError{Code: resp.Code}
	}
	return resp, sess, nil
}

// sessionCall 在 exchange 外再套限流重试:遇到 1047 按固定间隔
// 重试,次数用尽后返回 RateLimitedError
func (o *CommandOrchestrator) sessionCall(ctx context.Context, path string, inner map[string]string) (*protocol.Response, *protocol.Session, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(o.cfg.RateLimitDelay),
			uint64(o.cfg.RateLimitRetries),
		),
		ctx,
	)
	res, err := backoff.RetryWithData(func() (exchangeResult, error) {
		resp, sess, err := o.exchange(ctx, path, inner)
		if err != nil {
			return exchangeResult{}, backoff.Permanent(err)
		}
		if resp.Code == protocol.CodeRateLimited {
			log.Warn().
				Str("path", path).
				Msg("触发限流，退避后重试")
			return exchangeResult{}, errRateLimited
		}
		return exchangeResult{resp: resp, sess: sess}, nil
	}, policy)
	if err != nil {
		if errors.Is(err, errRateLimited) {
			return nil, nil, &protocol.RateLimitedError{Attempts: o.cfg.RateLimitRetries + 1}
		}
		return nil, nil, err
	}
	return res.resp, res.sess, nil
}

// classify 把终态非成功码转成类型化错误
func classify(resp *protocol.Response) error {
	switch {
	case resp.Success():
		return nil
	case protocol.IsControlPasswordCode(resp.Code):
		return &protocol.ControlPasswordError{Code: resp.Code, Message: resp.Message}
	default:
		return &protocol.APIError{Code: resp.Code, Message: resp.Message}
	}
}

// ListVehicles 拉取账号名下的车辆列表
func (o *CommandOrchestrator) ListVehicles(ctx context.Context) ([]Vehicle, error) {
	resp, sess, err := o.sessionCall(ctx, PathVehicleList, map[string]string{})
	if err != nil {
		return nil, err
	}
	if err := classify(resp); err != nil {
		return nil, err
	}
	payload, err := protocol.DecryptPayload(resp.Data, protocol.ContentKey(sess))
	if err != nil {
		return nil, err
	}
	return parseVehicleList(payload), nil
}

func parseVehicleList(payload map[string]interface{}) []Vehicle {
	raw, _ := payload["vehicleList"].([]interface{})
	vehicles := make([]Vehicle, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		v := Vehicle{
			VIN:   strField(m, "vin"),
			Brand: strField(m, "brand"),
			Model: strField(m, "model"),
			Name:  strField(m, "vehicleName"),
			Raw:   m,
		}
		if v.VIN == "" {
			continue
		}
		if v.Name == "" {
			v.Name = strField(m, "name")
		}
		vehicles = append(vehicles, v)
	}
	return vehicles
}

// GetRealtimeStatus 获取一辆车的实时状态。端点已标记不支持时
// 退回缓存里的最近数据
func (o *CommandOrchestrator) GetRealtimeStatus(ctx context.Context, vin string) (*Result, error) {
	if o.unsupported.Has(vin, KindRealtime) {
		if cached, ok := o.cache.Get(vin); ok {
			return &Result{Source: SourceCache, Payload: cached}, nil
		}
		return nil, &protocol.EndpointNotSupportedError{VIN: vin, Endpoint: KindRealtime.String()}
	}

	res, err := o.runTrigger(ctx, triggerSpec{
		vin:         vin,
		kind:        KindRealtime,
		triggerPath: PathStatusTrigger,
		queryPath:   PathStatusQuery,
		inner:       map[string]string{"vin": vin},
		ready:       realtimeReady,
	})
	if err != nil {
		return nil, err
	}
	o.cache.Put(vin, res.Payload)
	return res, nil
}

// GetPosition 获取一辆车的定位。端点不支持时从实时缓存
// 合成降级定位
func (o *CommandOrchestrator) GetPosition(ctx context.Context, vin string) (*Result, error) {
	if o.unsupported.Has(vin, KindGPS) {
		if res := o.positionFromCache(vin); res != nil {
			return res, nil
		}
		return nil, &protocol.EndpointNotSupportedError{VIN: vin, Endpoint: KindGPS.String()}
	}

	return o.runTrigger(ctx, triggerSpec{
		vin:         vin,
		kind:        KindGPS,
		triggerPath: PathGPSTrigger,
		queryPath:   PathGPSQuery,
		inner:       map[string]string{"vin": vin},
		ready:       gpsReady,
	})
}

// positionFromCache 用实时数据里的经纬度合成降级定位
func (o *CommandOrchestrator) positionFromCache(vin string) *Result {
	cached, ok := o.cache.Get(vin)
	if !ok {
		return nil
	}
	lat := numField(cached, "latitude")
	lon := numField(cached, "longitude")
	if lat == 0 && lon == 0 {
		return nil
	}
	return &Result{
		Source: SourceCache,
		Payload: map[string]interface{}{
			"latitude":  lat,
			"longitude": lon,
			"time":      numField(cached, "time"),
		},
	}
}

// SendCommand 下发远程指令并等待终态回执。控制密码错误类
// 的码不重试,原样上抛
func (o *CommandOrchestrator) SendCommand(ctx context.Context, vin, action string, params map[string]string, controlPIN string) (*CommandResult, error) {
	if o.unsupported.Has(vin, KindCommand) {
		return nil, &protocol.EndpointNotSupportedError{VIN: vin, Endpoint: KindCommand.String()}
	}

	inner := make(map[string]string, len(params)+3)
	for k, v := range params {
		inner[k] = v
	}
	inner["vin"] = vin
	inner["operationType"] = action
	if controlPIN != "" {
		inner["controlPassword"] = protocol.MD5Hex(controlPIN)
	}

	res, err := o.runTrigger(ctx, triggerSpec{
		vin:         vin,
		kind:        KindCommand,
		triggerPath: PathControlTrigger,
		queryPath:   PathControlQuery,
		inner:       inner,
		ready:       commandReady,
	})
	if err != nil {
		return nil, err
	}

	outcome := commandOutcomeOf(res.Payload)
	result := &CommandResult{
		Success: outcome == OutcomeSuccess,
		Source:  res.Source,
		Payload: res.Payload,
	}
	if !result.Success {
		result.Message = strField(res.Payload, "message")
		if result.Message == "" {
			result.Message = "command rejected by vehicle"
		}
	}
	return result, nil
}

// MessageBrokerAddress 查询推送 broker 的接入地址和订阅主题
func (o *CommandOrchestrator) MessageBrokerAddress(ctx context.Context) (*BrokerInfo, error) {
	resp, sess, err := o.sessionCall(ctx, PathMessageBroker, map[string]string{})
	if err != nil {
		return nil, err
	}
	if err := classify(resp); err != nil {
		return nil, err
	}
	payload, err := protocol.DecryptPayload(resp.Data, protocol.ContentKey(sess))
	if err != nil {
		return nil, err
	}
	info := &BrokerInfo{
		Address: strField(payload, "address"),
		Topic:   strField(payload, "topic"),
	}
	if info.Address == "" {
		return nil, fmt.Errorf("broker lookup returned no address")
	}
	return info, nil
}

// triggerSpec 一类触发操作的路径和就绪判定
type triggerSpec struct {
	vin         string
	kind        Kind
	triggerPath string
	queryPath   string
	inner       map[string]string
	ready       func(map[string]interface{}) bool
}

// runTrigger 执行触发、等推送、轮询兜底的完整流程
func (o *CommandOrchestrator) runTrigger(ctx context.Context, spec triggerSpec) (*Result, error) {
	resp, sess, err := o.sessionCall(ctx, spec.triggerPath, spec.inner)
	if err != nil {
		return nil, err
	}
	if resp.Code == protocol.CodeNotSupported {
		// 进程内记住,后续调用不再打这个端点
		o.unsupported.Mark(spec.vin, spec.kind)
		log.Info().
			Str("vin", spec.vin).
			Str("kind", spec.kind.String()).
			Msg("端点不受支持，已记录")
		return nil, &protocol.EndpointNotSupportedError{VIN: spec.vin, Endpoint: spec.kind.String()}
	}
	if err := classify(resp); err != nil {
		return nil, err
	}

	payload, err := protocol.DecryptPayload(resp.Data, protocol.ContentKey(sess))
	if err != nil {
		return nil, err
	}
	serial := strField(payload, "requestSerial")
	if serial == "" {
		return nil, protocol.ErrNoCorrelationID
	}

	// 登记关联表,让推送回调能按序列号兑现
	pending, err := o.table.add(serial, spec.vin, spec.kind)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("vin", spec.vin).
		Str("kind", spec.kind.String()).
		Str("requestSerial", serial).
		Msg("触发成功，等待推送")

	timer := time.NewTimer(o.cfg.PushWait)
	defer timer.Stop()
	select {
	case res := <-pending.ch:
		return &res, nil
	case <-ctx.Done():
		o.table.remove(serial)
		return nil, ctx.Err()
	case <-timer.C:
		// 推送超时,撤销登记转入轮询
		o.table.remove(serial)
	}

	return o.poll(ctx, spec, serial)
}

// poll 按固定间隔轮询查询端点,直到数据就绪或次数用尽
func (o *CommandOrchestrator) poll(ctx context.Context, spec triggerSpec, serial string) (*Result, error) {
	inner := map[string]string{
		"vin":           spec.vin,
		"requestSerial": serial,
	}
	for attempt := 1; attempt <= o.cfg.PollAttempts; attempt++ {
		resp, sess, err := o.sessionCall(ctx, spec.queryPath, inner)
		if err != nil {
			return nil, err
		}
		if err := classify(resp); err != nil {
			return nil, err
		}

		payload, err := protocol.DecryptPayload(resp.Data, protocol.ContentKey(sess))
		if err != nil {
			// 载荷解不开可能是密钥刚换过,本次作废继续轮询
			log.Debug().
				Err(err).
				Str("vin", spec.vin).
				Int("attempt", attempt).
				Msg("轮询载荷解密失败")
		} else if spec.ready(payload) {
			return &Result{Source: SourceHTTP, Payload: payload}, nil
		}

		if attempt < o.cfg.PollAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(o.cfg.PollInterval):
			}
		}
	}

	log.Warn().
		Str("vin", spec.vin).
		Str("kind", spec.kind.String()).
		Msg("轮询超时，放弃本次操作")
	return nil, protocol.ErrPollTimeout
}
