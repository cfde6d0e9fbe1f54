package push

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// CredentialsFunc 在每次连接前生成账号口令。口令里带时间戳,
// 断线重连必须重新生成,不能复用旧值。
type CredentialsFunc func() (username, password string, ok bool)

// MessageHandler 接收 broker 下发的原始消息
type MessageHandler func(topic string, payload []byte)

// Config 推送通道配置
type Config struct {
	Address        string // broker 地址,来自 message/broker 查询
	Topic          string // 每个账号一个订阅主题
	ClientID       string
	ConnectTimeout time.Duration

	// 连接状态回调,由上层决定如何上报
	OnConnect func()
	OnLost    func(error)
}

// Client 维持到厂商推送 broker 的 MQTT 长连接
type Client struct {
	mqtt           mqtt.Client
	topic          string
	connectTimeout time.Duration
}

// NewClient 创建推送客户端,连接和重连都走 paho 的自动重试
func NewClient(cfg Config, creds CredentialsFunc, onMessage MessageHandler) *Client {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	c := &Client{
		topic:          cfg.Topic,
		connectTimeout: cfg.ConnectTimeout,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Address)
	opts.SetClientID(cfg.ClientID)

	// 每次连接重新生成带时间戳的口令
	opts.SetCredentialsProvider(func() (string, string) {
		username, password, ok := creds()
		if !ok {
			log.Warn().Msg("No session available for push credentials")
			return "", ""
		}
		return username, password
	})

	if strings.HasPrefix(cfg.Address, "ssl://") {
		// 厂商 broker 的证书链不完整,无法走系统信任库校验
		opts.SetTLSConfig(&tls.Config{
			InsecureSkipVerify: true,
		})
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetKeepAlive(30 * time.Second)

	// 订阅放在连接回调里,重连后自动恢复
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Info().
			Str("topic", c.topic).
			Msg("Push broker connected")

		token := client.Subscribe(c.topic, 1, func(client mqtt.Client, msg mqtt.Message) {
			onMessage(msg.Topic(), msg.Payload())
		})
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			log.Error().
				Err(token.Error()).
				Str("topic", c.topic).
				Msg("Failed to subscribe push topic")
		}

		if cfg.OnConnect != nil {
			cfg.OnConnect()
		}
	})

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Error().
			Err(err).
			Msg("Push broker connection lost")

		if cfg.OnLost != nil {
			cfg.OnLost(err)
		}
	})

	c.mqtt = mqtt.NewClient(opts)
	return c
}

// Connect 发起连接。开启了自动重试,首连超时只记日志,
// 后台会继续重连
func (c *Client) Connect() error {
	token := c.mqtt.Connect()
	if !token.WaitTimeout(c.connectTimeout) {
		log.Warn().Msg("Push broker connect still in progress")
		return nil
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect push broker: %w", err)
	}
	return nil
}

// IsConnected 当前是否在线
func (c *Client) IsConnected() bool {
	return c.mqtt.IsConnected()
}

// Close 断开推送连接
func (c *Client) Close() {
	if c.mqtt.IsConnected() {
		c.mqtt.Disconnect(250)
	}
	log.Info().Msg("Push broker client closed")
}
