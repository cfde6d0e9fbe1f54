package cloud

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vclink/vclink-bridge/internal/protocol"
)

// DefaultBaseURL 厂商云端固定入口
const DefaultBaseURL = "https://tapi.vclink-motors.com"

// 每个操作对应一个固定路径
const (
	PathLogin          = "/app/login"
	PathVehicleList    = "/app/vehicle/list"
	PathStatusTrigger  = "/app/vehicle/status/trigger"
	PathStatusQuery    = "/app/vehicle/status/query"
	PathGPSTrigger     = "/app/vehicle/gps/trigger"
	PathGPSQuery       = "/app/vehicle/gps/query"
	PathControlTrigger = "/app/vehicle/control/trigger"
	PathControlQuery   = "/app/vehicle/control/query"
	PathMessageBroker  = "/app/message/broker"
)

// 服务端校验 UA 和 content-type,必须和官方客户端一致
const (
	userAgent   = "okhttp/4.9.1"
	contentType = "application/json; charset=utf-8"
)

// Client 云端 HTTP 通道。服务端按 cookie 维持会话亲和,
// 所有请求共用一个 cookie jar。
type Client struct {
	httpClient *http.Client
	baseURL    string
	codec      *protocol.Codec
}

// NewClient 创建云端 HTTP 客户端
func NewClient(baseURL string, codec *protocol.Codec) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		codec:   codec,
	}, nil
}

// SetTimeout 覆盖默认的请求超时
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.httpClient.Timeout = d
	}
}

// PostEnvelope 发送一条加密信封并解出外层响应
func (c *Client) PostEnvelope(ctx context.Context, path, envelopeText string) (*protocol.Response, error) {
	body, err := protocol.WrapRequest(envelopeText)
	if err != nil {
		return nil, fmt.Errorf("wrap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", path, err)
	}
	// 厂商服务端业务错误也返回 200,非 200 一律视为传输层故障
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cloud endpoint %s: status %s", path, resp.Status)
	}

	decoded, err := c.codec.DecodeResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("decode response %s: %w", path, err)
	}

	log.Debug().
		Str("path", path).
		Str("code", decoded.Code).
		Msg("云端调用完成")

	return decoded, nil
}
