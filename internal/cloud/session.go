package cloud

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/vclink/vclink-bridge/internal/protocol"
)

// SessionManager 持有当前登录会话。会话对象不可变,
// 重新登录时整体替换指针,调用方每次用前重新读取。
type SessionManager struct {
	client   *Client
	codec    *protocol.Codec
	username string
	password string

	// loginMu 串行化登录,避免并发恢复触发多次登录
	loginMu sync.Mutex

	mu      sync.Mutex
	session *protocol.Session

	onConnected    func(*protocol.Session)
	onDisconnected func()
}

// NewSessionManager 创建会话管理器
func NewSessionManager(client *Client, codec *protocol.Codec, username, password string) *SessionManager {
	return &SessionManager{
		client:   client,
		codec:    codec,
		username: username,
		password: password,
	}
}

// SetHooks 注册会话建立/失效回调
func (m *SessionManager) SetHooks(onConnected func(*protocol.Session), onDisconnected func()) {
	m.onConnected = onConnected
	m.onDisconnected = onDisconnected
}

// Current 返回当前会话,未登录时为 nil
func (m *SessionManager) Current() *protocol.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Authenticated 是否持有有效会话
func (m *SessionManager) Authenticated() bool {
	return m.Current() != nil
}

// Login 执行登录并替换当前会话
func (m *SessionManager) Login(ctx context.Context) error {
	m.loginMu.Lock()
	defer m.loginMu.Unlock()
	return m.login(ctx)
}

// Recover 处理会话过期:清除过期会话并重新登录一次。
// 如果别的调用方已经换上新会话,直接返回成功。
func (m *SessionManager) Recover(ctx context.Context, stale *protocol.Session) error {
	m.loginMu.Lock()
	defer m.loginMu.Unlock()

	m.mu.Lock()
	current := m.session
	if current != nil && current != stale {
		// 其他调用方已恢复
		m.mu.Unlock()
		return nil
	}
	m.session = nil
	m.mu.Unlock()

	log.Warn().Msg("会话已失效，重新登录")
	if m.onDisconnected != nil {
		m.onDisconnected()
	}

	return m.login(ctx)
}

// login 完成一次登录流程,调用时必须持有 loginMu
func (m *SessionManager) login(ctx context.Context) error {
	env, key, err := m.codec.BuildLoginEnvelope(m.username, m.password)
	if err != nil {
		return fmt.Errorf("build login envelope: %w", err)
	}

	resp, err := m.client.PostEnvelope(ctx, PathLogin, env)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	if !resp.Success() {
		return &protocol.AuthError{Code: resp.Code, Message: resp.Message}
	}

	// 用登录内容密钥解出令牌三元组
	payload, err := protocol.DecryptPayload(resp.Data, key)
	if err != nil {
		return fmt.Errorf("decrypt login tokens: %w", err)
	}
	sess := &protocol.Session{
		UserID:     strField(payload, "userId"),
		SignToken:  strField(payload, "signToken"),
		EncryToken: strField(payload, "encryToken"),
	}
	if sess.UserID == "" || sess.SignToken == "" || sess.EncryToken == "" {
		return fmt.Errorf("login response missing session tokens")
	}

	m.mu.Lock()
	m.session = sess
	m.mu.Unlock()

	log.Info().
		Str("userId", sess.UserID).
		Msg("云端会话已建立")

	if m.onConnected != nil {
		m.onConnected(sess)
	}
	return nil
}
