package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// csrfTokenBytes はCSRFトークンのバイト長（256ビット）。
const csrfTokenBytes = 32

// CSRFRegistry はCSRFトークンの発行・検証のインターフェース。
type CSRFRegistry interface {
	// Issue は識別子に紐づくトークンを発行する。既存トークンは上書きされる。
	Issue(identity string) (string, error)
	// Verify はトークンを検証する。成功時はトークンを消費する（ワンタイム）。
	Verify(identity, token string) bool
	// Expire は識別子に紐づくトークンを破棄する。
	Expire(identity string)
}

// csrfEntry は発行済みトークンと発行時刻を保持する。
type csrfEntry struct {
	token    string
	issuedAt time.Time
}

// MemoryCSRFRegistry はプロセス内メモリのCSRFトークンレジストリ。
// 識別子（認証済みユーザーID）ごとに1トークンのみ保持し、
// TTL経過または検証成功で無効化する。
// プロセス再起動でトークンは失われるが、再発行で回復できる。
type MemoryCSRFRegistry struct {
	mu      sync.Mutex
	entries map[string]csrfEntry
	ttl     time.Duration
	stopCh  chan struct{}

	// now はテストから時刻を注入するためのフック。
	now func() time.Time
}

// NewMemoryCSRFRegistry はMemoryCSRFRegistryを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewMemoryCSRFRegistry(ttl time.Duration) *MemoryCSRFRegistry {
	r := &MemoryCSRFRegistry{
		entries: make(map[string]csrfEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}

	go r.cleanupLoop()

	return r
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (r *MemoryCSRFRegistry) Stop() {
	close(r.stopCh)
}

// Issue は識別子に紐づく暗号的に安全なトークンを発行する。
// 同一識別子への再発行は既存トークンを上書きする。
func (r *MemoryCSRFRegistry) Issue(identity string) (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate CSRF token: %w", err)
	}
	token := hex.EncodeToString(b)

	r.mu.Lock()
	r.entries[identity] = csrfEntry{token: token, issuedAt: r.now()}
	r.mu.Unlock()

	return token, nil
}

// Verify はトークンを検証する。
// 未発行・期限切れ・不一致の場合はfalseを返す。
// 比較は定数時間で行い、成功時はエントリを削除する（リプレイ防止）。
func (r *MemoryCSRFRegistry) Verify(identity, token string) bool {
	if token == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[identity]
	if !ok {
		return false
	}
	if r.now().Sub(entry.issuedAt) > r.ttl {
		delete(r.entries, identity)
		return false
	}
	if subtle.ConstantTimeCompare([]byte(entry.token), []byte(token)) != 1 {
		return false
	}

	delete(r.entries, identity)
	return true
}

// Expire は識別子に紐づくトークンを破棄する。
func (r *MemoryCSRFRegistry) Expire(identity string) {
	r.mu.Lock()
	delete(r.entries, identity)
	r.mu.Unlock()
}

// cleanupLoop は期限切れエントリを定期的に削除する。
func (r *MemoryCSRFRegistry) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.mu.Lock()
			now := r.now()
			for identity, entry := range r.entries {
				if now.Sub(entry.issuedAt) > r.ttl {
					delete(r.entries, identity)
				}
			}
			r.mu.Unlock()
		}
	}
}

// compile-time interface check
var _ CSRFRegistry = (*MemoryCSRFRegistry)(nil)
