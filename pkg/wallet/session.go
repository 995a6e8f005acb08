package wallet

import (
	"context"
	"crypto/ed25519"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/memo-server/pkg/solana"
)

// Session is the connection state between a user and an underlying wallet.
// While disconnected it reports no identity and refuses to sign.
type Session struct {
	log    *logrus.Entry
	wallet Wallet

	mu        sync.RWMutex
	connected bool
}

func NewSession(wallet Wallet) *Session {
	return &Session{
		log:    logrus.StandardLogger().WithField("type", "wallet/session"),
		wallet: wallet,
	}
}

// Connect activates the underlying wallet's identity
func (s *Session) Connect() (ed25519.PublicKey, error) {
	pub, ok := s.wallet.ActiveIdentity()
	if !ok {
		return nil, ErrNotConnected
	}
	if err := ValidateIdentity(pub); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()

	s.log.WithField("identity", base58.Encode(pub)).Debug("wallet connected")
	return pub, nil
}

func (s *Session) Disconnect() {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()

	s.log.Debug("wallet disconnected")
}

func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// ActiveIdentity implements Wallet.ActiveIdentity
func (s *Session) ActiveIdentity() (ed25519.PublicKey, bool) {
	if !s.Connected() {
		return nil, false
	}
	return s.wallet.ActiveIdentity()
}

// SignAndSend implements Wallet.SignAndSend
func (s *Session) SignAndSend(ctx context.Context, ix solana.Instruction) (solana.Signature, error) {
	if !s.Connected() {
		return solana.Signature{}, ErrNotConnected
	}
	return s.wallet.SignAndSend(ctx, ix)
}
