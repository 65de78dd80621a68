/*
 * Copyright (C) 2022-2025. Gardel <sunxinao@hotmail.com> and contributors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package service

import (
	"context"
	"errors"
	"github.com/rs/zerolog/log"
	"sync"
	"sync/atomic"
	"time"
	"watchme-go/model"
	"watchme-go/storage"
	"watchme-go/util"
)

var ErrAlreadyStarted = errors.New("session manager already started")

type SessionConfig struct {
	Timeout       time.Duration `ini:"timeout"`
	CheckInterval time.Duration `ini:"check_interval"`
}

// SessionService owns the authenticated state of the application.
//
// The session is the pair auth_token / last_activity in the secure store; the
// in-memory flag is re-derived from it by every CheckSession. Every store
// access of CheckSession, Login and Logout runs under one lock, and the two
// keys are always written or removed together.
type SessionService interface {
	CheckSession(ctx context.Context) bool
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
	IsAuthenticated() bool
	// Subscribe returns a channel carrying the current state, then the state
	// after every transition or login. Only the latest value is buffered.
	Subscribe() (<-chan bool, func())
	// Start runs one check synchronously, then one per check interval until
	// Stop or ctx is done. Either ends the loop and allows a new Start.
	Start(ctx context.Context) error
	Stop()
	Timeout() time.Duration
}

type sessionManager struct {
	store         storage.SecureStore
	verifier      CredentialVerifier
	timeout       time.Duration
	checkInterval time.Duration
	now           func() time.Time
	newToken      func() string

	mu            sync.Mutex
	authenticated atomic.Bool

	subMu       sync.Mutex
	subscribers map[uint64]chan bool
	nextSubID   uint64

	lifeMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSessionService(store storage.SecureStore, verifier CredentialVerifier, cfg SessionConfig) SessionService {
	return newSessionManager(store, verifier, cfg)
}

func newSessionManager(store storage.SecureStore, verifier CredentialVerifier, cfg SessionConfig) *sessionManager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = model.DefaultSessionTimeout
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = model.DefaultCheckInterval
	}
	return &sessionManager{
		store:         store,
		verifier:      verifier,
		timeout:       cfg.Timeout,
		checkInterval: cfg.CheckInterval,
		now:           time.Now,
		newToken:      util.RandomUUID,
		subscribers:   make(map[uint64]chan bool),
	}
}

func (s *sessionManager) Timeout() time.Duration {
	return s.timeout
}

func (s *sessionManager) IsAuthenticated() bool {
	return s.authenticated.Load()
}

func (s *sessionManager) CheckSession(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	authenticated, err := s.checkLocked(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// abandoned by teardown, not a store failure
			log.Debug().Err(err).Msg("session check cancelled")
			return s.authenticated.Load()
		}
		log.Error().Err(err).Msg("session check failed, treating as unauthenticated")
		authenticated = false
	}
	s.setAuthenticated(authenticated, false)
	return authenticated
}

func (s *sessionManager) checkLocked(ctx context.Context) (bool, error) {
	session, found, err := s.readSession(ctx)
	if err != nil || !found {
		return false, err
	}
	now := s.now()
	if session.HasExpired(now, s.timeout) {
		log.Info().Dur("elapsed", session.Elapsed(now)).Dur("timeout", s.timeout).Msg("session expired")
		if err := s.store.RemoveItems(ctx, model.TokenKey, model.LastActivityKey); err != nil {
			return false, err
		}
		return false, nil
	}
	if err := s.store.SetItem(ctx, model.LastActivityKey, model.FormatTimestamp(now.UnixMilli())); err != nil {
		return false, err
	}
	return true, nil
}

func (s *sessionManager) readSession(ctx context.Context) (model.Session, bool, error) {
	var token, lastActivity string
	found, err := s.store.GetItem(ctx, model.TokenKey, &token)
	if err != nil || !found || token == "" {
		return model.Session{}, false, err
	}
	found, err = s.store.GetItem(ctx, model.LastActivityKey, &lastActivity)
	if err != nil || !found {
		return model.Session{}, false, err
	}
	ms, err := model.ParseTimestamp(lastActivity)
	if err != nil {
		log.Warn().Err(err).Msg("unparsable last activity treated as absent")
		return model.Session{}, false, nil
	}
	return model.Session{Token: token, LastActivity: ms}, true, nil
}

func (s *sessionManager) Login(ctx context.Context, email, password string) error {
	ok, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		log.Error().Err(err).Msg("credential verification failed")
		return util.NewStorageReadError(err)
	}
	if !ok {
		log.Info().Msg("login rejected")
		return util.NewAuthenticationError()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session := model.NewSession(s.newToken(), s.now())
	err = s.store.SetItems(ctx, map[string]any{
		model.TokenKey:        session.Token,
		model.LastActivityKey: model.FormatTimestamp(session.LastActivity),
	})
	if err != nil {
		return err
	}
	log.Info().Str("token", util.MaskToken(session.Token)).Msg("session established")
	s.setAuthenticated(true, true)
	return nil
}

// Logout drops the flag even when the store cannot be cleared.
func (s *sessionManager) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.store.RemoveItems(ctx, model.TokenKey, model.LastActivityKey)
	if err != nil {
		log.Error().Err(err).Msg("failed to clear session on logout")
	} else {
		log.Info().Msg("session closed")
	}
	s.setAuthenticated(false, true)
	return err
}

func (s *sessionManager) setAuthenticated(authenticated bool, force bool) {
	previous := s.authenticated.Swap(authenticated)
	if previous == authenticated && !force {
		return
	}
	if previous != authenticated {
		log.Info().
			Stringer("from", model.StateOf(previous)).
			Stringer("to", model.StateOf(authenticated)).
			Msg("session state changed")
	}
	s.notify(authenticated)
}

func (s *sessionManager) notify(authenticated bool) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- authenticated
	}
}

func (s *sessionManager) Subscribe() (<-chan bool, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	ch := make(chan bool, 1)
	ch <- s.authenticated.Load()
	s.subscribers[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.subscribers, id)
			close(ch)
		})
	}
	return ch, unsubscribe
}

func (s *sessionManager) Start(ctx context.Context) error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.done != nil {
		return ErrAlreadyStarted
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.CheckSession(loopCtx)

	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	go s.run(loopCtx, done)
	log.Debug().Dur("interval", s.checkInterval).Msg("session check loop started")
	return nil
}

func (s *sessionManager) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.release(done)
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.CheckSession(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// release forgets a loop that ended with its parent context, so Start works
// again without a Stop in between.
func (s *sessionManager) release(done chan struct{}) {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.done != done {
		return
	}
	s.cancel()
	s.cancel, s.done = nil, nil
}

func (s *sessionManager) Stop() {
	s.lifeMu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.lifeMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Debug().Msg("session check loop stopped")
}
