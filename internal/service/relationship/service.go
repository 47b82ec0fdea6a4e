package relationship

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/okarpov/driftchat-server/internal/core"
	"github.com/okarpov/driftchat-server/internal/store"
)

// Common errors for relationship operations. All of them are soft validation
// failures except ErrInconsistentState, which signals a consistency fault:
// a referenced user vanished between validation and commit.
var (
	ErrInvalidTarget     = errors.New("cannot send friend request to yourself")
	ErrTargetNotFound    = errors.New("target user not found")
	ErrAlreadyFriends    = errors.New("already friends")
	ErrAlreadyRequested  = core.ErrAlreadyRequested
	ErrInconsistentState = errors.New("inconsistent user state")
)

// Service enforces the friend-request state machine: request -> accept ->
// mutual friendship. It mutates the user store and the pending-request
// ledger together and emits best-effort notifications through presence.
type Service struct {
	store    store.UserStore
	presence *core.Presence
	ledger   *core.Ledger
	log      *zerolog.Logger

	locks keyedLocks
}

// New creates a relationship service.
func New(st store.UserStore, presence *core.Presence, ledger *core.Ledger, logger *zerolog.Logger) *Service {
	return &Service{
		store:    st,
		presence: presence,
		ledger:   ledger,
		log:      logger,
	}
}

// SendRequest records a pending friend request from one user to another.
// Validation order: self target, target existence, existing friendship,
// duplicate pending request. On success the recipient is notified if online;
// an offline recipient still gets the request replayed at next login.
func (s *Service) SendRequest(ctx context.Context, from, to string) error {
	if from == to {
		return ErrInvalidTarget
	}

	unlock := s.locks.lockPair(from, to)
	defer unlock()

	if _, err := s.store.GetUserByUsername(ctx, to); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrTargetNotFound
		}
		return fmt.Errorf("load target user: %w", err)
	}

	fromUser, err := s.store.GetUserByUsername(ctx, from)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			// The sender is an authenticated identity; its record vanishing
			// mid-flight is a fault, not a validation failure.
			s.log.Error().Str("username", from).Msg("sender record missing during friend request")
			return ErrInconsistentState
		}
		return fmt.Errorf("load sender user: %w", err)
	}
	if fromUser.HasFriend(to) {
		return ErrAlreadyFriends
	}

	if err := s.ledger.Add(to, from); err != nil {
		return err
	}

	if c, ok := s.presence.Lookup(to); ok {
		c.Send(&core.Event{Kind: core.EventFriendRequest, From: from})
	}

	s.log.Debug().Str("from", from).Str("to", to).Msg("friend request recorded")
	return nil
}

// AcceptRequest establishes a mutual friendship between accepter and
// requester. Both friend lists are updated idempotently and persisted, and
// the pending ledger entry is removed. A missing ledger entry does not block
// acceptance; clients only trigger this path from a received request
// notification. Side effects: the requester is told about the acceptance if
// online, and both parties that are online receive a fresh friends snapshot.
func (s *Service) AcceptRequest(ctx context.Context, accepter, requester string) error {
	if accepter == requester {
		return ErrInvalidTarget
	}

	unlock := s.locks.lockPair(accepter, requester)
	defer unlock()

	accepterUser, err := s.loadForAccept(ctx, accepter)
	if err != nil {
		return err
	}
	requesterUser, err := s.loadForAccept(ctx, requester)
	if err != nil {
		return err
	}

	if !accepterUser.HasFriend(requester) {
		accepterUser.Friends = append(accepterUser.Friends, requester)
	}
	if !requesterUser.HasFriend(accepter) {
		requesterUser.Friends = append(requesterUser.Friends, accepter)
	}

	if err := s.store.UpdateUserFriends(ctx, accepter, accepterUser.Friends); err != nil {
		return fmt.Errorf("persist accepter friends: %w", err)
	}
	if err := s.store.UpdateUserFriends(ctx, requester, requesterUser.Friends); err != nil {
		// The symmetry invariant is broken until a retry succeeds; surface
		// it loudly instead of pretending the accept worked.
		s.log.Error().Err(err).Str("accepter", accepter).Str("requester", requester).
			Msg("friendship persisted one-sided")
		return fmt.Errorf("persist requester friends: %w", err)
	}

	s.ledger.Remove(accepter, requester)

	if c, ok := s.presence.Lookup(requester); ok {
		c.Send(&core.Event{Kind: core.EventFriendAccepted, From: accepter})
		c.Send(&core.Event{Kind: core.EventFriendsUpdate, Friends: requesterUser.Friends})
	}
	if c, ok := s.presence.Lookup(accepter); ok {
		c.Send(&core.Event{Kind: core.EventFriendsUpdate, Friends: accepterUser.Friends})
	}

	s.log.Info().Str("accepter", accepter).Str("requester", requester).Msg("friendship established")
	return nil
}

// Friends returns the user's ordered friend list.
func (s *Service) Friends(ctx context.Context, username string) ([]string, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrTargetNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user.Friends, nil
}

// PendingRequests returns the requesters awaiting the user's response in
// ledger order.
func (s *Service) PendingRequests(username string) []string {
	return s.ledger.Pending(username)
}

func (s *Service) loadForAccept(ctx context.Context, username string) (*store.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.log.Error().Str("username", username).Msg("user vanished before accept commit")
			return nil, ErrInconsistentState
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}
