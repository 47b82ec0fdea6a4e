package relationship

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/okarpov/driftchat-server/internal/core"
	"github.com/okarpov/driftchat-server/internal/log"
	"github.com/okarpov/driftchat-server/internal/store"
	"github.com/okarpov/driftchat-server/internal/store/sqlite"
)

type fixture struct {
	svc      *Service
	store    *sqlite.SQLiteStore
	presence *core.Presence
	ledger   *core.Ledger
}

func newFixture(t *testing.T, usernames ...string) *fixture {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	for _, username := range usernames {
		if _, err := st.CreateUser(ctx, &store.User{Username: username, PasswordHash: "h"}); err != nil {
			t.Fatalf("seed user %s: %v", username, err)
		}
	}

	presence := core.NewPresence()
	ledger := core.NewLedger()
	return &fixture{
		svc:      New(st, presence, ledger, log.Nop()),
		store:    st,
		presence: presence,
		ledger:   ledger,
	}
}

func (f *fixture) friendsOf(t *testing.T, username string) []string {
	t.Helper()
	user, err := f.store.GetUserByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("load %s: %v", username, err)
	}
	return user.Friends
}

func mustEvent(t *testing.T, c *core.Client, kind core.EventKind) *core.Event {
	t.Helper()
	select {
	case ev, ok := <-c.Events():
		if !ok {
			t.Fatalf("event channel closed while waiting for kind %v", kind)
		}
		if ev.Kind != kind {
			t.Fatalf("expected event kind %v, got %+v", kind, ev)
		}
		return ev
	default:
		t.Fatalf("expected event kind %v, channel empty", kind)
	}
	return nil
}

func TestSendRequest_SelfIsInvalidTarget(t *testing.T) {
	f := newFixture(t, "alice")

	err := f.svc.SendRequest(context.Background(), "alice", "alice")
	if !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
	if pending := f.ledger.Pending("alice"); pending != nil {
		t.Fatalf("self request must not touch the ledger, got %v", pending)
	}
}

func TestSendRequest_TargetNotFound(t *testing.T) {
	f := newFixture(t, "alice")

	err := f.svc.SendRequest(context.Background(), "alice", "ghost")
	if !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
}

func TestSendRequest_DuplicateRejected(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()

	if err := f.svc.SendRequest(ctx, "alice", "bob"); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	if err := f.svc.SendRequest(ctx, "alice", "bob"); !errors.Is(err, ErrAlreadyRequested) {
		t.Fatalf("expected ErrAlreadyRequested, got %v", err)
	}
	if pending := f.ledger.Pending("bob"); len(pending) != 1 || pending[0] != "alice" {
		t.Fatalf("expected exactly one (bob, alice) entry, got %v", pending)
	}
}

func TestSendRequest_AlreadyFriends(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()

	if err := f.svc.SendRequest(ctx, "alice", "bob"); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if err := f.svc.AcceptRequest(ctx, "bob", "alice"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	if err := f.svc.SendRequest(ctx, "alice", "bob"); !errors.Is(err, ErrAlreadyFriends) {
		t.Fatalf("expected ErrAlreadyFriends, got %v", err)
	}
}

func TestSendRequest_NotifiesOnlineRecipient(t *testing.T) {
	f := newFixture(t, "alice", "bob")

	bob := core.NewClient("b")
	f.presence.Register("bob", bob)

	if err := f.svc.SendRequest(context.Background(), "alice", "bob"); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	ev := mustEvent(t, bob, core.EventFriendRequest)
	if ev.From != "alice" {
		t.Fatalf("unexpected requester: %q", ev.From)
	}
	// The request is recorded regardless of the notification.
	if pending := f.ledger.Pending("bob"); len(pending) != 1 {
		t.Fatalf("expected ledger entry, got %v", pending)
	}
}

func TestSendRequest_OfflineRecipientStillRecorded(t *testing.T) {
	f := newFixture(t, "alice", "bob")

	if err := f.svc.SendRequest(context.Background(), "alice", "bob"); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if pending := f.ledger.Pending("bob"); len(pending) != 1 || pending[0] != "alice" {
		t.Fatalf("expected pending request for offline recipient, got %v", pending)
	}
}

func TestAcceptRequest_EstablishesSymmetricFriendship(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()

	if err := f.svc.SendRequest(ctx, "alice", "bob"); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if err := f.svc.AcceptRequest(ctx, "bob", "alice"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	bobFriends := f.friendsOf(t, "bob")
	aliceFriends := f.friendsOf(t, "alice")
	if len(bobFriends) != 1 || bobFriends[0] != "alice" {
		t.Fatalf("expected bob's friends [alice], got %v", bobFriends)
	}
	if len(aliceFriends) != 1 || aliceFriends[0] != "bob" {
		t.Fatalf("expected alice's friends [bob], got %v", aliceFriends)
	}
	if pending := f.ledger.Pending("bob"); pending != nil {
		t.Fatalf("expected ledger entry removed, got %v", pending)
	}
}

func TestAcceptRequest_Idempotent(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()

	if err := f.svc.SendRequest(ctx, "alice", "bob"); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if err := f.svc.AcceptRequest(ctx, "bob", "alice"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	// Accepting again must not duplicate friends.
	if err := f.svc.AcceptRequest(ctx, "bob", "alice"); err != nil {
		t.Fatalf("second accept failed: %v", err)
	}

	if friends := f.friendsOf(t, "bob"); len(friends) != 1 {
		t.Fatalf("expected no duplicate friends, got %v", friends)
	}
}

func TestAcceptRequest_WithoutPendingEntryStillSucceeds(t *testing.T) {
	// Permissive by design: clients only trigger accepts from received
	// notifications, and the original behavior is preserved here.
	f := newFixture(t, "alice", "bob")

	if err := f.svc.AcceptRequest(context.Background(), "bob", "alice"); err != nil {
		t.Fatalf("accept without pending request failed: %v", err)
	}
	if friends := f.friendsOf(t, "alice"); len(friends) != 1 || friends[0] != "bob" {
		t.Fatalf("expected friendship established, got %v", friends)
	}
}

func TestAcceptRequest_SelfIsInvalidTarget(t *testing.T) {
	f := newFixture(t, "alice")

	if err := f.svc.AcceptRequest(context.Background(), "alice", "alice"); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
}

func TestAcceptRequest_VanishedUserIsInconsistentState(t *testing.T) {
	f := newFixture(t, "bob")

	err := f.svc.AcceptRequest(context.Background(), "bob", "ghost")
	if !errors.Is(err, ErrInconsistentState) {
		t.Fatalf("expected ErrInconsistentState, got %v", err)
	}
	// Nothing partially applied.
	if friends := f.friendsOf(t, "bob"); len(friends) != 0 {
		t.Fatalf("expected no partial mutation, got %v", friends)
	}
}

func TestAcceptRequest_NotifiesOnlineParties(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()

	alice := core.NewClient("a")
	bob := core.NewClient("b")
	f.presence.Register("alice", alice)
	f.presence.Register("bob", bob)

	if err := f.svc.SendRequest(ctx, "alice", "bob"); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	mustEvent(t, bob, core.EventFriendRequest)

	if err := f.svc.AcceptRequest(ctx, "bob", "alice"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	accepted := mustEvent(t, alice, core.EventFriendAccepted)
	if accepted.From != "bob" {
		t.Fatalf("expected acceptance by bob, got %q", accepted.From)
	}
	aliceUpdate := mustEvent(t, alice, core.EventFriendsUpdate)
	if len(aliceUpdate.Friends) != 1 || aliceUpdate.Friends[0] != "bob" {
		t.Fatalf("unexpected alice snapshot: %v", aliceUpdate.Friends)
	}
	bobUpdate := mustEvent(t, bob, core.EventFriendsUpdate)
	if len(bobUpdate.Friends) != 1 || bobUpdate.Friends[0] != "alice" {
		t.Fatalf("unexpected bob snapshot: %v", bobUpdate.Friends)
	}
}

func TestSendRequest_ConcurrentIdenticalPairs(t *testing.T) {
	f := newFixture(t, "alice", "bob")

	const n = 16
	results := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- f.svc.SendRequest(context.Background(), "alice", "bob")
		}()
	}
	wg.Wait()
	close(results)

	var ok, rejected int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyRequested):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || rejected != n-1 {
		t.Fatalf("expected one success and %d rejections, got %d/%d", n-1, ok, rejected)
	}
	if pending := f.ledger.Pending("bob"); len(pending) != 1 {
		t.Fatalf("expected exactly one ledger entry, got %v", pending)
	}
}

func TestAcceptRequest_ConcurrentOverlappingAccepts(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()

	if err := f.svc.SendRequest(ctx, "bob", "alice"); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if err := f.svc.SendRequest(ctx, "carol", "alice"); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	// Both accepts mutate alice's friend list; neither update may be lost.
	var wg sync.WaitGroup
	for _, requester := range []string{"bob", "carol"} {
		wg.Add(1)
		go func(r string) {
			defer wg.Done()
			if err := f.svc.AcceptRequest(ctx, "alice", r); err != nil {
				t.Errorf("accept %s: %v", r, err)
			}
		}(requester)
	}
	wg.Wait()

	friends := f.friendsOf(t, "alice")
	if len(friends) != 2 {
		t.Fatalf("expected alice to have both friends, got %v", friends)
	}
	for _, requester := range []string{"bob", "carol"} {
		got := f.friendsOf(t, requester)
		if len(got) != 1 || got[0] != "alice" {
			t.Fatalf("expected %s's friends [alice], got %v", requester, got)
		}
	}
}
