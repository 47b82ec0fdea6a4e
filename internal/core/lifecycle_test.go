package core

import "testing"

func TestLifecycleLoginReplaysPendingInOrder(t *testing.T) {
	presence := NewPresence()
	ledger := NewLedger()
	lc := NewLifecycle(presence, ledger)

	ledger.Add("zoe", "xavier")
	ledger.Add("zoe", "yuri")

	conn := NewClient("c")
	lc.OnLogin(conn, "zoe")

	first := mustEvent(t, conn, EventFriendRequest)
	second := mustEvent(t, conn, EventFriendRequest)
	if first.From != "xavier" || second.From != "yuri" {
		t.Fatalf("expected replay order xavier then yuri, got %s then %s", first.From, second.From)
	}

	// Replay is read-only; the requests stay pending until accepted.
	if pending := ledger.Pending("zoe"); len(pending) != 2 {
		t.Fatalf("expected pending entries to survive replay, got %v", pending)
	}
}

func TestLifecycleLoginRegistersPresence(t *testing.T) {
	presence := NewPresence()
	lc := NewLifecycle(presence, NewLedger())

	conn := NewClient("c")
	lc.OnLogin(conn, "alice")

	if got, ok := presence.Lookup("alice"); !ok || got != conn {
		t.Fatalf("expected alice registered")
	}
	if conn.Username() != "alice" {
		t.Fatalf("expected identity bound to connection")
	}
}

func TestLifecycleReloginClosesPreviousConnection(t *testing.T) {
	presence := NewPresence()
	lc := NewLifecycle(presence, NewLedger())

	conn1 := NewClient("c1")
	conn2 := NewClient("c2")
	lc.OnLogin(conn1, "zoe")
	lc.OnLogin(conn2, "zoe")

	if got, _ := presence.Lookup("zoe"); got != conn2 {
		t.Fatalf("expected presence to resolve to conn2 only")
	}

	// conn1's event channel is closed; it receives no further routed events.
	if _, ok := <-conn1.Events(); ok {
		t.Fatalf("expected conn1 events closed")
	}
	if conn1.Send(&Event{Kind: EventMessage}) {
		t.Fatalf("send to closed client must report failure")
	}
}

func TestLifecycleDisconnectUnregisters(t *testing.T) {
	presence := NewPresence()
	lc := NewLifecycle(presence, NewLedger())

	conn := NewClient("c")
	lc.OnLogin(conn, "alice")
	lc.OnDisconnect(conn)

	if _, ok := presence.Lookup("alice"); ok {
		t.Fatalf("expected alice offline after disconnect")
	}
}

func TestLifecycleDisconnectUnauthenticated(t *testing.T) {
	presence := NewPresence()
	lc := NewLifecycle(presence, NewLedger())

	// A connection that never logged in just terminates.
	conn := NewClient("c")
	lc.OnDisconnect(conn)

	if presence.Len() != 0 {
		t.Fatalf("expected no presence entries")
	}
}

func TestLifecycleStaleDisconnectAfterRelogin(t *testing.T) {
	presence := NewPresence()
	lc := NewLifecycle(presence, NewLedger())

	conn1 := NewClient("c1")
	conn2 := NewClient("c2")
	lc.OnLogin(conn1, "zoe")
	lc.OnLogin(conn2, "zoe")

	// The old connection's disconnect must not evict the fresh one.
	lc.OnDisconnect(conn1)

	if got, ok := presence.Lookup("zoe"); !ok || got != conn2 {
		t.Fatalf("stale disconnect evicted the fresh connection")
	}
}
