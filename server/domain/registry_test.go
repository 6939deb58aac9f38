package domain_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	domain "tankarena/server/domain"
)

// fakeApp は参加したセッションごとに戦車を1台割り当てるだけのApplicationです。
type fakeApp struct {
	mu      sync.Mutex
	next    int
	tanks   map[domain.SessionID]domain.TankID
	joinErr error
}

func newFakeApp() *fakeApp {
	return &fakeApp{tanks: make(map[domain.SessionID]domain.TankID)}
}

func (f *fakeApp) Join(_ context.Context, sid domain.SessionID, _ string) (domain.JoinResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.joinErr != nil {
		return domain.JoinResult{}, f.joinErr
	}
	f.next++
	id := domain.TankID(fmt.Sprintf("tank-%d", f.next))
	f.tanks[sid] = id
	return domain.JoinResult{TankID: id}, nil
}

func (f *fakeApp) Leave(_ context.Context, sid domain.SessionID) (domain.TankID, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.tanks[sid]
	delete(f.tanks, sid)
	return id, ok
}

func (f *fakeApp) Tick(context.Context, float64, []domain.Intent) domain.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	alive := make(map[domain.SessionID]bool, len(f.tanks))
	for sid := range f.tanks {
		alive[sid] = true
	}
	return domain.Frame{Alive: alive}
}

func newTestRegistry(t *testing.T, maxPlayers int, factory domain.ApplicationFactory) (*domain.Registry, *domain.SimplePubSub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ps := domain.NewSimplePubSub()
	reg := domain.NewRegistry(ctx, factory, ps, nil, domain.RegistryOptions{
		MaxPlayers: maxPlayers,
		Room:       domain.RoomOptions{TickRate: 60},
	})
	t.Cleanup(func() {
		cancel()
		reg.Wait()
	})
	return reg, ps
}

func fakeFactory(domain.RoomID) domain.Application { return newFakeApp() }

func TestRegistry_JoinUsesDefaultRoom(t *testing.T) {
	reg, _ := newTestRegistry(t, 4, fakeFactory)

	res, err := reg.Join(context.Background(), "", "s1", "alice")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if res.TankID == "" {
		t.Errorf("TankID is empty")
	}
	rooms := reg.Rooms()
	if len(rooms) != 1 || rooms[0].ID != "default" || rooms[0].Players != 1 {
		t.Errorf("Rooms() = %+v, want [{default 1}]", rooms)
	}
	roomID, tankID, ok := reg.Binding("s1")
	if !ok || roomID != "default" || tankID != res.TankID {
		t.Errorf("Binding = %q, %q, %v", roomID, tankID, ok)
	}
}

func TestRegistry_JoinErrors(t *testing.T) {
	reg, _ := newTestRegistry(t, 1, fakeFactory)
	ctx := context.Background()

	if _, err := reg.Join(ctx, "arena", "s1", "alice"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := reg.Join(ctx, "other", "s1", "alice"); !errors.Is(err, domain.ErrAlreadyJoined) {
		t.Errorf("rejoin err = %v, want ErrAlreadyJoined", err)
	}
	if _, err := reg.Join(ctx, "arena", "s2", "bob"); !errors.Is(err, domain.ErrRoomFull) {
		t.Errorf("full room err = %v, want ErrRoomFull", err)
	}
	// 満員のルームへの参加失敗で他のルームは作られない
	if got := len(reg.Rooms()); got != 1 {
		t.Errorf("len(Rooms()) = %d, want 1", got)
	}
}

func TestRegistry_FailedJoinDestroysNewRoom(t *testing.T) {
	reg, _ := newTestRegistry(t, 4, func(domain.RoomID) domain.Application {
		app := newFakeApp()
		app.joinErr = domain.ErrNoSpawnPoint
		return app
	})

	_, err := reg.Join(context.Background(), "crowded", "s1", "alice")
	if !errors.Is(err, domain.ErrNoSpawnPoint) {
		t.Fatalf("err = %v, want ErrNoSpawnPoint", err)
	}
	if got := len(reg.Rooms()); got != 0 {
		t.Errorf("len(Rooms()) = %d, want 0", got)
	}
	if _, _, ok := reg.Binding("s1"); ok {
		t.Errorf("session should not be bound")
	}
}

func TestRegistry_LeaveBroadcastsAndTearsDown(t *testing.T) {
	reg, ps := newTestRegistry(t, 4, fakeFactory)
	ctx := context.Background()

	if err := reg.Leave(ctx, "nobody"); !errors.Is(err, domain.ErrNotJoined) {
		t.Errorf("Leave unbound err = %v, want ErrNotJoined", err)
	}

	ch := ps.Subscribe(domain.SessionTopic("s1"))
	if _, err := reg.Join(ctx, "", "s1", "alice"); err != nil {
		t.Fatalf("Join s1: %v", err)
	}
	res2, err := reg.Join(ctx, "", "s2", "bob")
	if err != nil {
		t.Fatalf("Join s2: %v", err)
	}
	if err := reg.Leave(ctx, "s2"); err != nil {
		t.Fatalf("Leave s2: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for found := false; !found; {
		select {
		case msg := <-ch:
			if msg.Payload.Type != domain.MsgPlayerLeft {
				continue
			}
			p := msg.Payload.Payload.(domain.PlayerLeftPayload)
			if p.TankID != res2.TankID {
				t.Errorf("playerLeft tankId = %q, want %q", p.TankID, res2.TankID)
			}
			found = true
		case <-deadline:
			t.Fatal("playerLeft not received")
		}
	}

	if err := reg.Leave(ctx, "s1"); err != nil {
		t.Fatalf("Leave s1: %v", err)
	}
	if got := reg.Rooms(); len(got) != 0 {
		t.Errorf("Rooms() = %+v, want empty", got)
	}
	if err := reg.Leave(ctx, "s1"); !errors.Is(err, domain.ErrNotJoined) {
		t.Errorf("second Leave err = %v, want ErrNotJoined", err)
	}
}

func TestRegistry_SubmitIntent(t *testing.T) {
	reg, _ := newTestRegistry(t, 4, fakeFactory)
	ctx := context.Background()

	fire := domain.Intent{Kind: domain.IntentFire}
	if got := reg.SubmitIntent(ctx, "s1", fire); got != domain.IntentNotJoined {
		t.Errorf("unbound SubmitIntent = %v, want %v", got, domain.IntentNotJoined)
	}

	if _, err := reg.Join(ctx, "", "s1", "alice"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if got := reg.SubmitIntent(ctx, "s1", domain.Intent{Kind: domain.IntentTurn, Turn: 5}); got != domain.IntentInvalid {
		t.Errorf("bad turn SubmitIntent = %v, want %v", got, domain.IntentInvalid)
	}
	if got := reg.SubmitIntent(ctx, "s1", domain.Intent{Kind: 99}); got != domain.IntentInvalid {
		t.Errorf("unknown kind SubmitIntent = %v, want %v", got, domain.IntentInvalid)
	}
	if got := reg.SubmitIntent(ctx, "s1", fire); got != domain.IntentAccepted {
		t.Errorf("SubmitIntent = %v, want %v", got, domain.IntentAccepted)
	}
}

// slowApp は1tickごとにdelayだけ止まるApplicationです。tickの開始をstartedに通知します。
type slowApp struct {
	*fakeApp
	delay   time.Duration
	started chan struct{}
}

func (s *slowApp) Tick(ctx context.Context, dt float64, intents []domain.Intent) domain.Frame {
	select {
	case s.started <- struct{}{}:
	default:
	}
	time.Sleep(s.delay)
	return s.fakeApp.Tick(ctx, dt, intents)
}

func TestRegistry_SlowRoomDoesNotBlockOtherRooms(t *testing.T) {
	slow := &slowApp{fakeApp: newFakeApp(), delay: 300 * time.Millisecond, started: make(chan struct{}, 1)}
	reg, _ := newTestRegistry(t, 4, func(id domain.RoomID) domain.Application {
		if id == "slow" {
			return slow
		}
		return newFakeApp()
	})
	ctx := context.Background()

	if _, err := reg.Join(ctx, "fast", "s1", "alice"); err != nil {
		t.Fatalf("Join fast: %v", err)
	}
	if _, err := reg.Join(ctx, "slow", "s0", "carol"); err != nil {
		t.Fatalf("Join slow: %v", err)
	}

	// 新しく始まったtickの途中で参加させる
	for len(slow.started) > 0 {
		<-slow.started
	}
	<-slow.started

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := reg.Join(ctx, "slow", "s2", "bob"); err != nil {
			t.Errorf("Join slow s2: %v", err)
		}
	}()
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	status := reg.SubmitIntent(ctx, "s1", domain.Intent{Kind: domain.IntentFire})
	elapsed := time.Since(start)
	wg.Wait()

	if status != domain.IntentAccepted {
		t.Errorf("SubmitIntent = %v, want %v", status, domain.IntentAccepted)
	}
	if elapsed > 100*time.Millisecond {
		t.Errorf("SubmitIntent in another room took %v, want under 100ms", elapsed)
	}
	if rooms := reg.Rooms(); len(rooms) != 2 {
		t.Errorf("Rooms() = %+v, want 2 rooms", rooms)
	}
}

func TestRegistry_ConcurrentJoinLeaveSameSession(t *testing.T) {
	reg, _ := newTestRegistry(t, 4, fakeFactory)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = reg.Join(ctx, "arena", "s1", "alice")
		}()
		go func() {
			defer wg.Done()
			_ = reg.Leave(ctx, "s1")
		}()
	}
	wg.Wait()

	_, _, bound := reg.Binding("s1")
	rooms := reg.Rooms()
	switch {
	case bound && (len(rooms) != 1 || rooms[0].Players != 1):
		t.Errorf("bound session but Rooms() = %+v", rooms)
	case !bound && len(rooms) != 0:
		t.Errorf("unbound session but Rooms() = %+v", rooms)
	}
}

func TestRegistry_Chat(t *testing.T) {
	reg, ps := newTestRegistry(t, 4, fakeFactory)
	ctx := context.Background()

	if err := reg.Chat(ctx, "s1", "hi"); !errors.Is(err, domain.ErrNotJoined) {
		t.Errorf("unbound Chat err = %v, want ErrNotJoined", err)
	}

	ch := ps.Subscribe(domain.SessionTopic("s2"))
	res1, err := reg.Join(ctx, "", "s1", "alice")
	if err != nil {
		t.Fatalf("Join s1: %v", err)
	}
	if _, err := reg.Join(ctx, "", "s2", "bob"); err != nil {
		t.Fatalf("Join s2: %v", err)
	}

	if err := reg.Chat(ctx, "s1", strings.Repeat("x", domain.MaxChatLength+1)); !errors.Is(err, domain.ErrInvalidChat) {
		t.Errorf("long Chat err = %v, want ErrInvalidChat", err)
	}
	if err := reg.Chat(ctx, "s1", "  gl hf "); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-ch:
			if msg.Payload.Type != domain.MsgChat {
				continue
			}
			p := msg.Payload.Payload.(domain.ChatPayload)
			if p.TankID != res1.TankID || p.Name != "alice" || p.Text != "gl hf" {
				t.Errorf("chat = %+v, want tank %s alice %q", p, res1.TankID, "gl hf")
			}
			return
		case <-deadline:
			t.Fatal("chat not received")
		}
	}
}
