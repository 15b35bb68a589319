package push

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/costpilot-dev/costpilot/internal/models"
	"github.com/costpilot-dev/costpilot/internal/store"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu           sync.Mutex
	ready        bool
	subscriberID string
	idAfterPolls int // polls to swallow before returning the id
	polls        int
	registers    int
}

func (f *fakeProvider) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeProvider) RegisterDevice(ctx context.Context, deviceToken, platform string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registers++
	return nil
}

func (f *fakeProvider) SubscriberID(ctx context.Context, deviceToken string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.polls > f.idAfterPolls {
		return f.subscriberID, nil
	}
	return "", nil
}

func (f *fakeProvider) Send(ctx context.Context, subscriberIDs []string, title, message, link string) error {
	return nil
}

func (f *fakeProvider) setSubscriberID(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscriberID = id
}

func (f *fakeProvider) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

type fakeLinkStore struct {
	mu      sync.Mutex
	links   map[uint]models.PushLink
	upserts int
}

func newFakeLinkStore() *fakeLinkStore {
	return &fakeLinkStore{links: make(map[uint]models.PushLink)}
}

func (f *fakeLinkStore) UpsertLink(ctx context.Context, link models.PushLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	f.links[link.UserID] = link
	return nil
}

func (f *fakeLinkStore) GetLink(ctx context.Context, userID uint) (models.PushLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.links[userID]
	if !ok {
		return models.PushLink{}, store.ErrNotFound
	}
	return link, nil
}

func (f *fakeLinkStore) DeleteLink(ctx context.Context, userID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.links, userID)
	return nil
}

func newTestCoordinator(provider Provider, links store.PushLinkStore) *Coordinator {
	c := NewCoordinator(provider, links)
	c.interval = time.Millisecond
	return c
}

func TestSubscribeDeniedFailsWithoutPolling(t *testing.T) {
	provider := &fakeProvider{ready: true, subscriberID: "sub-1"}
	c := newTestCoordinator(provider, newFakeLinkStore())

	result := c.Subscribe(context.Background(), 1, PermissionDenied, "tok", "web")

	require.Equal(t, StateFailed, result.State)
	require.Equal(t, ReasonBlocked, result.Reason)
	require.Equal(t, 0, provider.pollCount())
}

func TestSubscribeProviderNotReady(t *testing.T) {
	c := newTestCoordinator(&fakeProvider{ready: false}, newFakeLinkStore())

	result := c.Subscribe(context.Background(), 1, PermissionGranted, "tok", "web")

	require.Equal(t, StateFailed, result.State)
	require.Equal(t, ReasonNotReady, result.Reason)
}

func TestSubscribeLinksOnFirstAttempt(t *testing.T) {
	provider := &fakeProvider{ready: true, subscriberID: "sub-1"}
	links := newFakeLinkStore()
	c := newTestCoordinator(provider, links)

	// A stale link from another device is overwritten, not duplicated.
	require.NoError(t, links.UpsertLink(context.Background(), models.PushLink{UserID: 1, SubscriberID: "old-sub", Platform: "web"}))

	result := c.Subscribe(context.Background(), 1, PermissionGranted, "tok", "web")

	require.Equal(t, StateLinked, result.State)
	require.Equal(t, "sub-1", result.SubscriberID)
	require.Equal(t, 1, provider.pollCount())

	require.Len(t, links.links, 1)
	require.Equal(t, "sub-1", links.links[1].SubscriberID)
}

func TestSubscribeExhaustionWithGrantedPermission(t *testing.T) {
	provider := &fakeProvider{ready: true} // never yields an id
	c := newTestCoordinator(provider, newFakeLinkStore())
	c.maxAttempts = 5

	result := c.Subscribe(context.Background(), 1, PermissionGranted, "tok", "web")

	require.Equal(t, StateFailed, result.State)
	require.Equal(t, ReasonNoSubscriber, result.Reason)
	require.Equal(t, 5, provider.pollCount())
}

func TestSubscribeExhaustionWithUndecidedPermissionForcesPrompt(t *testing.T) {
	provider := &fakeProvider{ready: true}
	c := newTestCoordinator(provider, newFakeLinkStore())
	c.maxAttempts = 3

	result := c.Subscribe(context.Background(), 1, PermissionDefault, "tok", "web")

	require.Equal(t, StateFailed, result.State)
	require.Equal(t, ReasonPromptPending, result.Reason)
	// One register to start the flow, one to force the prompt at the end.
	require.Equal(t, 2, provider.registers)
}

func TestSubscribeReentrySupersedesInflightPoll(t *testing.T) {
	provider := &fakeProvider{ready: true, idAfterPolls: 1 << 30} // stall forever
	links := newFakeLinkStore()
	c := newTestCoordinator(provider, links)
	c.interval = 5 * time.Millisecond

	first := make(chan Result, 1)
	go func() {
		first <- c.Subscribe(context.Background(), 1, PermissionGranted, "tok-a", "web")
	}()

	// Let the first loop get into polling before superseding it.
	require.Eventually(t, func() bool { return provider.pollCount() > 0 }, time.Second, time.Millisecond)

	provider.mu.Lock()
	provider.idAfterPolls = 0
	provider.subscriberID = "sub-2"
	provider.mu.Unlock()

	second := c.Subscribe(context.Background(), 1, PermissionGranted, "tok-b", "web")
	require.Equal(t, StateLinked, second.State)
	require.Equal(t, "sub-2", second.SubscriberID)

	select {
	case result := <-first:
		require.Equal(t, StateFailed, result.State)
		require.Equal(t, ReasonSuperseded, result.Reason)
	case <-time.After(2 * time.Second):
		t.Fatal("first subscribe never resolved after being superseded")
	}

	require.Len(t, links.links, 1)
}

func TestUnsubscribeDeletesLinkOnly(t *testing.T) {
	provider := &fakeProvider{ready: true, subscriberID: "sub-1"}
	links := newFakeLinkStore()
	c := newTestCoordinator(provider, links)

	result := c.Subscribe(context.Background(), 1, PermissionGranted, "tok", "web")
	require.Equal(t, StateLinked, result.State)

	require.NoError(t, c.Unsubscribe(context.Background(), 1))

	_, err := links.GetLink(context.Background(), 1)
	require.Equal(t, store.ErrNotFound, err)
}

func TestStatusIsReadOnly(t *testing.T) {
	provider := &fakeProvider{ready: true}
	links := newFakeLinkStore()
	c := newTestCoordinator(provider, links)

	status := c.Status(context.Background(), 1, PermissionDefault)
	require.Equal(t, PermissionDefault, status.Permission)
	require.True(t, status.ProviderReady)
	require.False(t, status.Linked)
	require.Empty(t, status.SubscriberID)
	require.Equal(t, 0, provider.pollCount())

	require.NoError(t, links.UpsertLink(context.Background(), models.PushLink{UserID: 1, SubscriberID: "sub-9", Platform: "web"}))

	status = c.Status(context.Background(), 1, PermissionGranted)
	require.True(t, status.Linked)
	require.Equal(t, "sub-9", status.SubscriberID)
}
