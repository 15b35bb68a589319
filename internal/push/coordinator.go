// Package push links browser push subscriptions to application users.
// The coordinator walks an explicit state machine per subscribe call:
//
//	Unlinked -> PermissionRequested -> Polling(1..max) -> Linked | Failed
//
// and persists at most one device link per user.
package push

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/costpilot-dev/costpilot/internal/models"
	"github.com/costpilot-dev/costpilot/internal/store"
)

type State string

const (
	StateUnlinked State = "unlinked"
	StateLinked   State = "linked"
	StateFailed   State = "failed"
)

// Browser notification permission values, reported by the client.
const (
	PermissionGranted = "granted"
	PermissionDenied  = "denied"
	PermissionDefault = "default"
)

// Failure reasons, each with its own user-facing remediation.
const (
	ReasonBlocked       = "notifications are blocked, change your browser settings"
	ReasonNotReady      = "push service not ready"
	ReasonPromptPending = "permission prompt now pending, retry after responding"
	ReasonNoSubscriber  = "could not retrieve subscriber id"
	ReasonPersistFailed = "could not save device link, retry"
	ReasonSuperseded    = "superseded by a newer subscribe attempt"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultMaxAttempts  = 20
)

// Result is the terminal outcome of one Subscribe call. Every failure
// is recoverable by calling Subscribe again from scratch.
type Result struct {
	State        State  `json:"state"`
	Reason       string `json:"reason,omitempty"`
	SubscriberID string `json:"subscriber_id,omitempty"`
}

// Status is a read-only diagnostic snapshot; composing it never
// mutates coordinator or store state.
type Status struct {
	Permission    string `json:"permission"`
	ProviderReady bool   `json:"provider_ready"`
	Linked        bool   `json:"linked"`
	SubscriberID  string `json:"subscriber_id,omitempty"`
}

type pollToken struct {
	cancel context.CancelFunc
}

type Coordinator struct {
	provider Provider
	links    store.PushLinkStore

	interval    time.Duration
	maxAttempts int

	mu       sync.Mutex
	inflight map[uint]*pollToken
}

func NewCoordinator(provider Provider, links store.PushLinkStore) *Coordinator {
	return &Coordinator{
		provider:    provider,
		links:       links,
		interval:    defaultPollInterval,
		maxAttempts: defaultMaxAttempts,
		inflight:    make(map[uint]*pollToken),
	}
}

// Subscribe runs the linking flow for one user. Permission and the
// device token come from the browser; re-entering for the same user
// cancels any poll loop still in flight, so two loops never race on
// one user's link.
func (c *Coordinator) Subscribe(ctx context.Context, userID uint, permission, deviceToken, platform string) Result {
	if permission == PermissionDenied {
		return Result{State: StateFailed, Reason: ReasonBlocked}
	}

	if c.provider == nil || !c.provider.Ready() {
		return Result{State: StateFailed, Reason: ReasonNotReady}
	}

	pollCtx, token := c.begin(ctx, userID)
	defer c.end(userID, token)

	// Permission not decided yet: kick off the provider's subscription
	// flow before polling for the id it will eventually issue.
	if permission != PermissionGranted {
		if err := c.provider.RegisterDevice(pollCtx, deviceToken, platform); err != nil {
			log.Printf("Failed to register device for user %d: %v", userID, err)
		}
	}

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		subscriberID, err := c.provider.SubscriberID(pollCtx, deviceToken)

		if err != nil {
			log.Printf("Subscriber id poll %d/%d failed for user %d: %v", attempt, c.maxAttempts, userID, err)
		}

		if subscriberID != "" {
			link := models.PushLink{
				UserID:       userID,
				SubscriberID: subscriberID,
				Platform:     platform,
			}

			if err := c.links.UpsertLink(ctx, link); err != nil {
				log.Printf("Failed to persist push link for user %d: %v", userID, err)
				return Result{State: StateFailed, Reason: ReasonPersistFailed}
			}

			return Result{State: StateLinked, SubscriberID: subscriberID}
		}

		if attempt == c.maxAttempts {
			break
		}

		select {
		case <-pollCtx.Done():
			return Result{State: StateFailed, Reason: ReasonSuperseded}
		case <-time.After(c.interval):
		}
	}

	// Exhausted every attempt without an id. If the user never answered
	// the permission prompt, force it and ask them to retry afterwards.
	if permission == PermissionDefault {
		if err := c.provider.RegisterDevice(ctx, deviceToken, platform); err != nil {
			log.Printf("Failed to re-prompt device for user %d: %v", userID, err)
		}
		return Result{State: StateFailed, Reason: ReasonPromptPending}
	}

	return Result{State: StateFailed, Reason: ReasonNoSubscriber}
}

// Unsubscribe deletes the persisted link for the user. It cannot revoke
// the OS/browser-level permission; that is user-controlled out of band.
func (c *Coordinator) Unsubscribe(ctx context.Context, userID uint) error {
	c.mu.Lock()
	if token, ok := c.inflight[userID]; ok {
		token.cancel()
		delete(c.inflight, userID)
	}
	c.mu.Unlock()

	return c.links.DeleteLink(ctx, userID)
}

// Status reports each linking condition independently.
func (c *Coordinator) Status(ctx context.Context, userID uint, permission string) Status {
	status := Status{
		Permission:    permission,
		ProviderReady: c.provider != nil && c.provider.Ready(),
	}

	link, err := c.links.GetLink(ctx, userID)

	switch {
	case err == nil:
		status.Linked = true
		status.SubscriberID = link.SubscriberID
	case err != store.ErrNotFound:
		log.Printf("Failed to read push link for user %d: %v", userID, err)
	}

	return status
}

func (c *Coordinator) begin(ctx context.Context, userID uint) (context.Context, *pollToken) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.inflight[userID]; ok {
		prev.cancel()
	}

	pollCtx, cancel := context.WithCancel(ctx)
	token := &pollToken{cancel: cancel}
	c.inflight[userID] = token

	return pollCtx, token
}

func (c *Coordinator) end(userID uint, token *pollToken) {
	c.mu.Lock()
	defer c.mu.Unlock()

	token.cancel()

	if c.inflight[userID] == token {
		delete(c.inflight, userID)
	}
}
