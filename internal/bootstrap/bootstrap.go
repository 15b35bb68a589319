// Package bootstrap reconciles an authenticated principal with its
// profile record. A principal with no profile gets one synthesized on
// first sight; a found profile is sanitized before use. Bootstrap never
// blocks sign-in: every failure degrades to a usable identity derived
// from the principal itself.
package bootstrap

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/costpilot-dev/costpilot/internal/access"
	"github.com/costpilot-dev/costpilot/internal/models"
	"github.com/costpilot-dev/costpilot/internal/store"
	"github.com/costpilot-dev/costpilot/internal/types"
)

// Principal is the identity as known to the auth layer, before profile
// enrichment.
type Principal struct {
	ID    uint
	Email string
	Name  string
	Role  string
}

const (
	// lookupTimeout bounds the whole reconcile so a dead backend cannot
	// hold the sign-in flow; the underlying request may still complete
	// later and is simply discarded.
	lookupTimeout = 5 * time.Second

	// healthCheckWindow is the soft client-side rate limit on sign-in
	// health notifications. It is per-process, not atomic across
	// replicas; double-firing across instances is acceptable.
	healthCheckWindow = 6 * time.Hour
)

type Bootstrapper struct {
	profiles store.ProfileStore

	// HealthCheck, when set, runs once per user per window after a
	// successful reconcile (e.g. a per-user deadline sweep).
	HealthCheck func(ctx context.Context, user models.User)

	mu        sync.Mutex
	lastCheck map[uint]time.Time
	window    time.Duration
	timeout   time.Duration
}

func New(profiles store.ProfileStore) *Bootstrapper {
	return &Bootstrapper{
		profiles:  profiles,
		lastCheck: make(map[uint]time.Time),
		window:    healthCheckWindow,
		timeout:   lookupTimeout,
	}
}

// EnsureProfile returns the profile for a principal, synthesizing and
// persisting a default one on first sight. It always returns a usable
// identity; persistence failures are logged and degrade to an
// in-memory profile built from the principal.
func (b *Bootstrapper) EnsureProfile(ctx context.Context, principal Principal) models.User {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	user, err := b.profiles.GetUserByEmail(ctx, principal.Email)

	switch {
	case err == nil:
		user = Sanitize(user)
	case err == store.ErrNotFound:
		user = b.synthesize(ctx, principal)
	default:
		log.Printf("Bootstrap lookup failed for %s: %v", principal.Email, err)
		user = Sanitize(defaultProfile(principal))
		user.ID = principal.ID
	}

	b.runHealthCheck(ctx, user)

	return user
}

func (b *Bootstrapper) synthesize(ctx context.Context, principal Principal) models.User {
	profile := defaultProfile(principal)

	// The upsert is conflict-free: a concurrent first sign-in on
	// another instance wins harmlessly and we adopt its record.
	created, err := b.profiles.CreateUser(ctx, profile)
	if err != nil {
		log.Printf("Bootstrap failed to persist profile for %s: %v", principal.Email, err)
		return Sanitize(profile)
	}

	return Sanitize(created)
}

func defaultProfile(principal Principal) models.User {
	name := strings.TrimSpace(principal.Name)
	if name == "" {
		name = nameFromEmail(principal.Email)
	}

	return models.User{
		Name:   name,
		Email:  strings.ToLower(strings.TrimSpace(principal.Email)),
		Role:   string(access.NormalizeRole(principal.Role)),
		Status: types.StatusActive,
	}
}

// Sanitize coerces a stored profile into a well-formed identity:
// unknown roles fall back to project manager, absent status to active.
// Nil privilege/preference documents stay nil; their readers merge
// defaults on decode.
func Sanitize(user models.User) models.User {
	user.Role = string(access.NormalizeRole(user.Role))

	if user.Status != types.StatusActive && user.Status != types.StatusInactive {
		user.Status = types.StatusActive
	}

	return user
}

func (b *Bootstrapper) runHealthCheck(ctx context.Context, user models.User) {
	if b.HealthCheck == nil || user.ID == 0 {
		return
	}

	b.mu.Lock()
	last, seen := b.lastCheck[user.ID]
	if seen && time.Since(last) < b.window {
		b.mu.Unlock()
		return
	}
	b.lastCheck[user.ID] = time.Now()
	b.mu.Unlock()

	b.HealthCheck(ctx, user)
}

func nameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
