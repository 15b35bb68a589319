// Package scanner sweeps active projects for approaching deadlines and
// emits notification records plus push/email deliveries. It never
// schedules itself; an external trigger (admin endpoint or cron hitting
// it) decides when a run happens.
package scanner

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/costpilot-dev/costpilot/internal/models"
	"github.com/costpilot-dev/costpilot/internal/notifications"
	"github.com/costpilot-dev/costpilot/internal/prefs"
	"github.com/costpilot-dev/costpilot/internal/push"
	"github.com/costpilot-dev/costpilot/internal/services"
	"github.com/costpilot-dev/costpilot/internal/store"
	"github.com/costpilot-dev/costpilot/internal/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// approachingWindow is the number of days ahead that still warrants an
// "approaching" alert.
const approachingWindow = 3

type Classification struct {
	DiffDays int
	Priority string
	Label    string // "overdue", "due today", "approaching"
}

// Summary describes one completed run.
type Summary struct {
	RunID   string `json:"run_id"`
	Scanned int    `json:"scanned"`
	Emitted int    `json:"emitted"`
}

type Scanner struct {
	db       *gorm.DB
	tracker  *notifications.Tracker
	profiles store.ProfileStore
	links    store.PushLinkStore
	provider push.Provider
	mailer   *services.EmailService
}

func New(db *gorm.DB, tracker *notifications.Tracker, profiles store.ProfileStore, links store.PushLinkStore, provider push.Provider, mailer *services.EmailService) *Scanner {
	return &Scanner{
		db:       db,
		tracker:  tracker,
		profiles: profiles,
		links:    links,
		provider: provider,
		mailer:   mailer,
	}
}

// Classify buckets a project end date relative to now. Both sides are
// compared as calendar dates with the time of day zeroed.
func Classify(endDate, now time.Time) (Classification, bool) {
	end := truncateDay(endDate)
	today := truncateDay(now)

	diffDays := int(end.Sub(today).Hours() / 24)

	switch {
	case diffDays < 0:
		return Classification{DiffDays: diffDays, Priority: types.PriorityCritical, Label: "overdue"}, true
	case diffDays == 0:
		return Classification{DiffDays: diffDays, Priority: types.PriorityHigh, Label: "due today"}, true
	case diffDays <= approachingWindow:
		return Classification{DiffDays: diffDays, Priority: types.PriorityHigh, Label: "approaching"}, true
	default:
		return Classification{}, false
	}
}

// truncateDay normalizes to a calendar date in UTC, so the difference
// between two truncated dates is an exact multiple of 24h even when the
// inputs straddle a DST transition in a local zone.
func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Run sweeps every active project. At most one notification is emitted
// per qualifying project per run; runs do not dedupe against earlier
// runs, so repeated triggers keep nagging until someone acts.
func (s *Scanner) Run(ctx context.Context) (Summary, error) {
	return s.run(ctx, nil)
}

// RunForUser sweeps only the projects managed by one user. Used as the
// sign-in health check.
func (s *Scanner) RunForUser(ctx context.Context, userID uint) (Summary, error) {
	return s.run(ctx, &userID)
}

func (s *Scanner) run(ctx context.Context, managerID *uint) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}

	query := s.db.WithContext(ctx).
		Where("status NOT IN ?", []string{types.ProjectCompleted, types.ProjectRejected}).
		Where("end_date IS NOT NULL")

	if managerID != nil {
		query = query.Where("manager_id = ?", *managerID)
	}

	var projects []models.Project
	if err := query.Find(&projects).Error; err != nil {
		return summary, fmt.Errorf("load projects: %w", err)
	}

	summary.Scanned = len(projects)
	now := time.Now()

	var emitted []models.Notification

	for _, project := range projects {
		if project.ManagerID == 0 || project.EndDate == nil {
			continue
		}

		classification, ok := Classify(*project.EndDate, now)
		if !ok {
			continue
		}

		emitted = append(emitted, buildNotification(project, classification))
	}

	if len(emitted) == 0 {
		log.Printf("Deadline scan %s: %d projects, nothing due", summary.RunID, summary.Scanned)
		return summary, nil
	}

	// One batch write; a failure is logged and left for the next run,
	// which re-evaluates the same projects anyway.
	if err := s.tracker.CreateBatch(ctx, emitted); err != nil {
		log.Printf("Deadline scan %s: batch insert failed: %v", summary.RunID, err)
		return summary, err
	}

	summary.Emitted = len(emitted)
	s.deliver(ctx, emitted)

	log.Printf("Deadline scan %s: %d projects, %d notifications emitted", summary.RunID, summary.Scanned, summary.Emitted)

	return summary, nil
}

func buildNotification(project models.Project, c Classification) models.Notification {
	var message string

	switch {
	case c.DiffDays < 0:
		message = fmt.Sprintf("Project %q is overdue by %d day(s).", project.Name, -c.DiffDays)
	case c.DiffDays == 0:
		message = fmt.Sprintf("Project %q is due today.", project.Name)
	default:
		message = fmt.Sprintf("Project %q is due in %d day(s).", project.Name, c.DiffDays)
	}

	return models.Notification{
		UserID:   project.ManagerID,
		Title:    fmt.Sprintf("Deadline %s: %s", c.Label, project.Name),
		Message:  message,
		Type:     types.NotificationDeadline,
		Priority: c.Priority,
		Link:     fmt.Sprintf("/projects/%d", project.ID),
	}
}

// deliver fans emitted notifications out to push and email per the
// recipient's preferences. Per-target failures are logged, never fatal.
func (s *Scanner) deliver(ctx context.Context, emitted []models.Notification) {
	byUser := make(map[uint][]models.Notification)
	for _, n := range emitted {
		byUser[n.UserID] = append(byUser[n.UserID], n)
	}

	for userID, batch := range byUser {
		user, err := s.profiles.GetUser(ctx, userID)
		if err != nil {
			log.Printf("Deadline delivery: failed to load user %d: %v", userID, err)
			continue
		}

		preferences := prefs.Decode(user.Preferences)

		if preferences.PushEnabled && s.provider != nil && s.provider.Ready() {
			s.pushDeliver(ctx, userID, batch)
		}

		if preferences.Email[types.NotificationDeadline] && s.mailer != nil && s.mailer.IsConfigured() {
			for _, n := range batch {
				if err := s.mailer.Send([]string{user.Email}, n.Title, n.Message); err != nil {
					log.Printf("Deadline delivery: email to %s failed: %v", user.Email, err)
				}
			}
		}
	}
}

func (s *Scanner) pushDeliver(ctx context.Context, userID uint, batch []models.Notification) {
	link, err := s.links.GetLink(ctx, userID)
	if err == store.ErrNotFound {
		return
	}
	if err != nil {
		log.Printf("Deadline delivery: failed to load push link for user %d: %v", userID, err)
		return
	}

	for _, n := range batch {
		if err := s.provider.Send(ctx, []string{link.SubscriberID}, n.Title, n.Message, n.Link); err != nil {
			log.Printf("Deadline delivery: push to user %d failed: %v", userID, err)
		}
	}
}
