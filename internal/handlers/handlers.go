// Package handlers holds the HTTP layer. Handlers are plain functions
// sharing one package-level dependency set installed at startup via
// Configure.
package handlers

import (
	"encoding/json"

	"github.com/costpilot-dev/costpilot/internal/bootstrap"
	"github.com/costpilot-dev/costpilot/internal/notifications"
	"github.com/costpilot-dev/costpilot/internal/push"
	"github.com/costpilot-dev/costpilot/internal/scanner"
	"github.com/costpilot-dev/costpilot/internal/services"
	"github.com/costpilot-dev/costpilot/internal/store"
)

type Deps struct {
	Profiles    store.ProfileStore
	Tracker     *notifications.Tracker
	Coordinator *push.Coordinator
	Scanner     *scanner.Scanner
	Hub         *notifications.Hub
	Mailer      *services.EmailService
	Bootstrap   *bootstrap.Bootstrapper
}

var deps Deps

func Configure(d Deps) {
	deps = d
}

func decodePrivileges(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}

	var privileges []string
	if err := json.Unmarshal(raw, &privileges); err != nil {
		return nil
	}

	return privileges
}
