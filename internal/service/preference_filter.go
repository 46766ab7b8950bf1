package service

import (
	"strings"

	"github.com/ecodeclub/ekit/slice"
	"github.com/kursadbilgin/application-notifier/internal/domain"
)

// EligibleForInstant returns the admins who receive new-application emails.
// An admin without a stored preference gets the defaults, which opt in.
func EligibleForInstant(admins []domain.Admin, prefs map[string]domain.NotificationPreference) []domain.Admin {
	return filterAdmins(admins, prefs, func(p domain.NotificationPreference) bool {
		return p.NotifyOnNewApplication
	})
}

// EligibleForDigest returns the admins whose digest frequency equals freq.
// "none" never matches, so admins without a stored preference never get a
// digest.
func EligibleForDigest(
	admins []domain.Admin,
	prefs map[string]domain.NotificationPreference,
	freq domain.DigestFrequency,
) []domain.Admin {
	if !freq.IsSchedulable() {
		return []domain.Admin{}
	}
	return filterAdmins(admins, prefs, func(p domain.NotificationPreference) bool {
		return p.DigestFrequency == freq
	})
}

func filterAdmins(
	admins []domain.Admin,
	prefs map[string]domain.NotificationPreference,
	match func(domain.NotificationPreference) bool,
) []domain.Admin {
	return slice.FilterMap(admins, func(_ int, a domain.Admin) (domain.Admin, bool) {
		if strings.TrimSpace(a.Email) == "" {
			return a, false
		}
		return a, match(preferenceFor(a.ID, prefs))
	})
}

func preferenceFor(userID string, prefs map[string]domain.NotificationPreference) domain.NotificationPreference {
	if p, ok := prefs[userID]; ok {
		return p
	}
	return domain.DefaultPreference(userID)
}

func adminIDs(admins []domain.Admin) []string {
	return slice.Map(admins, func(_ int, a domain.Admin) string {
		return a.ID
	})
}
