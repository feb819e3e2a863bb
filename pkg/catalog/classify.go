package catalog

import (
	"regexp"
	"sort"

	"github.com/demigrate/demigrate/pkg/types"
)

// deSpecificPatterns identify applications belonging to one desktop
// environment family. Regex allow-lists, not blind prefix matches, so
// cross-cutting companion packages can be carved out below.
var deSpecificPatterns = map[types.DesktopEnv][]*regexp.Regexp{
	types.DesktopGNOME: {
		regexp.MustCompile(`^org\.gnome\.`),
		regexp.MustCompile(`^ca\.desrt\.dconf-editor$`),
		regexp.MustCompile(`^com\.mattjakeman\.ExtensionManager$`),
	},
	types.DesktopKDE: {
		regexp.MustCompile(`^org\.kde\.`),
	},
}

// companionPatterns match theme and platform companion packages both
// desktops depend on. They are never classified as DE-specific, keeping
// shared infrastructure out of every deletion set.
var companionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^org\.gtk\.Gtk3theme\.`),
	regexp.MustCompile(`^org\.kde\.KStyle\.`),
	regexp.MustCompile(`^org\.kde\.PlatformTheme\.`),
	regexp.MustCompile(`^org\.kde\.WaylandDecoration\.`),
	regexp.MustCompile(`^org\.freedesktop\.`),
}

// Classification partitions one catalog's applications: every declared app
// lands in exactly one of the two sets.
type Classification struct {
	SharedApps     []string
	DESpecificApps []string
}

// Classify partitions apps into shared and DE-specific sets for the given
// desktop environment.
func Classify(apps []string, de types.DesktopEnv) Classification {
	var c Classification

	for _, app := range apps {
		if isDESpecific(app, de) {
			c.DESpecificApps = append(c.DESpecificApps, app)
		} else {
			c.SharedApps = append(c.SharedApps, app)
		}
	}

	sort.Strings(c.SharedApps)
	sort.Strings(c.DESpecificApps)
	return c
}

func isDESpecific(app string, de types.DesktopEnv) bool {
	for _, pattern := range companionPatterns {
		if pattern.MatchString(app) {
			return false
		}
	}
	for _, pattern := range deSpecificPatterns[de] {
		if pattern.MatchString(app) {
			return true
		}
	}
	return false
}

// ReconciliationPlan is the computed, ephemeral set of application changes
// for one switch. Never persisted.
type ReconciliationPlan struct {
	// ToRemove holds previous-DE-specific apps currently installed.
	ToRemove []string

	// ToInstall holds target-declared apps not locally installed.
	ToInstall []string

	// AlreadyPresent holds target-declared apps already installed.
	AlreadyPresent []string
}

// Empty reports whether the plan contains no work.
func (p ReconciliationPlan) Empty() bool {
	return len(p.ToRemove) == 0 && len(p.ToInstall) == 0
}

// Plan computes the reconciliation between the previous and target
// catalogs against the locally installed set. The three result sets are
// pairwise disjoint by construction: shared apps are excluded from both
// install and remove, and nothing declared by the target is ever removed.
func Plan(previous, target Catalog, localInstalled []string) ReconciliationPlan {
	var plan ReconciliationPlan

	installed := make(map[string]bool, len(localInstalled))
	for _, app := range localInstalled {
		installed[app] = true
	}

	declared := make(map[string]bool, len(target.Apps))
	for _, app := range target.Apps {
		declared[app] = true
		if installed[app] {
			plan.AlreadyPresent = append(plan.AlreadyPresent, app)
		} else {
			plan.ToInstall = append(plan.ToInstall, app)
		}
	}

	previousSpecific := Classify(previous.Apps, previous.DE).DESpecificApps
	for _, app := range previousSpecific {
		if installed[app] && !declared[app] {
			plan.ToRemove = append(plan.ToRemove, app)
		}
	}

	sort.Strings(plan.ToRemove)
	sort.Strings(plan.ToInstall)
	sort.Strings(plan.AlreadyPresent)
	return plan
}
