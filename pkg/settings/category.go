// Package settings implements the extraction and re-application of
// migratable desktop settings: the dconf structured store with its
// degraded fallback scan, and the plain-text font configuration files.
package settings

import "github.com/demigrate/demigrate/pkg/types"

// CategoryID names one statically enumerated settings grouping.
type CategoryID string

const (
	CategoryFonts       CategoryID = "fonts"
	CategoryBackground  CategoryID = "background"
	CategoryColorScheme CategoryID = "color-scheme"
	CategoryKDEFonts    CategoryID = "kde-fonts"
	CategoryGTKFont     CategoryID = "gtk-font"
)

// CategoryKind selects the extraction strategy for a category.
type CategoryKind int

const (
	// KindDconf extracts from the binary dconf database, preferring a
	// structured `dconf dump` parse with a degraded raw scan fallback.
	KindDconf CategoryKind = iota

	// KindPlainText extracts by line-anchored prefix match against a
	// plain-text configuration file.
	KindPlainText
)

// AllowedKey is one entry of a category's explicit allow-list: only
// section/key pairs named here are ever migrated. Unknown settings are
// never propagated since most DE-specific keys have no cross-DE meaning.
type AllowedKey struct {
	Section string // dconf section, e.g. "org/gnome/desktop/interface"
	Key     string // key name within the section
}

// SettingCategory is data, not code: a named grouping with its candidate
// source locations and extraction parameters.
type SettingCategory struct {
	ID    CategoryID
	Label string
	Kind  CategoryKind

	// CandidatePaths are home-relative locations probed in order; the
	// first that exists is used.
	CandidatePaths []string

	// RequiredTool is the external tool the structured strategy needs,
	// empty when none is required.
	RequiredTool string

	// AllowKeys is the migratable-key allow-list for KindDconf.
	AllowKeys []AllowedKey

	// KeyPrefixes are the line-start key names matched for KindPlainText,
	// without the '=' separator.
	KeyPrefixes []string

	// DestinationPath is the home-relative file plain-text settings are
	// merged into on apply. Empty for KindDconf, which writes through the
	// live store.
	DestinationPath string
}

// AllowsKey reports whether section/key is on the category's allow-list.
func (c SettingCategory) AllowsKey(section, key string) bool {
	for _, a := range c.AllowKeys {
		if a.Section == section && a.Key == key {
			return true
		}
	}
	return false
}

// SectionForKey returns the canonical section of an allow-listed key name,
// used by the fallback scan where section context is unavailable.
func (c SettingCategory) SectionForKey(key string) (string, bool) {
	for _, a := range c.AllowKeys {
		if a.Key == key {
			return a.Section, true
		}
	}
	return "", false
}

var (
	fontsCategory = SettingCategory{
		ID:             CategoryFonts,
		Label:          "Font preferences",
		Kind:           KindDconf,
		CandidatePaths: []string{".config/dconf/user"},
		RequiredTool:   "dconf",
		AllowKeys: []AllowedKey{
			{Section: "org/gnome/desktop/interface", Key: "font-name"},
			{Section: "org/gnome/desktop/interface", Key: "document-font-name"},
			{Section: "org/gnome/desktop/interface", Key: "monospace-font-name"},
			{Section: "org/gnome/desktop/interface", Key: "font-antialiasing"},
			{Section: "org/gnome/desktop/interface", Key: "font-hinting"},
		},
	}

	backgroundCategory = SettingCategory{
		ID:             CategoryBackground,
		Label:          "Desktop background",
		Kind:           KindDconf,
		CandidatePaths: []string{".config/dconf/user"},
		RequiredTool:   "dconf",
		AllowKeys: []AllowedKey{
			{Section: "org/gnome/desktop/background", Key: "picture-uri"},
			{Section: "org/gnome/desktop/background", Key: "picture-uri-dark"},
			{Section: "org/gnome/desktop/background", Key: "picture-options"},
			{Section: "org/gnome/desktop/background", Key: "primary-color"},
		},
	}

	colorSchemeCategory = SettingCategory{
		ID:             CategoryColorScheme,
		Label:          "Color scheme",
		Kind:           KindDconf,
		CandidatePaths: []string{".config/dconf/user"},
		RequiredTool:   "dconf",
		AllowKeys: []AllowedKey{
			{Section: "org/gnome/desktop/interface", Key: "color-scheme"},
			{Section: "org/gnome/desktop/interface", Key: "cursor-theme"},
			{Section: "org/gnome/desktop/interface", Key: "cursor-size"},
			{Section: "org/gnome/desktop/interface", Key: "accent-color"},
		},
	}

	kdeFontsCategory = SettingCategory{
		ID:              CategoryKDEFonts,
		Label:           "KDE font preferences",
		Kind:            KindPlainText,
		CandidatePaths:  []string{".config/kdeglobals"},
		KeyPrefixes:     []string{"font", "fixed", "menuFont", "smallestReadableFont", "toolBarFont"},
		DestinationPath: ".config/kdeglobals",
	}

	gtkFontCategory = SettingCategory{
		ID:              CategoryGTKFont,
		Label:           "GTK font preference",
		Kind:            KindPlainText,
		CandidatePaths:  []string{".config/gtk-3.0/settings.ini", ".config/gtk-4.0/settings.ini"},
		KeyPrefixes:     []string{"gtk-font-name"},
		DestinationPath: ".config/gtk-3.0/settings.ini",
	}
)

// CategoriesFor returns the settings categories extractable from the given
// source desktop environment, in extraction order.
func CategoriesFor(de types.DesktopEnv) []SettingCategory {
	switch de {
	case types.DesktopGNOME:
		return []SettingCategory{fontsCategory, backgroundCategory, colorSchemeCategory, gtkFontCategory}
	case types.DesktopKDE:
		return []SettingCategory{kdeFontsCategory, gtkFontCategory}
	default:
		return nil
	}
}

// AllCategories returns every statically defined category.
func AllCategories() []SettingCategory {
	return []SettingCategory{
		fontsCategory, backgroundCategory, colorSchemeCategory,
		kdeFontsCategory, gtkFontCategory,
	}
}

// ExtractedSetting is the unit of migratable state.
type ExtractedSetting struct {
	// ScopeKey is the hierarchical settings-tree address, e.g.
	// /org/gnome/desktop/interface/font-name. For plain-text categories
	// it is /<category>/<key>.
	ScopeKey string

	// Value is the opaque serialized value, exactly as extracted.
	Value string

	// OriginCategory names the category the setting came from.
	OriginCategory CategoryID
}

// Origin tags how an extraction result was obtained, so diagnostics can
// distinguish the structured parse from the best-effort fallback.
type Origin int

const (
	OriginStructured Origin = iota
	OriginFallback
	OriginPlainText
)

func (o Origin) String() string {
	switch o {
	case OriginStructured:
		return "structured"
	case OriginFallback:
		return "fallback"
	case OriginPlainText:
		return "plain-text"
	default:
		return "unknown"
	}
}

// ExtractResult is the tagged outcome of one category extraction.
type ExtractResult struct {
	Settings []ExtractedSetting
	Origin   Origin

	// ToolRan reports whether the structured tool executed successfully,
	// distinguishing "tool ran but found nothing to migrate" from "tool
	// could not run" when the fallback produced the results.
	ToolRan bool
}
