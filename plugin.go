package phasor

import "reflect"

// Plugin packages setup logic for an App. Optional interfaces refine it:
// NamedPlugin overrides the name (default: the type name), NonUniquePlugin
// permits duplicates, CleanupPlugin runs teardown when the app closes.
type Plugin interface {
	Build(app *App) error
}

// NamedPlugin overrides the plugin's registration name.
type NamedPlugin interface {
	PluginName() string
}

// NonUniquePlugin marks a plugin that may be added more than once.
type NonUniquePlugin interface {
	NonUnique()
}

// CleanupPlugin runs teardown during App close. Cleanup errors are logged,
// never raised: teardown is best-effort.
type CleanupPlugin interface {
	Cleanup(app *App) error
}

func pluginName(p Plugin) string {
	if n, ok := p.(NamedPlugin); ok {
		return n.PluginName()
	}
	return fullTypeName(reflect.TypeOf(p))
}

func pluginUnique(p Plugin) bool {
	_, nonUnique := p.(NonUniquePlugin)
	return !nonUnique
}
