package phasor

// World owns the entity/component database and the resource manager. Each
// App (and each SubApp) has exactly one World; worlds share nothing except
// channels.
type World struct {
	db        *Database
	resources *ResourceManager
}

// NewWorld constructs an empty world.
func NewWorld() *World {
	return &World{db: NewDatabase(), resources: NewResourceManager()}
}

// DB returns the entity/component store.
func (w *World) DB() *Database { return w.db }

// Resources returns the resource manager.
func (w *World) Resources() *ResourceManager { return w.resources }

// Query runs a query against the database.
func (w *World) Query(terms ...SpecTerm) QueryResult {
	return NewQuerySpec(terms...).Execute(w.db)
}

// Close releases entities, component values, and resources.
func (w *World) Close() {
	w.db.Close()
	w.resources.Close()
}
