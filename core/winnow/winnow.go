// Package winnow implements the winnowing table: a persistent mapping
// from absolute file path to a preferred module id, consulted by the
// planner for conflict tie-break reporting only. It never reorders the
// lowerdirs overlayfs actually resolves.
package winnow

// Table is a flat path -> module id map, persisted inline inside Config.
type Table map[string]string

// Preferred returns the module id mapped to path, if any.
func (t Table) Preferred(path string) (string, bool) {
	id, ok := t[path]

	return id, ok
}

// SetRule records path as preferring module id.
func (t Table) SetRule(path, id string) {
	t[path] = id
}

// RemoveRule clears any preference recorded for path.
func (t Table) RemoveRule(path string) {
	delete(t, path)
}
