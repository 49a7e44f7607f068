package changes

import "sort"

// Listeners maps (table, change kind) pairs to the mutation that applies them.
type Listeners map[Table]map[ChangeType]Mutation

// Route is one entry of a Listeners table.
type Route struct {
	Table    Table
	Type     ChangeType
	Mutation Mutation
}

// Register adds or replaces the mutation for a (table, kind) pair.
func (l Listeners) Register(table Table, kind ChangeType, m Mutation) {
	byType, ok := l[table]
	if !ok {
		byType = make(map[ChangeType]Mutation)
		l[table] = byType
	}
	byType[kind] = m
}

// Lookup returns the mutation registered for (table, kind).
// An unregistered pair reports false; callers ignore it.
func (l Listeners) Lookup(table Table, kind ChangeType) (Mutation, bool) {
	m, ok := l[table][kind]
	if !ok || m == "" {
		return "", false
	}
	return m, true
}

// Handles reports whether any mutation is registered for table.
func (l Listeners) Handles(table Table) bool {
	return len(l[table]) > 0
}

// Routes returns all registered routes ordered by table then kind.
func (l Listeners) Routes() []Route {
	var routes []Route
	for table, byType := range l {
		for kind, m := range byType {
			routes = append(routes, Route{Table: table, Type: kind, Mutation: m})
		}
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Table != routes[j].Table {
			return routes[i].Table < routes[j].Table
		}
		return routes[i].Type < routes[j].Type
	})
	return routes
}
