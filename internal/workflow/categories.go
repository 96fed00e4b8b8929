package workflow

// defaultCategories is handed to the node handler when a node's type has no
// configured mapping.
var defaultCategories = []string{"general"}

// CategoryMap maps a node's declared type to the domain categories passed to
// the node handler. The mapping is external configuration; the scheduler
// only performs the lookup.
type CategoryMap map[string][]string

// For resolves the categories for a node type, falling back to the default
// list. The returned slice is a copy so handlers cannot mutate the mapping.
func (m CategoryMap) For(nodeType string) []string {
	cats, ok := m[nodeType]
	if !ok || len(cats) == 0 {
		cats = defaultCategories
	}
	return append([]string(nil), cats...)
}
