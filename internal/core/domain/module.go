package domain

// Definition is a self-describing module record consumable by the client
// runtime: the module id, its dependency specifiers in encounter order
// (duplicates preserved) and the original source as factory body. It is
// constructed per compile and never persisted.
type Definition struct {
	ID         string
	Specifiers []string
	Source     string
}
