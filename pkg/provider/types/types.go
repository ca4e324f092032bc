package types

// Turn is one prior conversation exchange passed to the AI backend as
// history. The relay core always sends an empty history; the type exists
// so the wire contract stays explicit.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
