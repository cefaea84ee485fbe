// Package trace holds the tool calls a model emits during one task attempt.
package trace

// RawArgumentsKey holds the unparsed argument text when a model emits
// arguments that are not a JSON object.
const RawArgumentsKey = "_raw"

type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Trace is append-only for the lifetime of a task attempt.
type Trace []ToolCall

// Matching returns the calls to the named tool, in trace order.
func (t Trace) Matching(name string) []ToolCall {
	var out []ToolCall
	for _, c := range t {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// First returns the first call to the named tool.
func (t Trace) First(name string) (ToolCall, bool) {
	for _, c := range t {
		if c.Name == name {
			return c, true
		}
	}
	return ToolCall{}, false
}
