package model

// Command is a parsed shell or script instruction: "<scope> <operation> [args] [--key=value]".
type Command struct {
	Scope     string
	Operation string
	Args      []string
	Options   map[string]string
}

// Option returns the value of a --key=value option and whether it was given.
func (c Command) Option(key string) (string, bool) {
	v, ok := c.Options[key]
	return v, ok
}
