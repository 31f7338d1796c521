package cli

import "fmt"

// CommandHelp represents the structure of help information for a specific command.
type CommandHelp struct {
	Scope     string
	Operation string
	ShortDesc string
	LongDesc  string
	Syntax    string
	Arguments []string
	Options   []string
	Examples  []string
}

// HandleHelp shows general help, the commands of one scope, or the details of one operation.
func (c *CLI) HandleHelp(args []string) error {
	switch len(args) {
	case 0:
		c.showGeneralHelp()
	case 1:
		return c.showScopeHelp(args[0])
	case 2:
		return c.showOperationHelp(args[0], args[1])
	default:
		return fmt.Errorf("invalid help command. Use 'help [scope] [operation]'")
	}
	return nil
}

func (c *CLI) showGeneralHelp() {
	c.UI.Println("Command syntax: <scope> <operation> [arguments] [--option=value]")
	c.UI.Println("\nAvailable commands:")
	currentScope := ""
	for _, cmd := range commandHelps {
		if cmd.Scope != currentScope {
			c.UI.Printf("\n%s:\n", cmd.Scope)
			currentScope = cmd.Scope
		}
		c.UI.Printf("  %-12s %s\n", cmd.Operation, cmd.ShortDesc)
	}
}

func (c *CLI) showScopeHelp(scope string) error {
	found := false
	for _, cmd := range commandHelps {
		if cmd.Scope == scope {
			if !found {
				c.UI.Printf("Commands for %s:\n\n", scope)
				found = true
			}
			c.UI.Printf("%-12s %s\n", cmd.Operation, cmd.ShortDesc)
		}
	}
	if !found {
		return fmt.Errorf("no help found for %s", scope)
	}
	return nil
}

func (c *CLI) showOperationHelp(scope, operation string) error {
	for _, cmd := range commandHelps {
		if cmd.Scope != scope || cmd.Operation != operation {
			continue
		}
		c.UI.Printf("Command: %s %s\n", scope, operation)
		c.UI.Printf("Description: %s\n", cmd.LongDesc)
		c.UI.Printf("Syntax: %s\n", cmd.Syntax)
		if len(cmd.Arguments) > 0 {
			c.UI.Println("Arguments:")
			for _, arg := range cmd.Arguments {
				c.UI.Printf("  %s\n", arg)
			}
		}
		if len(cmd.Options) > 0 {
			c.UI.Println("Options:")
			for _, opt := range cmd.Options {
				c.UI.Printf("  %s\n", opt)
			}
		}
		if len(cmd.Examples) > 0 {
			c.UI.Println("Examples:")
			for _, ex := range cmd.Examples {
				c.UI.Printf("  %s\n", ex)
			}
		}
		return nil
	}
	return fmt.Errorf("no help found for %s %s", scope, operation)
}

// commandHelps lists every command of the shell, grouped by scope.
var commandHelps = []CommandHelp{
	{
		Scope:     "user",
		Operation: "add",
		ShortDesc: "Add a new user",
		LongDesc:  "Creates a local account. In the interactive shell the password is prompted for when omitted.",
		Syntax:    "user add <username> [password]",
		Arguments: []string{"username: The name of the new user", "password: (Optional) The password for the new user"},
		Examples:  []string{"user add john", "user add jane secret_password"},
	},
	{
		Scope:     "user",
		Operation: "select",
		ShortDesc: "Select a user",
		LongDesc:  "Acts as the given user for the following commands. Clears the mindmap selection.",
		Syntax:    "user select <username> [password]",
		Arguments: []string{"username: The name of the user", "password: (Optional) The user's password"},
		Examples:  []string{"user select john"},
	},
	{
		Scope:     "user",
		Operation: "list",
		ShortDesc: "List users",
		LongDesc:  "Displays every local account.",
		Syntax:    "user list",
	},
	{
		Scope:     "mindmap",
		Operation: "add",
		ShortDesc: "Create a new mindmap",
		LongDesc:  "Creates a mindmap with a root node and selects it.",
		Syntax:    "mindmap add <title> [--description=] [--category=] [--tags=a,b] [--public] [--template]",
		Arguments: []string{"title: The title of the new mindmap"},
		Options: []string{
			"--description: Free text description",
			"--category: work, personal, education, project, brainstorming, ai-generated or other",
			"--tags: Comma separated tags",
			"--public: Anyone may read the mindmap",
			"--template: Mark the mindmap as a template",
		},
		Examples: []string{`mindmap add "Q3 plan" --category=work`},
	},
	{
		Scope:     "mindmap",
		Operation: "select",
		ShortDesc: "Select a mindmap",
		LongDesc:  "Selects a readable mindmap as the target of later commands.",
		Syntax:    "mindmap select <id>",
		Examples:  []string{"mindmap select 3f2a9c1e-7d0b-4a52-9e7f-0c1d2e3f4a5b"},
	},
	{
		Scope:     "mindmap",
		Operation: "view",
		ShortDesc: "View a mindmap",
		LongDesc:  "Displays the node tree of the mindmap and whether undo and redo are available.",
		Syntax:    "mindmap view [id]",
	},
	{
		Scope:     "mindmap",
		Operation: "list",
		ShortDesc: "List your mindmaps",
		LongDesc:  "Lists your active mindmaps, most recently updated first.",
		Syntax:    "mindmap list [--favorites | --archived | --category=<category>]",
		Examples:  []string{"mindmap list", "mindmap list --archived"},
	},
	{
		Scope:     "mindmap",
		Operation: "update",
		ShortDesc: "Update mindmap fields",
		LongDesc:  "Changes the given fields in one undoable step.",
		Syntax:    "mindmap update [id] [--title=] [--description=] [--category=] [--tags=] [--public=true|false] [--template=true|false]",
		Examples:  []string{`mindmap update --title="Q4 plan"`},
	},
	{
		Scope:     "mindmap",
		Operation: "favorite",
		ShortDesc: "Toggle favorite",
		LongDesc:  "Marks or unmarks the mindmap as favorite.",
		Syntax:    "mindmap favorite [id]",
	},
	{
		Scope:     "mindmap",
		Operation: "archive",
		ShortDesc: "Archive a mindmap",
		LongDesc:  "Moves the mindmap to the archived status.",
		Syntax:    "mindmap archive [id]",
	},
	{
		Scope:     "mindmap",
		Operation: "unarchive",
		ShortDesc: "Unarchive a mindmap",
		LongDesc:  "Moves the mindmap back to the active status.",
		Syntax:    "mindmap unarchive [id]",
	},
	{
		Scope:     "mindmap",
		Operation: "delete",
		ShortDesc: "Delete a mindmap",
		LongDesc:  "Marks the mindmap as deleted. The deletion can be undone.",
		Syntax:    "mindmap delete [id]",
	},
	{
		Scope:     "mindmap",
		Operation: "purge",
		ShortDesc: "Delete a mindmap permanently",
		LongDesc:  "Removes the mindmap from the store. This cannot be undone.",
		Syntax:    "mindmap purge [id]",
	},
	{
		Scope:     "mindmap",
		Operation: "duplicate",
		ShortDesc: "Copy a mindmap",
		LongDesc:  "Creates a private copy of a readable mindmap owned by you and selects it.",
		Syntax:    "mindmap duplicate [id]",
	},
	{
		Scope:     "mindmap",
		Operation: "search",
		ShortDesc: "Search your mindmaps",
		LongDesc:  "Matches the query against titles and descriptions of your active mindmaps.",
		Syntax:    "mindmap search <query>",
		Examples:  []string{"mindmap search roadmap"},
	},
	{
		Scope:     "mindmap",
		Operation: "history",
		ShortDesc: "Show the change history",
		LongDesc:  "Lists the recorded changes of the mindmap, newest first.",
		Syntax:    "mindmap history [id]",
	},
	{
		Scope:     "mindmap",
		Operation: "export",
		ShortDesc: "Export a mindmap to a file",
		LongDesc:  "Writes the selected mindmap to a JSON or YAML file.",
		Syntax:    "mindmap export <file> [--format=json|yaml]",
		Arguments: []string{"file: Target file; the extension selects the format unless --format is given"},
		Examples:  []string{"mindmap export plan.json", "mindmap export plan.yml"},
	},
	{
		Scope:     "mindmap",
		Operation: "import",
		ShortDesc: "Import a mindmap from a file",
		LongDesc:  "Creates a new mindmap owned by you from a JSON or YAML file and selects it.",
		Syntax:    "mindmap import <file> [--format=json|yaml]",
		Examples:  []string{"mindmap import plan.json"},
	},
	{
		Scope:     "node",
		Operation: "add",
		ShortDesc: "Add a node",
		LongDesc:  "Adds a child node and the edge from its parent in the selected mindmap.",
		Syntax:    "node add <parent> <text> [--id=] [--x=] [--y=]",
		Examples:  []string{`node add root "New idea"`, `node add root "Risks" --id=risks`},
	},
	{
		Scope:     "node",
		Operation: "update",
		ShortDesc: "Change node text",
		LongDesc:  "Replaces the text of a node.",
		Syntax:    "node update <node> <text>",
	},
	{
		Scope:     "node",
		Operation: "move",
		ShortDesc: "Move a node",
		LongDesc:  "Places a node at new canvas coordinates.",
		Syntax:    "node move <node> <x> <y>",
		Examples:  []string{"node move risks 400 -120"},
	},
	{
		Scope:     "node",
		Operation: "delete",
		ShortDesc: "Delete a node",
		LongDesc:  "Deletes a node, its subtree and every edge touching them. The root node cannot be deleted.",
		Syntax:    "node delete <node>",
	},
	{
		Scope:     "edge",
		Operation: "add",
		ShortDesc: "Connect two nodes",
		LongDesc:  "Adds an edge between two nodes of the selected mindmap.",
		Syntax:    "edge add <source> <target> [--label=] [--id=]",
	},
	{
		Scope:     "edge",
		Operation: "delete",
		ShortDesc: "Remove an edge",
		LongDesc:  "Removes an edge by id.",
		Syntax:    "edge delete <edge>",
	},
	{
		Scope:     "system",
		Operation: "undo",
		ShortDesc: "Undo your last change",
		LongDesc:  "Reverts your most recent change to the mindmap that has not been undone yet.",
		Syntax:    "system undo [id]",
	},
	{
		Scope:     "system",
		Operation: "redo",
		ShortDesc: "Redo your last undone change",
		LongDesc:  "Re-applies your most recently undone change. Any new change discards what can be redone.",
		Syntax:    "system redo [id]",
	},
	{
		Scope:     "system",
		Operation: "status",
		ShortDesc: "Show undo/redo availability",
		LongDesc:  "Reports whether undo and redo are possible for you on the mindmap.",
		Syntax:    "system status [id]",
	},
	{
		Scope:     "system",
		Operation: "exit",
		ShortDesc: "Exit the program",
		LongDesc:  "Leaves the shell. 'exit' and 'quit' work as well.",
		Syntax:    "system exit",
	},
}
