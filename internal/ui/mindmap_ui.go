package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
)

// MindmapView displays the header and node tree of a mindmap together with
// its undo/redo availability.
func (u *UI) MindmapView(view *model.MindmapView) {
	if view.Mindmap == nil {
		u.Warning("Mindmap removed")
		u.historyFlags(view.CanUndo, view.CanRedo)
		return
	}
	m := view.Mindmap
	u.PrintMarkup(fmt.Sprintf("{{purple}}%s{{default}} {{gray}}[%s] %s%s", m.Title, m.ID, m.Status, u.mindmapBadges(m)))
	if m.Description != "" {
		u.Info(m.Description)
	}
	for _, line := range u.nodeTree(m) {
		u.PrintMarkup(line)
	}
	u.historyFlags(view.CanUndo, view.CanRedo)
}

func (u *UI) historyFlags(canUndo, canRedo bool) {
	u.Info(fmt.Sprintf("undo: %t  redo: %t", canUndo, canRedo))
}

func (u *UI) mindmapBadges(m *model.Mindmap) string {
	var badges []string
	if m.IsFavorite {
		badges = append(badges, "favorite")
	}
	if m.IsPublic {
		badges = append(badges, "public")
	}
	if m.IsTemplate {
		badges = append(badges, "template")
	}
	if m.Category != "" {
		badges = append(badges, m.Category)
	}
	if len(badges) == 0 {
		return ""
	}
	return " (" + strings.Join(badges, ", ") + ")"
}

// nodeTree renders nodes as a tree following their parent links. Nodes
// without a parent start their own tree, roots first.
func (u *UI) nodeTree(m *model.Mindmap) []string {
	if len(m.Nodes) == 0 {
		return []string{"{{gray}}(no nodes)"}
	}

	known := make(map[string]bool, len(m.Nodes))
	for _, n := range m.Nodes {
		known[n.ID] = true
	}
	children := make(map[string][]model.Node)
	var tops []model.Node
	for _, n := range m.Nodes {
		if n.Parent != "" && known[n.Parent] {
			children[n.Parent] = append(children[n.Parent], n)
		} else {
			tops = append(tops, n)
		}
	}
	sort.SliceStable(tops, func(i, j int) bool {
		return tops[i].Type == model.NodeRoot && tops[j].Type != model.NodeRoot
	})

	var out []string
	seen := make(map[string]bool)
	var build func(n model.Node, prefix string, isLast bool)
	build = func(n model.Node, prefix string, isLast bool) {
		if seen[n.ID] {
			return
		}
		seen[n.ID] = true

		var line strings.Builder
		line.WriteString(prefix)
		if isLast {
			line.WriteString("{{brown}}└── {{default}}")
			prefix += "    "
		} else {
			line.WriteString("{{brown}}├── {{default}}")
			prefix += "{{brown}}│   {{default}}"
		}
		line.WriteString(n.Content.Text)
		line.WriteString(fmt.Sprintf(" {{orange}}[%s]", n.ID))
		if n.Type == model.NodeFloating {
			line.WriteString(" {{gray}}floating")
		}
		if n.Metadata.Completed {
			line.WriteString(" {{green}}done")
		}
		out = append(out, line.String())

		kids := children[n.ID]
		for i, c := range kids {
			build(c, prefix, i == len(kids)-1)
		}
	}
	for i, n := range tops {
		build(n, "", i == len(tops)-1)
	}
	out = append(out, fmt.Sprintf("{{gray}}%d nodes, %d edges", len(m.Nodes), len(m.Edges)))
	return out
}

// MindmapList displays one line per mindmap.
func (u *UI) MindmapList(mindmaps []*model.Mindmap) {
	if len(mindmaps) == 0 {
		u.Info("No mindmaps found")
		return
	}
	for _, m := range mindmaps {
		u.PrintMarkup(fmt.Sprintf("{{yellow}}%s{{default}} %s{{gray}}%s, updated %s",
			m.ID, m.Title, u.mindmapBadges(m), m.UpdatedAt.Format("2006-01-02 15:04")))
	}
}

// HistoryList displays history entries, newest first.
func (u *UI) HistoryList(entries []*model.HistoryEntry) {
	if len(entries) == 0 {
		u.Info("No history")
		return
	}
	for _, e := range entries {
		state := "{{green}}" + string(e.State)
		if e.State == model.HistoryReversed {
			state = "{{gray}}" + string(e.State)
		}
		u.PrintMarkup(fmt.Sprintf("{{yellow}}%4d{{default}} %-20s %s{{default}} {{gray}}%s by %s",
			e.Seq, e.Action, state, e.CreatedAt.Format("2006-01-02 15:04:05"), e.ActorID))
	}
}

// UserList displays a list of users
func (u *UI) UserList(users []*model.User) {
	if len(users) == 0 {
		u.Info("No users found")
		return
	}
	for _, user := range users {
		status := "active"
		if !user.Active {
			status = "inactive"
		}
		u.Printf("- %s (%s)\n", user.Username, status)
	}
}
