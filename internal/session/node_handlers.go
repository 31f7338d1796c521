package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/log"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
)

// graphEdit loads the selected mindmap, lets edit change a copy of its
// nodes and edges, and submits the result as one update.
func graphEdit(ctx context.Context, sm *SessionManager, s *Session, edit func(m *model.Mindmap) error) (*model.MindmapView, error) {
	userID, _, err := s.User()
	if err != nil {
		return nil, err
	}
	id, err := s.Mindmap()
	if err != nil {
		return nil, err
	}
	m, err := sm.dataManager.MindmapManager.MindmapGet(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get mindmap: %w", err)
	}

	m = m.Clone()
	if m.Nodes == nil {
		m.Nodes = []model.Node{}
	}
	if m.Edges == nil {
		m.Edges = []model.Edge{}
	}
	if err := edit(m); err != nil {
		return nil, err
	}

	return sm.dataManager.MindmapManager.MindmapUpdate(ctx, id, userID, model.MindmapUpdateInfo{
		Nodes: &m.Nodes,
		Edges: &m.Edges,
	})
}

func nodeRequire(m *model.Mindmap, id string) (*model.Node, error) {
	n := m.NodeFind(id)
	if n == nil {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return n, nil
}

func floatArg(s, name string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", name, s)
	}
	return f, nil
}

// handleNodeAdd handles: node add <parent> <text> [--id=] [--x=] [--y=]
func handleNodeAdd(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	if err := argsCheck(cmd, 2, 2, "node add <parent> <text> [--id=] [--x=] [--y=]"); err != nil {
		return nil, err
	}
	parentID, text := cmd.Args[0], cmd.Args[1]
	nodeID, ok := cmd.Option("id")
	if !ok || nodeID == "" {
		nodeID = uuid.New().String()
	}

	view, err := graphEdit(ctx, sm, s, func(m *model.Mindmap) error {
		if m.NodeFind(nodeID) != nil {
			return fmt.Errorf("node already exists: %s", nodeID)
		}
		parent, err := nodeRequire(m, parentID)
		if err != nil {
			return err
		}

		pos := model.Position{X: parent.Position.X + 200, Y: parent.Position.Y + float64(len(parent.Children))*80}
		if v, ok := cmd.Option("x"); ok {
			if pos.X, err = floatArg(v, "x"); err != nil {
				return err
			}
		}
		if v, ok := cmd.Option("y"); ok {
			if pos.Y, err = floatArg(v, "y"); err != nil {
				return err
			}
		}

		parent.Children = append(parent.Children, nodeID)
		m.Nodes = append(m.Nodes, model.Node{
			ID:       nodeID,
			Type:     model.NodeBranch,
			Content:  model.NodeContent{Text: text},
			Position: pos,
			Parent:   parentID,
		})
		m.Edges = append(m.Edges, model.Edge{
			ID:     uuid.New().String(),
			Source: parentID,
			Target: nodeID,
			Type:   model.EdgeCurved,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add node: %w", err)
	}
	sm.logger.Info(ctx, "Node added", log.Fields{"sessionID": s.ID, "nodeID": nodeID})
	return view, nil
}

// handleNodeUpdate handles: node update <node> <text>
func handleNodeUpdate(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	if err := argsCheck(cmd, 2, 2, "node update <node> <text>"); err != nil {
		return nil, err
	}
	view, err := graphEdit(ctx, sm, s, func(m *model.Mindmap) error {
		n, err := nodeRequire(m, cmd.Args[0])
		if err != nil {
			return err
		}
		n.Content.Text = cmd.Args[1]
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update node: %w", err)
	}
	return view, nil
}

// handleNodeMove handles: node move <node> <x> <y>
func handleNodeMove(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	if err := argsCheck(cmd, 3, 3, "node move <node> <x> <y>"); err != nil {
		return nil, err
	}
	x, err := floatArg(cmd.Args[1], "x")
	if err != nil {
		return nil, err
	}
	y, err := floatArg(cmd.Args[2], "y")
	if err != nil {
		return nil, err
	}
	view, err := graphEdit(ctx, sm, s, func(m *model.Mindmap) error {
		n, err := nodeRequire(m, cmd.Args[0])
		if err != nil {
			return err
		}
		n.Position.X, n.Position.Y = x, y
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to move node: %w", err)
	}
	return view, nil
}

// handleNodeDelete handles: node delete <node>. Descendants and every edge
// touching a removed node go with it.
func handleNodeDelete(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	if err := argsCheck(cmd, 1, 1, "node delete <node>"); err != nil {
		return nil, err
	}
	view, err := graphEdit(ctx, sm, s, func(m *model.Mindmap) error {
		target, err := nodeRequire(m, cmd.Args[0])
		if err != nil {
			return err
		}
		if target.Type == model.NodeRoot {
			return errors.New("cannot delete the root node")
		}

		removed := map[string]bool{}
		var collect func(id string)
		collect = func(id string) {
			if removed[id] {
				return
			}
			removed[id] = true
			if n := m.NodeFind(id); n != nil {
				for _, c := range n.Children {
					collect(c)
				}
			}
		}
		collect(target.ID)

		nodes := make([]model.Node, 0, len(m.Nodes))
		for _, n := range m.Nodes {
			if removed[n.ID] {
				continue
			}
			children := make([]string, 0, len(n.Children))
			for _, c := range n.Children {
				if !removed[c] {
					children = append(children, c)
				}
			}
			n.Children = children
			nodes = append(nodes, n)
		}
		edges := make([]model.Edge, 0, len(m.Edges))
		for _, e := range m.Edges {
			if !removed[e.Source] && !removed[e.Target] {
				edges = append(edges, e)
			}
		}
		m.Nodes, m.Edges = nodes, edges
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete node: %w", err)
	}
	return view, nil
}

// handleEdgeAdd handles: edge add <source> <target> [--label=] [--id=]
func handleEdgeAdd(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	if err := argsCheck(cmd, 2, 2, "edge add <source> <target> [--label=] [--id=]"); err != nil {
		return nil, err
	}
	edgeID, ok := cmd.Option("id")
	if !ok || edgeID == "" {
		edgeID = uuid.New().String()
	}
	label, _ := cmd.Option("label")

	view, err := graphEdit(ctx, sm, s, func(m *model.Mindmap) error {
		for _, id := range cmd.Args {
			if _, err := nodeRequire(m, id); err != nil {
				return err
			}
		}
		for _, e := range m.Edges {
			if e.ID == edgeID {
				return fmt.Errorf("edge already exists: %s", edgeID)
			}
		}
		m.Edges = append(m.Edges, model.Edge{
			ID:     edgeID,
			Source: cmd.Args[0],
			Target: cmd.Args[1],
			Type:   model.EdgeCurved,
			Label:  model.EdgeLabel{Text: label},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add edge: %w", err)
	}
	return view, nil
}

// handleEdgeDelete handles: edge delete <edge>
func handleEdgeDelete(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	if err := argsCheck(cmd, 1, 1, "edge delete <edge>"); err != nil {
		return nil, err
	}
	view, err := graphEdit(ctx, sm, s, func(m *model.Mindmap) error {
		for i, e := range m.Edges {
			if e.ID == cmd.Args[0] {
				m.Edges = append(m.Edges[:i], m.Edges[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("edge not found: %s", cmd.Args[0])
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete edge: %w", err)
	}
	return view, nil
}
