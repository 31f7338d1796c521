package data

import (
	"time"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
)

// Permission levels of a user on a mindmap.
const (
	permNone = iota
	permRead
	permOwner
)

// mindmapPermission returns what userID may do with m. Public mindmaps and
// accepted collaborators get read access; only the owner may mutate.
func mindmapPermission(m *model.Mindmap, userID string) int {
	switch {
	case m.OwnerID == userID:
		return permOwner
	case m.IsPublic, m.HasAcceptedCollaborator(userID):
		return permRead
	default:
		return permNone
	}
}

// mindmapApply copies the user-editable state of src onto m. It is the
// single write path for full-state changes: forward updates merge the
// request into a copy and apply it, undo and redo apply stored snapshots.
// Identity, ownership and creation time are never taken from src.
func mindmapApply(m, src *model.Mindmap, actorID string, now time.Time) {
	c := src.Clone()
	m.Title = c.Title
	m.Description = c.Description
	m.Thumbnail = c.Thumbnail
	m.Nodes = c.Nodes
	m.Edges = c.Edges
	m.Viewport = c.Viewport
	m.Settings = c.Settings
	m.IsPublic = c.IsPublic
	m.ShareToken = c.ShareToken
	m.Collaborators = c.Collaborators
	m.Tags = c.Tags
	m.Category = c.Category
	m.IsFavorite = c.IsFavorite
	m.IsTemplate = c.IsTemplate
	m.Status = c.Status
	mindmapTouch(m, actorID, now)
}

func mindmapApplyFavorite(m *model.Mindmap, favorite bool, actorID string, now time.Time) {
	m.IsFavorite = favorite
	mindmapTouch(m, actorID, now)
}

func mindmapApplyStatus(m *model.Mindmap, status model.MindmapStatus, actorID string, now time.Time) {
	m.Status = status
	mindmapTouch(m, actorID, now)
}

func mindmapTouch(m *model.Mindmap, actorID string, now time.Time) {
	m.UpdatedAt = now
	m.Metadata.NodeCount = len(m.Nodes)
	m.Metadata.EdgeCount = len(m.Edges)
	m.Metadata.LastEditedBy = actorID
}

// mindmapMerge sets every field present in info on m.
func mindmapMerge(m *model.Mindmap, info model.MindmapUpdateInfo, actorID string, now time.Time) {
	if info.Title != nil {
		m.Title = *info.Title
	}
	if info.Description != nil {
		m.Description = *info.Description
	}
	if info.Thumbnail != nil {
		m.Thumbnail = *info.Thumbnail
	}
	if info.Nodes != nil {
		m.Nodes = nodesNormalize(*info.Nodes, actorID, now)
	}
	if info.Edges != nil {
		m.Edges = edgesNormalize(*info.Edges)
	}
	if info.Viewport != nil {
		m.Viewport = *info.Viewport
	}
	if info.Settings != nil {
		m.Settings = info.Settings.Clone()
	}
	if info.IsPublic != nil {
		m.IsPublic = *info.IsPublic
	}
	if info.ShareToken != nil {
		m.ShareToken = *info.ShareToken
	}
	if info.Collaborators != nil {
		m.Collaborators = append([]model.Collaborator(nil), *info.Collaborators...)
	}
	if info.Tags != nil {
		m.Tags = append([]string{}, *info.Tags...)
	}
	if info.Category != nil {
		m.Category = *info.Category
	}
	if info.IsTemplate != nil {
		m.IsTemplate = *info.IsTemplate
	}
}

// nodesNormalize returns a copy of nodes with unset presentation fields filled in.
func nodesNormalize(nodes []model.Node, actorID string, now time.Time) []model.Node {
	out := make([]model.Node, len(nodes))
	for i, n := range nodes {
		if n.Type == "" {
			n.Type = model.NodeBranch
		}
		if n.Content.Format.FontSize == 0 && n.Content.Format.FontFamily == "" {
			n.Content.Format = model.DefaultNodeFormat()
		}
		if n.Size.Width == 0 && n.Size.Height == 0 {
			n.Size = model.Size{Width: 150, Height: 50}
		}
		if n.Metadata.Priority == 0 {
			n.Metadata.Priority = 3
		}
		if n.CreatedBy == "" {
			n.CreatedBy = actorID
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		if n.UpdatedAt.IsZero() {
			n.UpdatedAt = now
		}
		n.Children = append([]string(nil), n.Children...)
		n.Metadata.Tags = append([]string(nil), n.Metadata.Tags...)
		out[i] = n
	}
	return out
}

func edgesNormalize(edges []model.Edge) []model.Edge {
	out := make([]model.Edge, len(edges))
	for i, e := range edges {
		if e.Style == (model.EdgeStyle{}) {
			e.Style = model.DefaultEdgeStyle()
		}
		if e.Label.Position == 0 {
			e.Label.Position = 0.5
		}
		out[i] = e
	}
	return out
}
