// Package model defines the data structures used throughout the RiverFlow mindmap engine.
package model

import (
	"time"
)

// MindmapStatus is the lifecycle state of a mindmap.
type MindmapStatus string

const (
	StatusActive   MindmapStatus = "active"
	StatusArchived MindmapStatus = "archived"
	StatusDeleted  MindmapStatus = "deleted"
)

// Valid reports whether s is one of the known statuses.
func (s MindmapStatus) Valid() bool {
	switch s {
	case StatusActive, StatusArchived, StatusDeleted:
		return true
	}
	return false
}

// Mindmap categories accepted on create and update.
const (
	CategoryWork          = "work"
	CategoryPersonal      = "personal"
	CategoryEducation     = "education"
	CategoryProject       = "project"
	CategoryBrainstorming = "brainstorming"
	CategoryAIGenerated   = "ai-generated"
	CategoryOther         = "other"
)

// Mindmap is the aggregate persisted in the document store.
type Mindmap struct {
	ID            string         `json:"id" yaml:"id"`
	OwnerID       string         `json:"ownerId" yaml:"ownerId"`
	Title         string         `json:"title" yaml:"title"`
	Description   string         `json:"description,omitempty" yaml:"description,omitempty"`
	Thumbnail     string         `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
	Nodes         []Node         `json:"nodes" yaml:"nodes"`
	Edges         []Edge         `json:"edges" yaml:"edges"`
	Viewport      Viewport       `json:"viewport" yaml:"viewport"`
	Settings      Settings       `json:"settings" yaml:"settings"`
	IsPublic      bool           `json:"isPublic" yaml:"isPublic"`
	ShareToken    string         `json:"shareToken,omitempty" yaml:"shareToken,omitempty"`
	Collaborators []Collaborator `json:"collaborators" yaml:"collaborators"`
	Tags          []string       `json:"tags" yaml:"tags"`
	Category      string         `json:"category,omitempty" yaml:"category,omitempty"`
	IsFavorite    bool           `json:"isFavorite" yaml:"isFavorite"`
	IsTemplate    bool           `json:"isTemplate" yaml:"isTemplate"`
	Status        MindmapStatus  `json:"status" yaml:"status"`
	AIGenerated   bool           `json:"aiGenerated" yaml:"aiGenerated"`
	AIMetadata    map[string]any `json:"aiMetadata,omitempty" yaml:"aiMetadata,omitempty"`
	Metadata      Metadata       `json:"metadata" yaml:"metadata"`
	CreatedAt     time.Time      `json:"createdAt" yaml:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt" yaml:"updatedAt"`
}

// Node types.
const (
	NodeRoot     = "root"
	NodeBranch   = "branch"
	NodeLeaf     = "leaf"
	NodeFloating = "floating"
)

// Node is a single vertex of the mindmap graph.
type Node struct {
	ID        string       `json:"id" yaml:"id" validate:"required"`
	Type      string       `json:"type" yaml:"type" validate:"omitempty,oneof=root branch leaf floating"`
	Content   NodeContent  `json:"content" yaml:"content"`
	Position  Position     `json:"position" yaml:"position"`
	Size      Size         `json:"size" yaml:"size"`
	Parent    string       `json:"parent,omitempty" yaml:"parent,omitempty"`
	Children  []string     `json:"children,omitempty" yaml:"children,omitempty"`
	Metadata  NodeMetadata `json:"metadata" yaml:"metadata"`
	Collapsed bool         `json:"collapsed" yaml:"collapsed"`
	CreatedBy string       `json:"createdBy,omitempty" yaml:"createdBy,omitempty"`
	CreatedAt time.Time    `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt" yaml:"updatedAt"`
}

type NodeContent struct {
	Text   string     `json:"text" yaml:"text"`
	HTML   string     `json:"html,omitempty" yaml:"html,omitempty"`
	Format NodeFormat `json:"format" yaml:"format"`
}

type NodeFormat struct {
	FontSize        int    `json:"fontSize" yaml:"fontSize"`
	FontFamily      string `json:"fontFamily" yaml:"fontFamily"`
	FontWeight      string `json:"fontWeight,omitempty" yaml:"fontWeight,omitempty"`
	FontStyle       string `json:"fontStyle,omitempty" yaml:"fontStyle,omitempty"`
	Color           string `json:"color,omitempty" yaml:"color,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty" yaml:"backgroundColor,omitempty"`
	BorderColor     string `json:"borderColor,omitempty" yaml:"borderColor,omitempty"`
	BorderWidth     int    `json:"borderWidth,omitempty" yaml:"borderWidth,omitempty"`
	BorderRadius    int    `json:"borderRadius,omitempty" yaml:"borderRadius,omitempty"`
}

type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

type NodeMetadata struct {
	Icon      string   `json:"icon,omitempty" yaml:"icon,omitempty"`
	Image     string   `json:"image,omitempty" yaml:"image,omitempty"`
	Link      string   `json:"link,omitempty" yaml:"link,omitempty"`
	Tags      []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Notes     string   `json:"notes,omitempty" yaml:"notes,omitempty"`
	Priority  int      `json:"priority" yaml:"priority"`
	Completed bool     `json:"completed" yaml:"completed"`
}

// Edge types.
const (
	EdgeStraight = "straight"
	EdgeCurved   = "curved"
	EdgeBezier   = "bezier"
	EdgeStep     = "step"
)

// Edge connects two nodes of the same mindmap.
type Edge struct {
	ID       string    `json:"id" yaml:"id" validate:"required"`
	Source   string    `json:"source" yaml:"source" validate:"required"`
	Target   string    `json:"target" yaml:"target" validate:"required"`
	Type     string    `json:"type" yaml:"type" validate:"omitempty,oneof=straight curved bezier step"`
	Style    EdgeStyle `json:"style" yaml:"style"`
	Label    EdgeLabel `json:"label" yaml:"label"`
	Animated bool      `json:"animated" yaml:"animated"`
}

type EdgeStyle struct {
	StrokeColor string `json:"strokeColor" yaml:"strokeColor"`
	StrokeWidth int    `json:"strokeWidth" yaml:"strokeWidth"`
	StrokeStyle string `json:"strokeStyle" yaml:"strokeStyle"`
}

type EdgeLabel struct {
	Text     string  `json:"text,omitempty" yaml:"text,omitempty"`
	Position float64 `json:"position" yaml:"position"`
}

// Viewport is the saved camera of the canvas.
type Viewport struct {
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	Zoom float64 `json:"zoom" yaml:"zoom" validate:"gte=0.1,lte=4"`
}

// Settings holds the canvas interaction flags.
type Settings struct {
	FitView            bool           `json:"fitView" yaml:"fitView"`
	SnapToGrid         bool           `json:"snapToGrid" yaml:"snapToGrid"`
	SnapGrid           []int          `json:"snapGrid" yaml:"snapGrid"`
	NodesDraggable     bool           `json:"nodesDraggable" yaml:"nodesDraggable"`
	NodesConnectable   bool           `json:"nodesConnectable" yaml:"nodesConnectable"`
	ElementsSelectable bool           `json:"elementsSelectable" yaml:"elementsSelectable"`
	PanOnDrag          bool           `json:"panOnDrag" yaml:"panOnDrag"`
	PanOnScroll        bool           `json:"panOnScroll" yaml:"panOnScroll"`
	ZoomOnScroll       bool           `json:"zoomOnScroll" yaml:"zoomOnScroll"`
	ZoomOnPinch        bool           `json:"zoomOnPinch" yaml:"zoomOnPinch"`
	ZoomOnDoubleClick  bool           `json:"zoomOnDoubleClick" yaml:"zoomOnDoubleClick"`
	DefaultEdgeOptions map[string]any `json:"defaultEdgeOptions,omitempty" yaml:"defaultEdgeOptions,omitempty"`
	ConnectionMode     string         `json:"connectionMode" yaml:"connectionMode" validate:"omitempty,oneof=strict loose"`
}

// Collaborator roles and invitation states.
const (
	RoleOwner  = "owner"
	RoleEditor = "editor"
	RoleViewer = "viewer"

	InvitePending  = "pending"
	InviteAccepted = "accepted"
	InviteRejected = "rejected"
	InviteRemoved  = "removed"
)

type Collaborator struct {
	UserID     string     `json:"userId" yaml:"userId" validate:"required"`
	Role       string     `json:"role" yaml:"role" validate:"oneof=owner editor viewer"`
	InvitedBy  string     `json:"invitedBy,omitempty" yaml:"invitedBy,omitempty"`
	InvitedAt  time.Time  `json:"invitedAt" yaml:"invitedAt"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty" yaml:"acceptedAt,omitempty"`
	Status     string     `json:"status" yaml:"status" validate:"oneof=pending accepted rejected removed"`
}

// Metadata holds derived counters and provenance of a mindmap.
type Metadata struct {
	NodeCount    int    `json:"nodeCount" yaml:"nodeCount"`
	EdgeCount    int    `json:"edgeCount" yaml:"edgeCount"`
	LastEditedBy string `json:"lastEditedBy,omitempty" yaml:"lastEditedBy,omitempty"`
	ViewCount    int    `json:"viewCount" yaml:"viewCount"`
	ForkCount    int    `json:"forkCount" yaml:"forkCount"`
	ForkedFrom   string `json:"forkedFrom,omitempty" yaml:"forkedFrom,omitempty"`
}

// DefaultViewport returns the camera used for new mindmaps.
func DefaultViewport() Viewport {
	return Viewport{X: 0, Y: 0, Zoom: 1.0}
}

// DefaultSettings returns the canvas settings used for new mindmaps.
func DefaultSettings() Settings {
	return Settings{
		FitView:            true,
		SnapToGrid:         false,
		SnapGrid:           []int{15, 15},
		NodesDraggable:     true,
		NodesConnectable:   true,
		ElementsSelectable: true,
		PanOnDrag:          true,
		PanOnScroll:        false,
		ZoomOnScroll:       true,
		ZoomOnPinch:        true,
		ZoomOnDoubleClick:  true,
		ConnectionMode:     "strict",
	}
}

// DefaultNodeFormat returns the text format applied to nodes without one.
func DefaultNodeFormat() NodeFormat {
	return NodeFormat{FontSize: 14, FontFamily: "Arial"}
}

// DefaultEdgeStyle returns the stroke applied to edges without one.
func DefaultEdgeStyle() EdgeStyle {
	return EdgeStyle{StrokeColor: "#999999", StrokeWidth: 2, StrokeStyle: "solid"}
}

// HasAcceptedCollaborator reports whether userID collaborates on the mindmap with an accepted invitation.
func (m *Mindmap) HasAcceptedCollaborator(userID string) bool {
	for _, c := range m.Collaborators {
		if c.UserID == userID && c.Status == InviteAccepted {
			return true
		}
	}
	return false
}

// NodeFind returns the node with the given id, or nil.
func (m *Mindmap) NodeFind(id string) *Node {
	for i := range m.Nodes {
		if m.Nodes[i].ID == id {
			return &m.Nodes[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the mindmap. Snapshots and duplicates must never share slices or maps with the live aggregate.
func (m *Mindmap) Clone() *Mindmap {
	if m == nil {
		return nil
	}
	c := *m
	c.Nodes = cloneNodes(m.Nodes)
	c.Edges = cloneEdges(m.Edges)
	c.Settings = m.Settings.Clone()
	c.Collaborators = cloneCollaborators(m.Collaborators)
	c.Tags = cloneStrings(m.Tags)
	c.AIMetadata = cloneAnyMap(m.AIMetadata)
	return &c
}

// Clone returns a deep copy of the settings.
func (s Settings) Clone() Settings {
	c := s
	if s.SnapGrid != nil {
		c.SnapGrid = make([]int, len(s.SnapGrid))
		copy(c.SnapGrid, s.SnapGrid)
	}
	c.DefaultEdgeOptions = cloneAnyMap(s.DefaultEdgeOptions)
	return c
}

func cloneNodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n
		out[i].Children = cloneStrings(n.Children)
		out[i].Metadata.Tags = cloneStrings(n.Metadata.Tags)
	}
	return out
}

func cloneEdges(edges []Edge) []Edge {
	if edges == nil {
		return nil
	}
	out := make([]Edge, len(edges))
	copy(out, edges)
	return out
}

func cloneCollaborators(cs []Collaborator) []Collaborator {
	if cs == nil {
		return nil
	}
	out := make([]Collaborator, len(cs))
	for i, c := range cs {
		out[i] = c
		if c.AcceptedAt != nil {
			t := *c.AcceptedAt
			out[i].AcceptedAt = &t
		}
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneAny(v)
	}
	return out
}

func cloneAny(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneAnyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneAny(e)
		}
		return out
	default:
		return v
	}
}
