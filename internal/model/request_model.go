package model

// MindmapCreateInfo contains the fields a client may supply when creating a mindmap.
type MindmapCreateInfo struct {
	Title       string         `json:"title" yaml:"title" validate:"required,max=200"`
	Description string         `json:"description" yaml:"description" validate:"max=2000"`
	Thumbnail   string         `json:"thumbnail" yaml:"thumbnail"`
	Nodes       []Node         `json:"nodes" yaml:"nodes" validate:"dive"`
	Edges       []Edge         `json:"edges" yaml:"edges" validate:"dive"`
	Viewport    *Viewport      `json:"viewport" yaml:"viewport"`
	Settings    *Settings      `json:"settings" yaml:"settings"`
	IsPublic    bool           `json:"isPublic" yaml:"isPublic"`
	Tags        []string       `json:"tags" yaml:"tags" validate:"dive,max=50"`
	Category    string         `json:"category" yaml:"category" validate:"omitempty,oneof=work personal education project brainstorming ai-generated other"`
	IsTemplate  bool           `json:"isTemplate" yaml:"isTemplate"`
	AIGenerated bool           `json:"aiGenerated" yaml:"aiGenerated"`
	AIMetadata  map[string]any `json:"aiMetadata" yaml:"aiMetadata"`
}

// MindmapUpdateInfo is a partial update; nil fields are left untouched.
type MindmapUpdateInfo struct {
	Title         *string         `json:"title" validate:"omitempty,min=1,max=200"`
	Description   *string         `json:"description" validate:"omitempty,max=2000"`
	Thumbnail     *string         `json:"thumbnail"`
	Nodes         *[]Node         `json:"nodes"`
	Edges         *[]Edge         `json:"edges"`
	Viewport      *Viewport       `json:"viewport"`
	Settings      *Settings       `json:"settings"`
	IsPublic      *bool           `json:"isPublic"`
	ShareToken    *string         `json:"shareToken"`
	Collaborators *[]Collaborator `json:"collaborators"`
	Tags          *[]string       `json:"tags"`
	Category      *string         `json:"category" validate:"omitempty,oneof=work personal education project brainstorming ai-generated other"`
	IsTemplate    *bool           `json:"isTemplate"`
}

// Empty reports whether the update sets no field at all.
func (u MindmapUpdateInfo) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Thumbnail == nil &&
		u.Nodes == nil && u.Edges == nil && u.Viewport == nil && u.Settings == nil &&
		u.IsPublic == nil && u.ShareToken == nil && u.Collaborators == nil &&
		u.Tags == nil && u.Category == nil && u.IsTemplate == nil
}

// MindmapView is the result of a mutation or an undo/redo step.
// Mindmap is nil when the step removed the document.
type MindmapView struct {
	Mindmap *Mindmap `json:"mindmap"`
	CanUndo bool     `json:"canUndo"`
	CanRedo bool     `json:"canRedo"`
}

// MindmapFilter selects the mindmaps returned by a listing.
type MindmapFilter struct {
	OwnerID  string
	Status   MindmapStatus
	Category string
	Favorite bool
	Query    string
}
