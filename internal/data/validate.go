package data

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs the struct tags of v and reports failures as ErrInvalidInput.
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

// validateUpdate checks the set fields of a partial update, including the
// slices the struct tags cannot reach through their pointers.
func validateUpdate(info model.MindmapUpdateInfo) error {
	if info.Empty() {
		return fmt.Errorf("%w: update sets no field", ErrInvalidInput)
	}
	if err := validateStruct(info); err != nil {
		return err
	}
	if info.Nodes != nil {
		if err := validateSlice(*info.Nodes, "nodes"); err != nil {
			return err
		}
	}
	if info.Edges != nil {
		if err := validateSlice(*info.Edges, "edges"); err != nil {
			return err
		}
	}
	if info.Collaborators != nil {
		if err := validateSlice(*info.Collaborators, "collaborators"); err != nil {
			return err
		}
	}
	return nil
}

func validateSlice(v interface{}, name string) error {
	if err := validate.Var(v, "dive"); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidInput, name, err)
	}
	return nil
}

// MindmapValidate checks the graph of an imported mindmap: node ids are
// unique and every parent, child and edge endpoint names an existing node.
// Regular updates do not enforce this.
func MindmapValidate(m *model.Mindmap) error {
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("%w: mindmap title is empty", ErrInvalidInput)
	}
	ids := make(map[string]bool, len(m.Nodes))
	for _, n := range m.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: node without id", ErrInvalidInput)
		}
		if ids[n.ID] {
			return fmt.Errorf("%w: duplicate node id %s", ErrInvalidInput, n.ID)
		}
		ids[n.ID] = true
	}
	for _, n := range m.Nodes {
		if n.Parent != "" && !ids[n.Parent] {
			return fmt.Errorf("%w: node %s has unknown parent %s", ErrInvalidInput, n.ID, n.Parent)
		}
		for _, c := range n.Children {
			if !ids[c] {
				return fmt.Errorf("%w: node %s has unknown child %s", ErrInvalidInput, n.ID, c)
			}
		}
	}
	for _, e := range m.Edges {
		if !ids[e.Source] || !ids[e.Target] {
			return fmt.Errorf("%w: edge %s connects unknown nodes", ErrInvalidInput, e.ID)
		}
	}
	return nil
}
