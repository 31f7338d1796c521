package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/log"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
)

// mindmapTarget resolves the mindmap a command acts on: the first argument
// when given, otherwise the session's selection.
func mindmapTarget(s *Session, cmd model.Command) (string, error) {
	if len(cmd.Args) > 0 {
		return cmd.Args[0], nil
	}
	return s.Mindmap()
}

func boolOption(cmd model.Command, key string) (*bool, error) {
	v, ok := cmd.Option(key)
	if !ok {
		return nil, nil
	}
	if v == "" {
		b := true
		return &b, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("invalid value for --%s: %s", key, v)
	}
	return &b, nil
}

func tagsOption(v string) []string {
	tags := []string{}
	for _, t := range strings.Split(v, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// handleMindmapAdd handles: mindmap add <title> [--description=] [--category=] [--tags=a,b] [--public] [--template]
func handleMindmapAdd(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	if err := argsCheck(cmd, 1, 1, "mindmap add <title> [--description=] [--category=] [--tags=] [--public] [--template]"); err != nil {
		return nil, err
	}
	userID, _, err := s.User()
	if err != nil {
		return nil, err
	}

	info := model.MindmapCreateInfo{
		Title: cmd.Args[0],
		Nodes: []model.Node{{ID: "root", Type: model.NodeRoot, Content: model.NodeContent{Text: cmd.Args[0]}}},
	}
	info.Description, _ = cmd.Option("description")
	info.Category, _ = cmd.Option("category")
	if v, ok := cmd.Option("tags"); ok {
		info.Tags = tagsOption(v)
	}
	if b, err := boolOption(cmd, "public"); err != nil {
		return nil, err
	} else if b != nil {
		info.IsPublic = *b
	}
	if b, err := boolOption(cmd, "template"); err != nil {
		return nil, err
	} else if b != nil {
		info.IsTemplate = *b
	}

	view, err := sm.dataManager.MindmapManager.MindmapAdd(ctx, userID, info)
	if err != nil {
		return nil, fmt.Errorf("failed to add mindmap: %w", err)
	}
	s.MindmapSet(view.Mindmap.ID)
	sm.logger.Info(ctx, "Mindmap added from session", log.Fields{"sessionID": s.ID, "mindmapID": view.Mindmap.ID})
	return view, nil
}

// handleMindmapSelect handles: mindmap select <id>
func handleMindmapSelect(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	if err := argsCheck(cmd, 1, 1, "mindmap select <id>"); err != nil {
		return nil, err
	}
	userID, _, err := s.User()
	if err != nil {
		return nil, err
	}
	m, err := sm.dataManager.MindmapManager.MindmapGet(ctx, cmd.Args[0], userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select mindmap: %w", err)
	}
	s.MindmapSet(m.ID)
	return m, nil
}

// handleMindmapView handles: mindmap view [id]
func handleMindmapView(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	if err := argsCheck(cmd, 0, 1, "mindmap view [id]"); err != nil {
		return nil, err
	}
	userID, _, err := s.User()
	if err != nil {
		return nil, err
	}
	id, err := mindmapTarget(s, cmd)
	if err != nil {
		return nil, err
	}
	m, err := sm.dataManager.MindmapManager.MindmapGet(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get mindmap: %w", err)
	}
	status, err := sm.dataManager.HistoryManager.HistoryStatus(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get history status: %w", err)
	}
	return &model.MindmapView{Mindmap: m, CanUndo: status.CanUndo, CanRedo: status.CanRedo}, nil
}

// handleMindmapList handles: mindmap list [--favorites | --archived | --category=<c>]
func handleMindmapList(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	if err := argsCheck(cmd, 0, 0, "mindmap list [--favorites | --archived | --category=<category>]"); err != nil {
		return nil, err
	}
	userID, _, err := s.User()
	if err != nil {
		return nil, err
	}

	mm := sm.dataManager.MindmapManager
	var list []*model.Mindmap
	if _, ok := cmd.Option("favorites"); ok {
		list, err = mm.MindmapListFavorites(ctx, userID)
	} else if _, ok := cmd.Option("archived"); ok {
		list, err = mm.MindmapListArchived(ctx, userID)
	} else if category, ok := cmd.Option("category"); ok {
		list, err = mm.MindmapListByCategory(ctx, userID, category)
	} else {
		list, err = mm.MindmapList(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list mindmaps: %w", err)
	}
	return list, nil
}

// handleMindmapUpdate handles: mindmap update [id] [--title=] [--description=] [--category=] [--tags=] [--public=] [--template=]
func handleMindmapUpdate(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	if err := argsCheck(cmd, 0, 1, "mindmap update [id] [--title=] [--description=] [--category=] [--tags=] [--public=] [--template=]"); err != nil {
		return nil, err
	}
	userID, _, err := s.User()
	if err != nil {
		return nil, err
	}
	id, err := mindmapTarget(s, cmd)
	if err != nil {
		return nil, err
	}

	var info model.MindmapUpdateInfo
	if v, ok := cmd.Option("title"); ok {
		info.Title = &v
	}
	if v, ok := cmd.Option("description"); ok {
		info.Description = &v
	}
	if v, ok := cmd.Option("category"); ok {
		info.Category = &v
	}
	if v, ok := cmd.Option("tags"); ok {
		tags := tagsOption(v)
		info.Tags = &tags
	}
	if info.IsPublic, err = boolOption(cmd, "public"); err != nil {
		return nil, err
	}
	if info.IsTemplate, err = boolOption(cmd, "template"); err != nil {
		return nil, err
	}

	view, err := sm.dataManager.MindmapManager.MindmapUpdate(ctx, id, userID, info)
	if err != nil {
		return nil, fmt.Errorf("failed to update mindmap: %w", err)
	}
	return view, nil
}

type viewOperation func(ctx context.Context, id, requesterID string) (*model.MindmapView, error)

// mindmapViewRun runs a single-argument mindmap operation on the target mindmap.
func mindmapViewRun(ctx context.Context, s *Session, cmd model.Command, op viewOperation) (interface{}, error) {
	if err := argsCheck(cmd, 0, 1, fmt.Sprintf("mindmap %s [id]", cmd.Operation)); err != nil {
		return nil, err
	}
	userID, _, err := s.User()
	if err != nil {
		return nil, err
	}
	id, err := mindmapTarget(s, cmd)
	if err != nil {
		return nil, err
	}
	view, err := op(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to %s mindmap: %w", cmd.Operation, err)
	}
	return view, nil
}

// handleMindmapFavorite handles: mindmap favorite [id]
func handleMindmapFavorite(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	return mindmapViewRun(ctx, s, cmd, sm.dataManager.MindmapManager.MindmapFavoriteToggle)
}

// handleMindmapArchive handles: mindmap archive [id]
func handleMindmapArchive(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	return mindmapViewRun(ctx, s, cmd, sm.dataManager.MindmapManager.MindmapArchive)
}

// handleMindmapUnarchive handles: mindmap unarchive [id]
func handleMindmapUnarchive(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	return mindmapViewRun(ctx, s, cmd, sm.dataManager.MindmapManager.MindmapUnarchive)
}

// handleMindmapDelete handles: mindmap delete [id]
func handleMindmapDelete(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	return mindmapViewRun(ctx, s, cmd, sm.dataManager.MindmapManager.MindmapDelete)
}

// handleMindmapDuplicate handles: mindmap duplicate [id]. The copy becomes the selection.
func handleMindmapDuplicate(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	result, err := mindmapViewRun(ctx, s, cmd, sm.dataManager.MindmapManager.MindmapDuplicate)
	if err != nil {
		return nil, err
	}
	view := result.(*model.MindmapView)
	s.MindmapSet(view.Mindmap.ID)
	return view, nil
}

// handleMindmapPurge handles: mindmap purge [id]
func handleMindmapPurge(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	if err := argsCheck(cmd, 0, 1, "mindmap purge [id]"); err != nil {
		return nil, err
	}
	userID, _, err := s.User()
	if err != nil {
		return nil, err
	}
	id, err := mindmapTarget(s, cmd)
	if err != nil {
		return nil, err
	}
	if err := sm.dataManager.MindmapManager.MindmapPurge(ctx, id, userID); err != nil {
		return nil, fmt.Errorf("failed to purge mindmap: %w", err)
	}
	s.mindmapClear(id)
	return id, nil
}

// handleMindmapSearch handles: mindmap search <query>
func handleMindmapSearch(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	if err := argsCheck(cmd, 1, 1, "mindmap search <query>"); err != nil {
		return nil, err
	}
	userID, _, err := s.User()
	if err != nil {
		return nil, err
	}
	list, err := sm.dataManager.MindmapManager.MindmapSearch(ctx, userID, cmd.Args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to search mindmaps: %w", err)
	}
	return list, nil
}

// handleMindmapHistory handles: mindmap history [id]
func handleMindmapHistory(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	if err := argsCheck(cmd, 0, 1, "mindmap history [id]"); err != nil {
		return nil, err
	}
	userID, _, err := s.User()
	if err != nil {
		return nil, err
	}
	id, err := mindmapTarget(s, cmd)
	if err != nil {
		return nil, err
	}
	entries, err := sm.dataManager.HistoryManager.HistoryList(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return entries, nil
}

// handleMindmapExport handles: mindmap export <file> [--format=json|yaml]
func handleMindmapExport(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	if err := argsCheck(cmd, 1, 1, "mindmap export <file> [--format=json|yaml]"); err != nil {
		return nil, err
	}
	userID, _, err := s.User()
	if err != nil {
		return nil, err
	}
	id, err := s.Mindmap()
	if err != nil {
		return nil, err
	}
	format, _ := cmd.Option("format")
	if err := sm.dataManager.MindmapManager.MindmapExport(ctx, id, userID, cmd.Args[0], format); err != nil {
		return nil, fmt.Errorf("failed to export mindmap: %w", err)
	}
	return cmd.Args[0], nil
}

// handleMindmapImport handles: mindmap import <file> [--format=json|yaml]. The imported mindmap becomes the selection.
func handleMindmapImport(ctx context.Context, sm *SessionManager, s *Session, cmd model.Command) (interface{}, error) {
	if err := argsCheck(cmd, 1, 1, "mindmap import <file> [--format=json|yaml]"); err != nil {
		return nil, err
	}
	userID, _, err := s.User()
	if err != nil {
		return nil, err
	}
	format, _ := cmd.Option("format")
	view, err := sm.dataManager.MindmapManager.MindmapImport(ctx, userID, cmd.Args[0], format)
	if err != nil {
		return nil, fmt.Errorf("failed to import mindmap: %w", err)
	}
	s.MindmapSet(view.Mindmap.ID)
	return view, nil
}
