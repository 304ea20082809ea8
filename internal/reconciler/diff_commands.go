package reconciler

import (
	"github.com/jra3/orgfs/internal/diffengine"
	"github.com/jra3/orgfs/internal/orgmodel"
	"github.com/jra3/orgfs/internal/orgparse"
	"github.com/jra3/orgfs/internal/render"
)

// EventCommandsFromDiff turns a headline diff for a calendar into the
// write commands fsync should enqueue, per spec §4.6 ("converts every diff
// element to a write command"). Calendar events have no move operation.
func EventCommandsFromDiff(calendarID string, diff diffengine.Diff) []Command {
	var cmds []Command
	for _, h := range diff.Added {
		e, ok := render.EventFromHeadline(h)
		if !ok {
			continue
		}
		cmds = append(cmds, Command{Kind: KindCalendarEvent, ParentID: calendarID, Op: OpInsert, Event: &e})
	}
	for id, h := range diff.Changed {
		e, ok := render.EventFromHeadline(h)
		if !ok {
			continue
		}
		cmds = append(cmds, Command{Kind: KindCalendarEvent, ParentID: calendarID, Op: OpPatch, EntryID: id, Event: &e})
	}
	for _, h := range diff.Removed {
		if id := h.ID(); id != "" {
			cmds = append(cmds, Command{Kind: KindCalendarEvent, ParentID: calendarID, Op: OpDelete, EntryID: id})
		}
	}
	return cmds
}

// TaskCommandsFromDiff turns a headline diff for a task list into write
// commands, including move commands for reordered tasks. newHeadlines is
// the full new-document-order slice diff was computed against, used to
// find anchor ids (nearest already-known siblings) for a freshly inserted
// headline with no id of its own yet.
func TaskCommandsFromDiff(listID string, diff diffengine.Diff, newHeadlines []*orgparse.Headline) []Command {
	var cmds []Command
	anchorFor := buildAnchors(newHeadlines)

	// Inserts go out in reverse document order.
	for i := len(diff.Added) - 1; i >= 0; i-- {
		h := diff.Added[i]
		t := render.TaskFromHeadline(h)
		cmds = append(cmds, Command{Kind: KindTask, ParentID: listID, Op: OpInsert, Task: &t, Anchor: anchorFor(h)})
	}
	for id, h := range diff.Changed {
		t := render.TaskFromHeadline(h)
		cmds = append(cmds, Command{Kind: KindTask, ParentID: listID, Op: OpPatch, EntryID: id, Task: &t})
	}
	for _, h := range diff.Removed {
		if id := h.ID(); id != "" {
			cmds = append(cmds, Command{Kind: KindTask, ParentID: listID, Op: OpDelete, EntryID: id})
		}
	}
	for _, mv := range diff.Moves {
		cmds = append(cmds, Command{
			Kind:     KindTask,
			ParentID: listID,
			Op:       OpMove,
			EntryID:  mv.ID,
			Anchor:   orgmodel.Anchor{Predecessor: mv.Before, Successor: mv.After},
		})
	}
	return cmds
}

// buildAnchors returns a function mapping a headline (by identity, within
// hs) to the nearest preceding/following sibling ids already known to the
// remote — the anchors a freshly inserted task should land between.
func buildAnchors(hs []*orgparse.Headline) func(*orgparse.Headline) orgmodel.Anchor {
	index := make(map[*orgparse.Headline]int, len(hs))
	for i, h := range hs {
		index[h] = i
	}
	return func(target *orgparse.Headline) orgmodel.Anchor {
		var anchor orgmodel.Anchor
		idx, ok := index[target]
		if !ok {
			return anchor
		}
		for i := idx - 1; i >= 0; i-- {
			if id := hs[i].ID(); id != "" {
				p := id
				anchor.Predecessor = &p
				break
			}
		}
		for i := idx + 1; i < len(hs); i++ {
			if id := hs[i].ID(); id != "" {
				s := id
				anchor.Successor = &s
				break
			}
		}
		return anchor
	}
}
