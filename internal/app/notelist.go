package app

import "github.com/memovox/memovox/internal/notestore"

// noteList is the view model for the persisted-note panel. It mirrors the
// store listing plus transient per-row display state: a pending-delete flag
// while a removal round-trips and a short-lived "copied" badge.
type noteList struct {
	items    []notestore.Note
	selected int
	deleting map[string]bool
	copiedID string
	loading  bool
}

func newNoteList() noteList {
	return noteList{deleting: make(map[string]bool), loading: true}
}

// Replace swaps in a fresh listing. Pending-delete flags for rows that no
// longer exist are dropped; the selection is clamped.
func (n *noteList) Replace(notes []notestore.Note) {
	n.items = notes
	n.loading = false
	for id := range n.deleting {
		if n.indexOf(id) < 0 {
			delete(n.deleting, id)
		}
	}
	n.clampSelection()
}

func (n *noteList) Len() int { return len(n.items) }

func (n *noteList) Selected() (notestore.Note, bool) {
	if n.selected < 0 || n.selected >= len(n.items) {
		return notestore.Note{}, false
	}
	return n.items[n.selected], true
}

func (n *noteList) MoveUp() {
	if n.selected > 0 {
		n.selected--
	}
}

func (n *noteList) MoveDown() {
	if n.selected < len(n.items)-1 {
		n.selected++
	}
}

// MarkDeleting flags a row while its delete round-trips so it cannot be
// acted on twice.
func (n *noteList) MarkDeleting(id string) {
	n.deleting[id] = true
}

// ClearDeleting removes the flag after a failed delete, restoring the row.
func (n *noteList) ClearDeleting(id string) {
	delete(n.deleting, id)
}

func (n *noteList) IsDeleting(id string) bool {
	return n.deleting[id]
}

// RemoveByID drops a row after a confirmed delete and clamps the selection.
func (n *noteList) RemoveByID(id string) {
	idx := n.indexOf(id)
	if idx < 0 {
		return
	}
	n.items = append(n.items[:idx], n.items[idx+1:]...)
	delete(n.deleting, id)
	if n.copiedID == id {
		n.copiedID = ""
	}
	n.clampSelection()
}

// SetCopied shows the copied badge on one row; at most one row carries it.
func (n *noteList) SetCopied(id string) {
	n.copiedID = id
}

func (n *noteList) ClearCopied() {
	n.copiedID = ""
}

func (n *noteList) IsCopied(id string) bool {
	return n.copiedID == id
}

func (n *noteList) indexOf(id string) int {
	for i, note := range n.items {
		if note.ID == id {
			return i
		}
	}
	return -1
}

func (n *noteList) clampSelection() {
	if n.selected >= len(n.items) {
		n.selected = len(n.items) - 1
	}
	if n.selected < 0 {
		n.selected = 0
	}
}
