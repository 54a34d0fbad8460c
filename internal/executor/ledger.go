package executor

import (
	"fmt"

	"github.com/jsjgdh/Graphite/internal/export"
	"github.com/jsjgdh/Graphite/internal/render"
)

// Purpose is the semantic reason an evaluation was dispatched, recorded so
// the matching result can be routed to the right handler.
type Purpose int

const (
	PurposeRender Purpose = iota
	PurposeExport
	PurposePreview
)

func (p Purpose) String() string {
	switch p {
	case PurposeRender:
		return "render"
	case PurposeExport:
		return "export"
	case PurposePreview:
		return "preview"
	}
	return "unknown"
}

// ExecutionContext is the immutable per-request bundle created at dispatch
// time and consumed exactly once when its matching result arrives.
type ExecutionContext struct {
	Purpose    Purpose
	Config     render.Config
	Export     *export.Config
	DocumentID uint64
}

type ledgerEntry struct {
	id  uint64
	ctx ExecutionContext
}

// ledgerWatermark is the size at which the ledger starts warning: entries
// only pile up when results stop arriving, and the ledger does not
// self-heal lost requests.
const ledgerWatermark = 64

// ledger is the ordered queue of outstanding execution ids. Ids are issued
// in increasing order, so submission order and id order coincide.
type ledger struct {
	entries []ledgerEntry
}

func (l *ledger) push(id uint64, ctx ExecutionContext) {
	l.entries = append(l.entries, ledgerEntry{id: id, ctx: ctx})
}

// retireUpTo discards every entry whose id is strictly less than id. A
// retired entry's result, if it ever arrives, is stale: a newer evaluation
// has already superseded it.
func (l *ledger) retireUpTo(id uint64) int {
	retired := 0
	for len(l.entries) > 0 && l.entries[0].id < id {
		l.entries = l.entries[1:]
		retired++
	}
	return retired
}

// popMatching removes and returns the entry exactly matching id. The result
// stream is a subsequence of the dispatch stream, so a missing or
// mismatched entry is an internal consistency fault, not a recoverable
// condition.
func (l *ledger) popMatching(id uint64) ExecutionContext {
	if len(l.entries) == 0 {
		panic(fmt.Sprintf("executor: result for execution id %d has no pending entry", id))
	}
	head := l.entries[0]
	if head.id != id {
		panic(fmt.Sprintf("executor: execution id mismatch: result %d, pending %d", id, head.id))
	}
	l.entries = l.entries[1:]
	return head.ctx
}

func (l *ledger) len() int {
	return len(l.entries)
}
