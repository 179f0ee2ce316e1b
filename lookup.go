package stm

import "sort"

// lookup is a sorted index over the write entries a buffer has recorded,
// partitioned into one sub-range per nesting level by a delimiter stack.
// Within each sub-range entries are kept sorted by cell identity, giving
// O(log n) lookup and, as a side effect, the canonical lock order a full
// commit needs (spec.md §9 "commit ordering"). Mirrors
// transaction_internal.hpp's find_in_tx/find_in_parent/find, with the
// pointer-chasing replaced by binary search over a slice.
type lookup struct {
	entries    []*writeEntry
	delimiters []int
}

func newLookup() *lookup {
	return &lookup{}
}

func (l *lookup) reset() {
	l.entries = l.entries[:0]
	l.delimiters = l.delimiters[:0]
}

func (l *lookup) pushLevel() {
	l.delimiters = append(l.delimiters, len(l.entries))
}

func (l *lookup) topStart() int {
	return l.delimiters[len(l.delimiters)-1]
}

func (l *lookup) levelBounds(i int) (start, end int) {
	start = l.delimiters[i]
	if i+1 < len(l.delimiters) {
		end = l.delimiters[i+1]
	} else {
		end = len(l.entries)
	}
	return
}

func (l *lookup) findInRange(start, end int, id uint64) *writeEntry {
	sub := l.entries[start:end]
	i := sort.Search(len(sub), func(i int) bool { return sub[i].cell.cellID() >= id })
	if i < len(sub) && sub[i].cell.cellID() == id {
		return sub[i]
	}
	return nil
}

// findInCurrentLevel looks only within the innermost (current) nesting
// level's sub-range.
func (l *lookup) findInCurrentLevel(id uint64) *writeEntry {
	return l.findInRange(l.topStart(), len(l.entries), id)
}

// findInEnclosing looks in every level strictly outside the current one,
// innermost-enclosing first.
func (l *lookup) findInEnclosing(id uint64) *writeEntry {
	for i := len(l.delimiters) - 2; i >= 0; i-- {
		start, end := l.levelBounds(i)
		if w := l.findInRange(start, end, id); w != nil {
			return w
		}
	}
	return nil
}

// findAnywhere looks from the current level outward, returning the
// innermost handle on the given cell if one is open at any level.
func (l *lookup) findAnywhere(id uint64) *writeEntry {
	for i := len(l.delimiters) - 1; i >= 0; i-- {
		start, end := l.levelBounds(i)
		if w := l.findInRange(start, end, id); w != nil {
			return w
		}
	}
	return nil
}

// insert adds e into the current level's sub-range, keeping it sorted by
// cell identity.
func (l *lookup) insert(e *writeEntry) {
	start := l.topStart()
	sub := l.entries[start:]
	id := e.cell.cellID()
	i := sort.Search(len(sub), func(i int) bool { return sub[i].cell.cellID() >= id })
	pos := start + i
	l.entries = append(l.entries, nil)
	copy(l.entries[pos+1:], l.entries[pos:len(l.entries)-1])
	l.entries[pos] = e
}

// currentLevel returns the innermost sub-range, already sorted by cell
// identity — the canonical write-set order a full commit locks in.
func (l *lookup) currentLevel() []*writeEntry {
	return l.entries[l.topStart():]
}

// popLevel discards the innermost sub-range without merging, used on
// rollback.
func (l *lookup) popLevel() {
	start := l.topStart()
	l.entries = l.entries[:start]
	l.delimiters = l.delimiters[:len(l.delimiters)-1]
}

// mergeIntoParent folds a committed nested transaction's sub-range into
// its parent's. Entries dissolved into an outer entry (outer != nil,
// already folded by the caller) are dropped; survivors are merged into
// the parent's sorted sub-range, preserving order. Mirrors
// transaction_internal_ops.hpp's nested_apply.
func (l *lookup) mergeIntoParent() {
	start := l.topStart()
	inner := l.entries[start:]

	survivors := inner[:0]
	for _, e := range inner {
		if !e.dissolved {
			survivors = append(survivors, e)
		}
	}

	l.entries = l.entries[:start]
	l.delimiters = l.delimiters[:len(l.delimiters)-1]

	if len(l.delimiters) == 0 {
		l.entries = append(l.entries, survivors...)
		return
	}

	parentStart := l.topStart()
	parent := l.entries[parentStart:]
	merged := make([]*writeEntry, 0, len(parent)+len(survivors))
	i, j := 0, 0
	for i < len(parent) && j < len(survivors) {
		if parent[i].cell.cellID() <= survivors[j].cell.cellID() {
			merged = append(merged, parent[i])
			i++
		} else {
			merged = append(merged, survivors[j])
			j++
		}
	}
	merged = append(merged, parent[i:]...)
	merged = append(merged, survivors[j:]...)
	l.entries = append(l.entries[:parentStart], merged...)
}
