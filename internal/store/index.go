package store

import "sort"

// idSet is a set of record ids used by the foreign-key indexes.
type idSet map[int64]struct{}

func (s idSet) sorted() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// addRef records child under parent in a foreign-key index.
func addRef(index map[int64]idSet, parent, child int64) {
	set, ok := index[parent]
	if !ok {
		set = make(idSet)
		index[parent] = set
	}
	set[child] = struct{}{}
}

// dropRef removes child from parent's entry, pruning empty entries.
func dropRef(index map[int64]idSet, parent, child int64) {
	set, ok := index[parent]
	if !ok {
		return
	}
	delete(set, child)
	if len(set) == 0 {
		delete(index, parent)
	}
}

func sortedKeys[T any](m map[int64]T) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
