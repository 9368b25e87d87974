package template

// ValueTree is the nested mapping from field id to entered value that
// mirrors a template's section/field structure. Nested-group values are
// themselves ValueTrees (or plain map[string]any after JSON decoding).
//
// Trees are treated as immutable: updates go through Set, which copies every
// level on the touched path, so two snapshots never share mutable state.
type ValueTree map[string]any

// Get walks the tree along path and reports whether a value is present.
func (t ValueTree) Get(path ...string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	cur := t
	for i, key := range path {
		v, ok := cur[key]
		if !ok {
			return nil, false
		}
		if i == len(path)-1 {
			return v, true
		}
		cur = asTree(v)
		if cur == nil {
			return nil, false
		}
	}
	return nil, false
}

// Set returns a new tree with value stored at path. Every map on the touched
// path is shallow-copied; untouched siblings are shared structurally but
// never mutated. The receiver is left unchanged.
func Set(tree ValueTree, value any, path ...string) ValueTree {
	if len(path) == 0 {
		return tree
	}
	out := make(ValueTree, len(tree)+1)
	for k, v := range tree {
		out[k] = v
	}
	key := path[0]
	if len(path) == 1 {
		out[key] = value
		return out
	}
	child := asTree(tree[key])
	if child == nil {
		child = ValueTree{}
	}
	out[key] = Set(child, value, path[1:]...)
	return out
}

// Clone returns a deep copy of the tree, recursing into nested maps.
func (t ValueTree) Clone() ValueTree {
	if t == nil {
		return nil
	}
	out := make(ValueTree, len(t))
	for k, v := range t {
		if sub := asTree(v); sub != nil {
			out[k] = sub.Clone()
			continue
		}
		out[k] = v
	}
	return out
}

// asTree normalizes the two spellings a nested value can arrive in: a
// ValueTree built in memory, or a map[string]any produced by JSON decoding.
func asTree(v any) ValueTree {
	switch m := v.(type) {
	case ValueTree:
		return m
	case map[string]any:
		return ValueTree(m)
	default:
		return nil
	}
}
