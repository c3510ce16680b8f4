package nif

// StringTable holds the header strings that string fields index into
// (20.1.0.1 and later). Entries are unique.
type StringTable struct {
	list  []string
	index map[string]int32
}

// NewStringTable returns a table holding strs in order. Duplicates keep
// their first index for Append lookups but stay addressable.
func NewStringTable(strs []string) *StringTable {
	t := &StringTable{}
	for _, s := range strs {
		t.list = append(t.list, s)
		if t.index == nil {
			t.index = make(map[string]int32)
		}
		if _, ok := t.index[s]; !ok {
			t.index[s] = int32(len(t.list) - 1)
		}
	}
	return t
}

// At returns the string at i, or "" for negative or out-of-range indices.
func (t *StringTable) At(i int32) string {
	if t == nil || i < 0 || int(i) >= len(t.list) {
		return ""
	}
	return t.list[i]
}

// Append adds s and returns its index. A string already present returns its
// existing index.
func (t *StringTable) Append(s string) int32 {
	if i, ok := t.index[s]; ok {
		return i
	}
	if t.index == nil {
		t.index = make(map[string]int32)
	}
	t.list = append(t.list, s)
	i := int32(len(t.list) - 1)
	t.index[s] = i
	return i
}

// Len returns the number of entries.
func (t *StringTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.list)
}

// Strings returns a copy of the entries.
func (t *StringTable) Strings() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.list...)
}
