package value

// ObjectBuilder accumulates members in insertion order. Setting a key twice
// replaces the value and keeps the position of the first occurrence.
type ObjectBuilder struct {
	members []Member
	index   map[string]int
}

func NewObjectBuilder(capacity int) *ObjectBuilder {
	return &ObjectBuilder{
		members: make([]Member, 0, capacity),
		index:   make(map[string]int, capacity),
	}
}

func (b *ObjectBuilder) Set(key string, v Value) {
	if i, ok := b.index[key]; ok {
		b.members[i].Value = v
		return
	}
	b.index[key] = len(b.members)
	b.members = append(b.members, Member{Key: key, Value: v})
}

// SetIfAbsent only inserts keys not present yet and reports whether it did.
func (b *ObjectBuilder) SetIfAbsent(key string, v Value) bool {
	if _, ok := b.index[key]; ok {
		return false
	}
	b.Set(key, v)
	return true
}

func (b *ObjectBuilder) Has(key string) bool {
	_, ok := b.index[key]
	return ok
}

func (b *ObjectBuilder) Len() int { return len(b.members) }

// Build returns the Object. The builder must not be used afterwards.
func (b *ObjectBuilder) Build() Value {
	members := b.members
	if members == nil {
		members = []Member{}
	}
	b.members, b.index = nil, nil
	return Value{kind: Object, members: members}
}

// NewObject builds an Object from members, applying duplicate-key rules.
func NewObject(members ...Member) Value {
	b := NewObjectBuilder(len(members))
	for _, m := range members {
		b.Set(m.Key, m.Value)
	}
	return b.Build()
}
