package host

// Fields is a typed property bag exposed by entities and voxel properties.
// The second return value is false when the field does not exist or has another type.
type Fields interface {
	Bool(name string) (bool, bool)
	Int(name string) (int64, bool)
}

// TryBool returns the first present bool among names, in order, along with the matched name.
func TryBool(f Fields, names ...string) (value bool, name string, ok bool) {
	if f == nil {
		return false, "", false
	}
	for _, n := range names {
		if v, found := f.Bool(n); found {
			return v, n, true
		}
	}
	return false, "", false
}

// TryInt returns the first present integer among names, in order, along with the matched name.
func TryInt(f Fields, names ...string) (value int64, name string, ok bool) {
	if f == nil {
		return 0, "", false
	}
	for _, n := range names {
		if v, found := f.Int(n); found {
			return v, n, true
		}
	}
	return 0, "", false
}

// MapFields is a Fields implementation over a plain map.
// Values of type bool answer Bool; int, int32, int64 and uint32 answer Int.
type MapFields map[string]any

func (m MapFields) Bool(name string) (bool, bool) {
	v, ok := m[name].(bool)
	return v, ok
}

func (m MapFields) Int(name string) (int64, bool) {
	switch v := m[name].(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint32:
		return int64(v), true
	}
	return 0, false
}
