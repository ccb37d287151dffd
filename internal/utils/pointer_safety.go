package utils

func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

// ValueOr dereferences v, falling back to def when v is nil.
func ValueOr[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}
