package arena

import (
	"unsafe"
)

// Alloc returns a pointer to a zeroed T stored in the scratch region of s.
// T must not contain pointers to memory outside the arena: the garbage
// collector does not scan arena memory.
func Alloc[T any](s *Scratch) (*T, error) {
	var zero T
	b, err := s.Alloc(int(unsafe.Sizeof(zero)), int(unsafe.Alignof(zero)), 1)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return new(T), nil
	}
	return (*T)(unsafe.Pointer(unsafe.SliceData(b))), nil
}

// AllocSlice allocates a zeroed slice of n elements of type T in the
// scratch region of s. The same pointer restriction as Alloc applies.
// Returns nil if n <= 0.
func AllocSlice[T any](s *Scratch, n int) ([]T, error) {
	if n <= 0 {
		return nil, nil
	}
	var zero T
	b, err := s.Alloc(int(unsafe.Sizeof(zero)), int(unsafe.Alignof(zero)), n)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return make([]T, n), nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n), nil
}

// CopyString copies str into the scratch region of s and returns a string
// backed by arena memory. The result must not be used after the memory is
// rewound, reset or released.
func (s *Scratch) CopyString(str string) (string, error) {
	if str == "" {
		return "", nil
	}
	b, err := s.AllocBytes(len(str))
	if err != nil {
		return "", err
	}
	copy(b, str)
	return unsafe.String(unsafe.SliceData(b), len(b)), nil
}
