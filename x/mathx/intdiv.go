// Package mathx holds the integer helpers shared by the timing arithmetic.
package mathx

type unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// CeilDiv returns ceil(a/b). b == 0 yields 0.
func CeilDiv[T unsigned](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// RoundDiv returns a/b rounded half up. b == 0 yields 0.
func RoundDiv[T unsigned](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b/2) / b
}
