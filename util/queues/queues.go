package queues

type popper[T any] interface {
	Pop() (T, bool)
}

// Drain pops every value from the queue in pop order.
func Drain[T any, Q popper[T]](queue Q) []T {
	var result []T
	for {
		val, ok := queue.Pop()
		if !ok {
			return result
		}
		result = append(result, val)
	}
}

func Push[T any](q interface{ Push(T) }, val ...T) {
	for _, v := range val {
		q.Push(v)
	}
}
