package arena

import "math"

const (
	slackFirstGrow     = 4
	slackConstantGrow  = 16
	slackShrinkBytes   = 16384
	slackShrinkElement = 64
)

// DefaultCalculateSlackReserve returns the capacity to allocate when a
// container reserves room for num elements.
func DefaultCalculateSlackReserve(num int, elemSize uintptr) int {
	return num
}

// DefaultCalculateSlackShrink returns the capacity a container holding num
// elements in numAllocated slots should shrink to. It only shrinks once the
// slack is large both in bytes or proportion and in element count.
func DefaultCalculateSlackShrink(num, numAllocated int, elemSize uintptr) int {
	slack := numAllocated - num
	tooManyBytes := uint64(slack)*uint64(elemSize) >= slackShrinkBytes
	tooManyElements := 3*num < 2*numAllocated
	if (tooManyBytes || tooManyElements) && (slack > slackShrinkElement || num == 0) {
		return num
	}
	return numAllocated
}

// DefaultCalculateSlackGrow returns the capacity a container should grow to
// when it needs room for num elements and has numAllocated slots.
func DefaultCalculateSlackGrow(num, numAllocated int, elemSize uintptr) int {
	grow := slackFirstGrow
	if numAllocated != 0 || num > grow {
		if num > (math.MaxInt-slackConstantGrow)/2 {
			return math.MaxInt
		}
		grow = num + 3*num/8 + slackConstantGrow
	}
	if num > grow {
		return math.MaxInt
	}
	return grow
}
