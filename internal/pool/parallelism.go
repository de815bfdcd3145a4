package pool

import "math"

// Parallelism is a fraction of the process-wide worker pool a caller is
// willing to use for one operation, in [0, 1]. Zero means "run
// sequentially in the calling goroutine"; one means "use every worker".
type Parallelism float64

// Clamp returns p restricted to [0, 1].
func (p Parallelism) Clamp() Parallelism {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// IsZero reports whether p requests no background work at all.
func (p Parallelism) IsZero() bool {
	return p.Clamp() == 0
}

// Cores maps p onto a whole number of workers out of maxWorkers, rounding
// up so that any nonzero p reserves at least one worker.
func (p Parallelism) Cores(maxWorkers int) int {
	p = p.Clamp()
	if p == 0 || maxWorkers <= 0 {
		return 1
	}
	cores := int(math.Ceil(float64(p) * float64(maxWorkers)))
	if cores < 1 {
		cores = 1
	}
	if cores > maxWorkers {
		cores = maxWorkers
	}
	return cores
}
