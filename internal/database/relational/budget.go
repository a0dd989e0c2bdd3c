package relational

import (
	"context"

	"github.com/shirou/gopsutil/v4/mem"
)

// MemoryBudgetMB returns share of physical memory in MB, clamped to
// [minMB, maxMB]. It returns minMB when memory cannot be read.
func MemoryBudgetMB(ctx context.Context, share float64, minMB, maxMB int) int {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil || vm.Total == 0 {
		return minMB
	}
	mb := int(float64(vm.Total) * share / (1 << 20))
	return min(max(mb, minMB), maxMB)
}
