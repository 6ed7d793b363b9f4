package pterodactyl

import (
	"context"
	"fmt"

	"github.com/gantryhq/gantry/pkg/driver"
	"github.com/gantryhq/gantry/pkg/paging"
)

// FreeAllocations pages through the allocations of a node and collects up to
// count of them that the panel reports as unassigned and that are not in
// used. Paging stops as soon as enough have been found.
func (b *Backend) FreeAllocations(ctx context.Context, used []driver.Address, nodeID uint32, count int) []driver.Allocation {
	if count <= 0 {
		return nil
	}

	free := make([]driver.Allocation, 0, count)
	target := fmt.Sprintf("nodes/%d/allocations", nodeID)
	paging.Walk(ctx, listPages[allocation](b, target), func(page paging.Page[allocation]) bool {
		for _, a := range page.Items {
			if a.Assigned || isUsed(used, a) {
				continue
			}
			free = append(free, a.canonical())
			if len(free) >= count {
				return true
			}
		}
		return false
	})
	return free
}

func isUsed(used []driver.Address, a allocation) bool {
	for _, u := range used {
		if u.IP == a.IP && u.Port == a.Port {
			return true
		}
	}
	return false
}
