package recommend

import "sort"

// Order sorts vs by source trust and then by priority. Equal keys keep the
// judge's order.
func Order(vs []Validated) {
	sort.SliceStable(vs, func(a, b int) bool {
		ta, tb := Trust(vs[a].Source), Trust(vs[b].Source)
		if ta != tb {
			return ta < tb
		}
		return vs[a].Priority < vs[b].Priority
	})
}
