package grid

import "math/rand"

// NearestPath runs a breadth-first search from start and returns the
// shortest path (start included) to the nearest coordinate for which
// goal returns true, or nil if no such cell exists. Neighbour expansion
// order is shuffled with rng so equidistant goals are tie-broken
// randomly rather than in a fixed sweep order.
func NearestPath(d Dims, start Coord, rng *rand.Rand, goal func(Coord) bool) []Coord {
	if goal(start) {
		return []Coord{start}
	}

	prev := make(map[Coord]Coord, d.Count())
	prev[start] = start
	queue := []Coord{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		next := cur.Neighbors(d)
		rng.Shuffle(len(next), func(i, j int) { next[i], next[j] = next[j], next[i] })
		for _, n := range next {
			if _, seen := prev[n]; seen {
				continue
			}
			prev[n] = cur
			if goal(n) {
				return rebuild(prev, start, n)
			}
			queue = append(queue, n)
		}
	}
	return nil
}

func rebuild(prev map[Coord]Coord, start, end Coord) []Coord {
	var rev []Coord
	for c := end; c != start; c = prev[c] {
		rev = append(rev, c)
	}
	rev = append(rev, start)
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}
