package geo

import (
	"math"
	"sort"
)

// Point is one located facility entered into the index.
type Point struct {
	ID  string
	Lat float64
	Lon float64
}

// Match is a point returned by a query, with its great-circle distance from
// the query origin.
type Match struct {
	Point
	DistanceKm float64
}

// kmPerDegreeLat approximates one degree of latitude. Used only for cell
// sizing and ring bounds; reported distances always use HaversineKm.
const kmPerDegreeLat = 111.0

// gridLevelDegrees are the cell sizes of the multi-resolution grid, coarse
// to fine. A query scans the level whose cells best match its radius.
var gridLevelDegrees = []float64{8.0, 2.0, 0.5}

type cellKey struct {
	x, y int
}

type gridLevel struct {
	cellDeg float64
	cells   map[cellKey][]int // indexes into Index.points
}

// Index answers nearest and radius queries over a fixed set of points.
// It is built once per snapshot and never mutated, so concurrent readers
// need no locking.
type Index struct {
	points []Point
	levels []gridLevel
}

// NewIndex builds the grid from the given points. Unlocated facilities must
// be filtered out by the caller.
func NewIndex(points []Point) *Index {
	idx := &Index{points: points}
	for _, deg := range gridLevelDegrees {
		level := gridLevel{cellDeg: deg, cells: make(map[cellKey][]int)}
		for i, p := range points {
			k := keyFor(p.Lat, p.Lon, deg)
			level.cells[k] = append(level.cells[k], i)
		}
		idx.levels = append(idx.levels, level)
	}
	return idx
}

// Len returns the number of indexed points.
func (idx *Index) Len() int { return len(idx.points) }

// WithinRadius returns all points within km of the origin, ordered by
// ascending great-circle distance.
func (idx *Index) WithinRadius(lat, lon, km float64) []Match {
	if len(idx.points) == 0 || km <= 0 {
		return nil
	}
	level := idx.levelForRadius(km)
	var matches []Match
	for _, i := range idx.candidatesInBox(level, lat, lon, km) {
		p := idx.points[i]
		d := HaversineKm(lat, lon, p.Lat, p.Lon)
		if d <= km {
			matches = append(matches, Match{Point: p, DistanceKm: d})
		}
	}
	sort.Slice(matches, func(a, b int) bool { return matches[a].DistanceKm < matches[b].DistanceKm })
	return matches
}

// Nearest returns up to k points closest to the origin, ascending by
// distance. It expands the search ring by ring so sparse regions still
// resolve without scanning the whole index.
func (idx *Index) Nearest(lat, lon float64, k int) []Match {
	if len(idx.points) == 0 || k <= 0 {
		return nil
	}
	if k > len(idx.points) {
		k = len(idx.points)
	}

	level := idx.levels[len(idx.levels)-1] // finest
	origin := keyFor(lat, lon, level.cellDeg)

	// Longitude cells shrink with latitude, so the guaranteed separation of
	// an unexplored ring is the cell size scaled by cos(lat).
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	ringKm := level.cellDeg * kmPerDegreeLat * cosLat

	seen := make(map[int]bool)
	var matches []Match
	maxRing := maxRingFor(level.cellDeg)
	for ring := 0; ring <= maxRing; ring++ {
		for _, i := range idx.ringCandidates(level, origin, ring) {
			if seen[i] {
				continue
			}
			seen[i] = true
			p := idx.points[i]
			matches = append(matches, Match{Point: p, DistanceKm: HaversineKm(lat, lon, p.Lat, p.Lon)})
		}
		if len(matches) >= k {
			sort.Slice(matches, func(a, b int) bool { return matches[a].DistanceKm < matches[b].DistanceKm })
			// Everything closer than the next ring's minimum separation is
			// final; any unexplored point lies at least this far away.
			if matches[k-1].DistanceKm <= float64(ring)*ringKm {
				return matches[:k]
			}
		}
	}
	sort.Slice(matches, func(a, b int) bool { return matches[a].DistanceKm < matches[b].DistanceKm })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// NearestDistance returns the distance to the single closest point, or -1
// when the index is empty.
func (idx *Index) NearestDistance(lat, lon float64) float64 {
	m := idx.Nearest(lat, lon, 1)
	if len(m) == 0 {
		return -1
	}
	return m[0].DistanceKm
}

// levelForRadius picks the finest level whose cells keep the candidate box
// small, falling back to the coarsest for very wide queries.
func (idx *Index) levelForRadius(km float64) gridLevel {
	for i := len(idx.levels) - 1; i > 0; i-- {
		level := idx.levels[i]
		cellsAcross := 2*km/(level.cellDeg*kmPerDegreeLat) + 1
		if cellsAcross <= 8 {
			return level
		}
	}
	return idx.levels[0]
}

// candidatesInBox gathers point indexes from all cells overlapping the
// bounding box of the radius query.
func (idx *Index) candidatesInBox(level gridLevel, lat, lon, km float64) []int {
	latDelta := km / kmPerDegreeLat
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01 // near the poles every longitude is close
	}
	lonDelta := km / (kmPerDegreeLat * cosLat)

	minKey := keyFor(lat-latDelta, lon-lonDelta, level.cellDeg)
	maxKey := keyFor(lat+latDelta, lon+lonDelta, level.cellDeg)

	var out []int
	for x := minKey.x; x <= maxKey.x; x++ {
		for y := minKey.y; y <= maxKey.y; y++ {
			out = append(out, level.cells[cellKey{x, y}]...)
		}
	}
	return out
}

// ringCandidates returns point indexes in the square ring at the given
// Chebyshev distance from the origin cell.
func (idx *Index) ringCandidates(level gridLevel, origin cellKey, ring int) []int {
	var out []int
	if ring == 0 {
		return level.cells[origin]
	}
	for x := origin.x - ring; x <= origin.x+ring; x++ {
		for y := origin.y - ring; y <= origin.y+ring; y++ {
			if abs(x-origin.x) != ring && abs(y-origin.y) != ring {
				continue
			}
			out = append(out, level.cells[cellKey{x, y}]...)
		}
	}
	return out
}

func keyFor(lat, lon, cellDeg float64) cellKey {
	return cellKey{
		x: int(math.Floor(lon / cellDeg)),
		y: int(math.Floor(lat / cellDeg)),
	}
}

// maxRingFor bounds ring expansion to the whole longitude span.
func maxRingFor(cellDeg float64) int {
	return int(360.0/cellDeg) + 1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
