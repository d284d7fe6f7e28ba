package bias

import(
	"fmt"

	"github.com/openastro/masterbias/pkg/fits"
)

// A GroupKey is the derived signature shared by a group's members.
// Temperature is the group's mean, meaningful only when temperature
// grouping was active.
type GroupKey struct {
	Width, Height, Binning int
	Temperature            float64
	HasTemperature         bool
}

func (k GroupKey)String() string {
	s := fmt.Sprintf("%dx%d bin %d", k.Width, k.Height, k.Binning)
	if k.HasTemperature {
		s += fmt.Sprintf(" near %.1fC", k.Temperature)
	}
	return s
}

// A Group is a set of frames compatible for combination. Member order
// is discovery order; it matters only for key display, never for the
// combination math.
type Group struct {
	Key    GroupKey
	Frames []*fits.Frame
}

func (g *Group)MeanTemperature() float64 {
	total := 0.0
	for _, fr := range g.Frames {
		total += fr.Temperature
	}
	return total / float64(len(g.Frames))
}

func (g *Group)MeanExposure() float64 {
	total := 0.0
	for _, fr := range g.Frames {
		total += fr.ExposureSec
	}
	return total / float64(len(g.Frames))
}

// MostCommonFilter is the filter name shared by the most members.
// Bias frames rarely care, but the value feeds name templates and the
// output header.
func (g *Group)MostCommonFilter() string { return mostCommonFilter(g.Frames) }

func mostCommonFilter(frames []*fits.Frame) string {
	counts := map[string]int{}
	best, bestCount := fits.UnknownFilter, 0
	for _, fr := range frames {
		counts[fr.FilterName]++
		if counts[fr.FilterName] > bestCount {
			best, bestCount = fr.FilterName, counts[fr.FilterName]
		}
	}
	return best
}

// PartitionFrames splits the candidate frames into combination groups
// and the groups dropped for being under the minimum size.
//
// Frames are always bucketed by exact (width, height, binning) first,
// whether or not size grouping was requested, so frames of mismatched
// geometry are never merged into one group. With temperature grouping
// on, each size bucket is sub-clustered greedily in input order: a
// frame joins the first open cluster whose running mean temperature is
// within the bandwidth, otherwise it opens a new cluster. The greedy
// pass is order-dependent near cluster boundaries; that is documented
// behavior, kept deliberately stable across releases.
func PartitionFrames(frames []*fits.Frame, cfg GroupingConfig) (groups, dropped []*Group) {
	sized := bucketBySize(frames)

	var all []*Group
	if cfg.ByTemperature {
		for _, g := range sized {
			all = append(all, clusterByTemperature(g, cfg.TemperatureBandwidth)...)
		}
	} else {
		all = sized
	}

	for _, g := range all {
		if len(g.Frames) < cfg.MinimumGroupSize {
			dropped = append(dropped, g)
		} else {
			groups = append(groups, g)
		}
	}
	return groups, dropped
}

func bucketBySize(frames []*fits.Frame) []*Group {
	var order []*Group
	byKey := map[GroupKey]*Group{}

	for _, fr := range frames {
		key := GroupKey{Width: fr.Width, Height: fr.Height, Binning: fr.Binning}
		g, exists := byKey[key]
		if !exists {
			g = &Group{Key: key}
			byKey[key] = g
			order = append(order, g)
		}
		g.Frames = append(g.Frames, fr)
	}
	return order
}

// tempCluster tracks a running sum so each admission test compares
// against the cluster mean at that moment.
type tempCluster struct {
	frames []*fits.Frame
	sum    float64
}

func (c *tempCluster)mean() float64 { return c.sum / float64(len(c.frames)) }

func clusterByTemperature(g *Group, bandwidth float64) []*Group {
	var clusters []*tempCluster

frames:
	for _, fr := range g.Frames {
		for _, c := range clusters {
			if fr.Temperature >= c.mean()-bandwidth && fr.Temperature <= c.mean()+bandwidth {
				c.frames = append(c.frames, fr)
				c.sum += fr.Temperature
				continue frames
			}
		}
		clusters = append(clusters, &tempCluster{frames: []*fits.Frame{fr}, sum: fr.Temperature})
	}

	out := make([]*Group, 0, len(clusters))
	for _, c := range clusters {
		key := g.Key
		key.Temperature = c.mean()
		key.HasTemperature = true
		out = append(out, &Group{Key: key, Frames: c.frames})
	}
	return out
}
