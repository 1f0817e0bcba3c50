package camera

import "math"

const aspectTolerance = 0.05

// OptimalSize picks the size whose aspect ratio is nearest to target. Ties
// keep the earlier entry.
func OptimalSize(sizes []Size, target Size) Size {
	if len(sizes) == 0 {
		return target
	}
	if target.Height == 0 {
		return Largest(sizes)
	}

	want := target.Ratio()
	best := sizes[0]
	minDiff := math.MaxFloat64
	for _, s := range sizes {
		diff := math.Abs(s.Ratio() - want)
		if diff < minDiff {
			best = s
			minDiff = diff
		}
	}
	return best
}

func Largest(sizes []Size) Size {
	var best Size
	for _, s := range sizes {
		if s.Area() > best.Area() {
			best = s
		}
	}
	return best
}

// StillTargetFor chooses the still-capture output. RAW sensors capture at
// their largest RAW size; otherwise the largest encoded size within the
// aspect tolerance of the preview wins, falling back to the largest overall.
func StillTargetFor(d Descriptor, preview Size) *StillTarget {
	if d.Caps.RAW {
		if sizes := d.StillSizes[FormatRAW]; len(sizes) > 0 {
			return &StillTarget{Format: FormatRAW, Size: Largest(sizes)}
		}
	}

	sizes := d.StillSizes[FormatJPEG]
	if len(sizes) == 0 {
		return nil
	}
	return &StillTarget{Format: FormatJPEG, Size: nearestAspect(sizes, preview)}
}

func nearestAspect(sizes []Size, preview Size) Size {
	want := preview.Ratio()
	var (
		best  Size
		found bool
	)
	for _, s := range sizes {
		if math.Abs(s.Ratio()-want) > aspectTolerance {
			continue
		}
		if !found || s.Area() > best.Area() {
			best = s
			found = true
		}
	}
	if !found {
		return Largest(sizes)
	}
	return best
}
