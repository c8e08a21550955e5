package ingest

import (
	"sort"

	"riso-reel/internal/metadata"
)

// Settings is the reconstruction setup agreed by the markers of a scan set.
type Settings struct {
	Rows               int
	Cols               int
	FPS                *float64
	TotalPages         int
	VideoHash          *string
	OriginalResolution *metadata.Resolution
	// TotalFrames sums the frame counts of every page with a marker.
	TotalFrames int
	// PageOrder lists the marker page numbers in ascending order.
	PageOrder []int
}

// HasMetadata reports whether any page carried a marker.
func HasMetadata(pages []Page) bool {
	for _, p := range pages {
		if p.Findings.Metadata != nil {
			return true
		}
	}
	return false
}

// CombinedSettings merges the markers found on pages. The first page with
// a marker supplies the shared fields. ok is false when no page had one.
func CombinedSettings(pages []Page) (Settings, bool) {
	var found []metadata.SheetMetadata
	for _, p := range pages {
		if p.Findings.Metadata != nil {
			found = append(found, *p.Findings.Metadata)
		}
	}
	if len(found) == 0 {
		return Settings{}, false
	}

	first := found[0]
	s := Settings{
		Rows:               first.Rows,
		Cols:               first.Cols,
		FPS:                first.FPS,
		TotalPages:         first.TotalPages,
		VideoHash:          first.VideoHash,
		OriginalResolution: first.OriginalResolution,
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].PageNumber < found[j].PageNumber })
	s.PageOrder = make([]int, 0, len(found))
	for _, m := range found {
		s.TotalFrames += m.FrameCount
		s.PageOrder = append(s.PageOrder, m.PageNumber)
	}
	return s, true
}
