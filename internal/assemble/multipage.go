package assemble

import (
	"image"
	"sort"
)

// MultiPage collects frames page by page and checks the page set is unbroken.
type MultiPage struct {
	pages map[int][]*image.RGBA
}

// NewMultiPage creates an empty page collector.
func NewMultiPage() *MultiPage {
	return &MultiPage{pages: make(map[int][]*image.RGBA)}
}

// AddPage stores the frames of one page and returns its page number. A nil
// page number takes the next number after the highest seen so far. Adding a
// page number twice replaces the earlier frames.
func (m *MultiPage) AddPage(frames []*image.RGBA, page *int) int {
	n := 1
	if page != nil {
		n = *page
	} else if nums := m.PageNumbers(); len(nums) > 0 {
		n = nums[len(nums)-1] + 1
	}
	m.pages[n] = append([]*image.RGBA(nil), frames...)
	return n
}

// PageNumbers returns the stored page numbers in ascending order.
func (m *MultiPage) PageNumbers() []int {
	nums := make([]int, 0, len(m.pages))
	for n := range m.pages {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// PageCount is the number of stored pages.
func (m *MultiPage) PageCount() int {
	return len(m.pages)
}

// FrameCount is the number of frames across all pages.
func (m *MultiPage) FrameCount() int {
	total := 0
	for _, frames := range m.pages {
		total += len(frames)
	}
	return total
}

// ValidateContinuity reports whether the stored page numbers form one run
// from the lowest to the highest, and which numbers are missing from it.
func (m *MultiPage) ValidateContinuity() (bool, []int) {
	nums := m.PageNumbers()
	if len(nums) == 0 {
		return true, nil
	}
	var missing []int
	for n := nums[0]; n <= nums[len(nums)-1]; n++ {
		if _, ok := m.pages[n]; !ok {
			missing = append(missing, n)
		}
	}
	return len(missing) == 0, missing
}

// Frames concatenates all pages in page number order.
func (m *MultiPage) Frames() []*image.RGBA {
	out := make([]*image.RGBA, 0, m.FrameCount())
	for _, n := range m.PageNumbers() {
		out = append(out, m.pages[n]...)
	}
	return out
}

// Clear drops every stored page.
func (m *MultiPage) Clear() {
	m.pages = make(map[int][]*image.RGBA)
}
