package tui

import "github.com/dwizi/taskify/internal/popup"

const (
	headerHeight = 2
	footerHeight = 3
	triggerWidth = 26
	panelWidth   = 46
	panelHeight  = 10
)

type uiLayout struct {
	Width  int
	Height int

	BodyHeight int
	MainWidth  int

	Trigger popup.Rect
	Panel   popup.Rect
	// RefreshRow is the absolute row of the in-panel re-check control.
	RefreshRow int
}

// computeLayout places the status trigger at the right of the header and the
// popup panel directly below it. Regions are in terminal cells. The trigger
// owns the header border under the chip so it touches the panel and the
// pointer never passes through a cell that is in neither region.
func computeLayout(width, height int, popupOpen bool) uiLayout {
	if width < 60 {
		width = 60
	}
	if height < 16 {
		height = 16
	}

	layout := uiLayout{
		Width:      width,
		Height:     height,
		BodyHeight: maxInt(6, height-headerHeight-footerHeight),
		MainWidth:  width,
	}
	layout.Trigger = popup.Rect{X: width - 1 - triggerWidth, Y: 0, Width: triggerWidth, Height: headerHeight}
	layout.Panel = popup.Rect{X: width - panelWidth, Y: headerHeight, Width: panelWidth, Height: minInt(panelHeight, layout.BodyHeight)}
	layout.RefreshRow = layout.Panel.Y + layout.Panel.Height - 2
	if popupOpen {
		layout.MainWidth = maxInt(20, width-panelWidth-1)
	}
	return layout
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
