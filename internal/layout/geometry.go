package layout

import "tilewm/internal/platform"

// ComputeMasterStack computes master-stack geometry for the given screen
// subsequence (spec section 4.2.3). bounds must already be inset by Gap on
// each side. The returned slice is parallel to records.
func ComputeMasterStack(bounds platform.Rect, records []Record) []platform.Rect {
	n := len(records)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return []platform.Rect{bounds}
	}

	masterMin := desiredMinWidth(records[0].AppName)
	masterWidth := bounds.Width / 2
	if masterWidth < masterMin {
		masterWidth = masterMin
	}
	if maxWidth := bounds.Width - StackMin - Gap; masterWidth > maxWidth {
		masterWidth = maxWidth
	}

	out := make([]platform.Rect, n)
	out[0] = platform.Rect{X: bounds.X, Y: bounds.Y, Width: masterWidth, Height: bounds.Height}

	stackX := bounds.X + masterWidth + Gap
	stackWidth := bounds.Width - masterWidth - Gap
	stackCount := n - 1
	cellHeight := (bounds.Height - Gap*float64(stackCount-1)) / float64(stackCount)

	for i := 0; i < stackCount; i++ {
		out[i+1] = platform.Rect{
			X:      stackX,
			Y:      bounds.Y + float64(i)*(cellHeight+Gap),
			Width:  stackWidth,
			Height: cellHeight,
		}
	}
	return out
}
