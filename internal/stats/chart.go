package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	defaultChartHeight = 8
	defaultChartWidth  = 60
	minChartWidth      = 10
	chartAxis          = " │ "
	dateLayout         = "01/02"
)

var (
	askedLineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	passLineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
)

type chartLine struct {
	name   string
	values []float64
	style  lipgloss.Style
	// dash is the on/off run length in dots; zero draws a solid line.
	dash int
}

func (l chartLine) plots(x int) bool {
	if l.dash <= 0 {
		return true
	}
	return x%(2*l.dash) < l.dash
}

// ChartWidthFor returns the plot width that fits in totalWidth beside an axis
// label of labelWidth cells.
func ChartWidthFor(totalWidth, labelWidth int) int {
	if totalWidth <= 0 {
		return defaultChartWidth
	}
	width := totalWidth - labelWidth - len([]rune(chartAxis))
	if width < minChartWidth {
		width = minChartWidth
	}
	return width
}

// RenderActivityChart draws daily asked and passed counts as braille lines on
// a shared scale starting at zero. Width 0 fits the terminal.
func RenderActivityChart(w io.Writer, act Activity, width, height int) error {
	if len(act.Asked) == 0 {
		return nil
	}
	lines := []chartLine{
		{name: "asked", values: MovingAverage(act.Asked, act.Smoothing), style: askedLineStyle},
		{name: "passed", values: MovingAverage(act.Pass, act.Smoothing), style: passLineStyle, dash: 2},
	}

	top := 0.0
	for _, l := range lines {
		for _, v := range l.values {
			top = math.Max(top, v)
		}
	}
	if top == 0 {
		top = 1
	}
	labels := []string{formatCount(top), formatCount(top / 2), "0"}
	labelWidth := 0
	for _, label := range labels {
		labelWidth = max(labelWidth, len(label))
	}

	if height <= 0 {
		height = defaultChartHeight
	}
	if width <= 0 {
		width = ChartWidthFor(TerminalWidth(), labelWidth)
	}

	grids := make([][][]uint8, len(lines))
	for i, l := range lines {
		grid := newGrid(height, width)
		prevX, prevY := -1, -1
		for x, v := range resample(l.values, width) {
			px, py := x*2, scaleRow(v, top, height*4)
			plot := func(dx, dy int) {
				if l.plots(dx) {
					setDot(grid, dx, dy)
				}
			}
			if prevX < 0 {
				plot(px, py)
			} else {
				drawLine(prevX, prevY, px, py, plot)
			}
			prevX, prevY = px, py
		}
		grids[i] = grid
	}

	rowLabels := make([]string, height)
	rowLabels[0] = labels[0]
	if height > 2 {
		rowLabels[height/2] = labels[1]
	}
	if height > 1 {
		rowLabels[height-1] = labels[2]
	}

	out := make([]string, 0, height+3)
	for y := 0; y < height; y++ {
		var row strings.Builder
		fmt.Fprintf(&row, "%*s%s", labelWidth, rowLabels[y], chartAxis)
		for x := 0; x < width; x++ {
			mask, owner := mergeCell(grids, x, y)
			ch := string(rune(0x2800 + int(mask)))
			if owner >= 0 {
				ch = lines[owner].style.Render(ch)
			}
			row.WriteString(ch)
		}
		out = append(out, row.String())
	}

	end := act.Start.AddDate(0, 0, len(act.Asked)-1)
	first, last := act.Start.Format(dateLayout), end.Format(dateLayout)
	gap := max(1, width-len(first)-len(last))
	out = append(out, strings.Repeat(" ", labelWidth+len([]rune(chartAxis)))+first+strings.Repeat(" ", gap)+last)

	legend := make([]string, 0, len(lines))
	for _, l := range lines {
		kind := "solid"
		if l.dash > 0 {
			kind = "dashed"
		}
		legend = append(legend, l.style.Render(fmt.Sprintf("%c %s (%s)", rune(0x2800+0x01), l.name, kind)))
	}
	out = append(out, "Legend: "+strings.Join(legend, "  "), "")

	for _, line := range out {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func formatCount(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

func newGrid(height, width int) [][]uint8 {
	grid := make([][]uint8, height)
	for y := range grid {
		grid[y] = make([]uint8, width)
	}
	return grid
}

// mergeCell ORs the dots of every line in a cell and reports the first line
// that drew there, or -1.
func mergeCell(grids [][][]uint8, x, y int) (uint8, int) {
	var mask uint8
	owner := -1
	for i, grid := range grids {
		if y >= len(grid) || x >= len(grid[y]) || grid[y][x] == 0 {
			continue
		}
		if owner < 0 {
			owner = i
		}
		mask |= grid[y][x]
	}
	return mask, owner
}

// scaleRow maps v in [0, top] to a dot row, zero at the bottom.
func scaleRow(v, top float64, rows int) int {
	if rows <= 1 {
		return 0
	}
	row := int(math.Round((1 - v/top) * float64(rows-1)))
	return max(0, min(row, rows-1))
}

// resample stretches or averages values to exactly width points.
func resample(values []float64, width int) []float64 {
	if len(values) == 0 || width <= 0 {
		return nil
	}
	out := make([]float64, width)
	switch {
	case len(values) == width:
		copy(out, values)
	case len(values) > width:
		for i := range out {
			start := i * len(values) / width
			end := max(start+1, (i+1)*len(values)/width)
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
	case len(values) == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
	default:
		for i := range out {
			pos := float64(i) * float64(len(values)-1) / float64(width-1)
			idx := int(pos)
			if idx >= len(values)-1 {
				out[i] = values[len(values)-1]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

// drawLine walks the Bresenham line between two dot positions.
func drawLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// setDot lights one braille dot; cells are 2 dots wide and 4 tall.
func setDot(grid [][]uint8, x, y int) {
	if x < 0 || y < 0 || y/4 >= len(grid) || x/2 >= len(grid[y/4]) {
		return
	}
	grid[y/4][x/2] |= dotBits[x%2][y%4]
}

var dotBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
