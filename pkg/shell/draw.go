package shell

import (
	"fmt"
	"math"

	"github.com/cfoust/tiltrun/pkg/game"

	"github.com/gdamore/tcell/v2"
)

var (
	styleDefault  = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite)
	styleStatus   = styleDefault.Foreground(tcell.ColorAqua)
	styleScore    = styleDefault.Foreground(tcell.ColorLime).Bold(true)
	stylePlayer   = styleDefault.Foreground(tcell.ColorYellow)
	styleObstacle = styleDefault.Foreground(tcell.ColorOrangeRed)
	styleGround   = styleDefault.Foreground(tcell.ColorDarkGray)
	styleGameOver = styleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorRed).Bold(true)
	styleHint     = styleDefault.Foreground(tcell.ColorWhite)
)

const (
	PLAYER_RUNE   = '█'
	OBSTACLE_RUNE = '▓'

	MIN_COLUMNS = 20
	MIN_ROWS    = 6

	// status line, score line, ground line
	CHROME_ROWS = 3
)

// Canvas is the part of tcell.Screen the shell draws with.
type Canvas interface {
	Size() (width, height int)
	Clear()
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
	Show()
}

func drawText(canvas Canvas, x, y int, text string, style tcell.Style) {
	for i, r := range []rune(text) {
		canvas.SetContent(x+i, y, r, nil, style)
	}
}

func drawCentered(canvas Canvas, y int, text string, style tcell.Style) {
	width, _ := canvas.Size()
	x := (width - len([]rune(text))) / 2
	if x < 0 {
		x = 0
	}
	drawText(canvas, x, y, text, style)
}

// viewport maps play area coordinates onto terminal cells.
type viewport struct {
	top    int
	rows   int
	cols   int
	width  float64
	height float64
}

func (v viewport) col(x float64) int {
	return int(math.Floor(x * float64(v.cols) / v.width))
}

func (v viewport) row(y float64) int {
	return v.top + v.rows - 1 - int(math.Floor(y*float64(v.rows)/v.height))
}

func (v viewport) fill(canvas Canvas, rect game.Rect, r rune, style tcell.Style) {
	left := v.col(rect.Left)
	right := v.col(rect.Right())
	if right <= left {
		right = left + 1
	}

	top := v.row(rect.Top())
	bottom := v.row(rect.Bottom)

	for y := top; y <= bottom; y++ {
		if y < v.top || y >= v.top+v.rows {
			continue
		}
		for x := left; x < right; x++ {
			if x < 0 || x >= v.cols {
				continue
			}
			canvas.SetContent(x, y, r, nil, style)
		}
	}
}

// Draw paints a frame and the sensor status onto the canvas.
func Draw(canvas Canvas, frame game.Frame, status string) {
	canvas.Clear()
	defer canvas.Show()

	cols, rows := canvas.Size()
	if cols < MIN_COLUMNS || rows < MIN_ROWS {
		drawText(canvas, 0, 0, "SCREEN TOO SMALL", styleGameOver)
		return
	}

	drawText(canvas, 0, 0, status, styleStatus)
	drawText(canvas, 0, 1, fmt.Sprintf("Score: %d", frame.Score), styleScore)

	if frame.Width <= 0 || frame.Height <= 0 {
		return
	}

	view := viewport{
		top:    2,
		rows:   rows - CHROME_ROWS,
		cols:   cols,
		width:  frame.Width,
		height: frame.Height,
	}

	for x := 0; x < cols; x++ {
		canvas.SetContent(x, rows-1, tcell.RuneHLine, nil, styleGround)
	}

	for _, obstacle := range frame.Obstacles {
		view.fill(canvas, obstacle, OBSTACLE_RUNE, styleObstacle)
	}
	view.fill(canvas, frame.Player, PLAYER_RUNE, stylePlayer)

	if frame.GameOver {
		middle := view.top + view.rows/2
		drawCentered(canvas, middle-1, " GAME OVER ", styleGameOver)
		drawCentered(canvas, middle+1, "Press R to restart", styleHint)
	}
}
