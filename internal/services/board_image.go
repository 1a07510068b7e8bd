package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ecofest/ecobingo/internal/models"
)

var (
	fontOnce     sync.Once
	parsedGoFont *opentype.Font
	parsedGoErr  error
)

// RenderBoardPNG renders a shareable snapshot of a player's board: the 4x4
// grid with completed cells highlighted, plus score and bingo count in the
// header.
func RenderBoardPNG(g models.BingoGame, items []models.BingoItem, username string) ([]byte, error) {
	const width = 1200
	const height = 630
	const padding = 40
	const headerHeight = 80
	const borderWidth = 2
	const cellPadding = 10

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{0xF4, 0xF9, 0xF4, 0xFF}}, image.Point{}, draw.Src)

	headerFace, err := newFontFace(32)
	if err != nil {
		return nil, err
	}
	defer func() { _ = headerFace.Close() }()

	bodyFace, err := newFontFace(18)
	if err != nil {
		return nil, err
	}
	defer func() { _ = bodyFace.Close() }()

	statsFace, err := newFontFace(16)
	if err != nil {
		return nil, err
	}
	defer func() { _ = statsFace.Close() }()

	title := "EcoBingo"
	if username != "" {
		title = fmt.Sprintf("EcoBingo - %s", username)
	}
	statsLine := fmt.Sprintf("%d points - %d/%d actions - %s",
		g.TotalPoints, len(g.CompletedItems), models.TotalSquares, pluralizeBingo(len(g.BingosAchieved)))

	drawText(img, headerFace, padding, 44, title, color.RGBA{0x1B, 0x4D, 0x3E, 0xFF})
	drawText(img, statsFace, padding, 70, statsLine, color.RGBA{0x6B, 0x6B, 0x6B, 0xFF})

	gridAvailableWidth := width - padding*2
	gridAvailableHeight := height - headerHeight - padding*2
	cellSize := min(gridAvailableWidth/models.BoardSize, gridAvailableHeight/models.BoardSize)
	gridWidth := cellSize * models.BoardSize
	gridLeft := (width - gridWidth) / 2
	gridTop := headerHeight + padding

	itemByID := map[string]models.BingoItem{}
	for _, item := range items {
		itemByID[item.ID.String()] = item
	}
	textByPos := map[int]string{}
	for _, entry := range g.Board {
		if item, ok := itemByID[entry.ItemID.String()]; ok {
			textByPos[entry.Position] = item.Text
		}
	}
	completedPositions := g.CompletedPositions()

	for row := 0; row < models.BoardSize; row++ {
		for col := 0; col < models.BoardSize; col++ {
			pos := row*models.BoardSize + col
			rect := image.Rect(
				gridLeft+col*cellSize,
				gridTop+row*cellSize,
				gridLeft+(col+1)*cellSize,
				gridTop+(row+1)*cellSize,
			)

			bg := color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
			textColor := color.RGBA{0x2D, 0x2D, 0x2D, 0xFF}
			if completedPositions[pos] {
				bg = color.RGBA{0xD7, 0xF3, 0xE3, 0xFF}
				textColor = color.RGBA{0x1B, 0x4D, 0x3E, 0xFF}
			}

			draw.Draw(img, rect, &image.Uniform{C: bg}, image.Point{}, draw.Src)
			drawBorder(img, rect, borderWidth, color.RGBA{0x3A, 0x3A, 0x3A, 0xFF})

			content := textByPos[pos]
			if strings.TrimSpace(content) == "" {
				continue
			}

			textRect := image.Rect(
				rect.Min.X+cellPadding,
				rect.Min.Y+cellPadding,
				rect.Max.X-cellPadding,
				rect.Max.Y-cellPadding,
			)
			lines := wrapText(bodyFace, content, textRect.Dx())
			lines = clampLines(bodyFace, lines, 3, textRect.Dx())
			drawWrappedText(img, bodyFace, textRect, lines, textColor)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func pluralizeBingo(n int) string {
	if n == 1 {
		return "1 bingo"
	}
	return fmt.Sprintf("%d bingos", n)
}

func newFontFace(size float64) (*opentype.Face, error) {
	fontOnce.Do(func() {
		parsedGoFont, parsedGoErr = opentype.Parse(goregular.TTF)
	})
	if parsedGoErr != nil {
		return nil, fmt.Errorf("parse font: %w", parsedGoErr)
	}
	face, err := opentype.NewFace(parsedGoFont, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("load font face: %w", err)
	}
	otFace, ok := face.(*opentype.Face)
	if !ok {
		return nil, fmt.Errorf("load font face: unexpected type")
	}
	return otFace, nil
}

func drawText(img draw.Image, face font.Face, x, y int, text string, clr color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(clr),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func drawBorder(img draw.Image, rect image.Rectangle, width int, clr color.Color) {
	border := image.NewUniform(clr)
	draw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+width), border, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(rect.Min.X, rect.Max.Y-width, rect.Max.X, rect.Max.Y), border, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+width, rect.Max.Y), border, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(rect.Max.X-width, rect.Min.Y, rect.Max.X, rect.Max.Y), border, image.Point{}, draw.Src)
}

func wrapText(face font.Face, text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}
	}

	d := &font.Drawer{Face: face}
	lines := []string{}
	current := words[0]

	for _, word := range words[1:] {
		test := current + " " + word
		if d.MeasureString(test).Ceil() <= maxWidth {
			current = test
			continue
		}
		lines = append(lines, current)
		current = word
	}
	lines = append(lines, current)
	return lines
}

func clampLines(face font.Face, lines []string, maxLines int, maxWidth int) []string {
	if len(lines) <= maxLines {
		return lines
	}
	lines = lines[:maxLines]
	last := lines[maxLines-1]
	ellipsis := "..."
	d := &font.Drawer{Face: face}

	runes := []rune(last)
	for d.MeasureString(string(runes)+ellipsis).Ceil() > maxWidth && len(runes) > 0 {
		runes = runes[:len(runes)-1]
	}
	lines[maxLines-1] = strings.TrimSpace(string(runes)) + ellipsis
	return lines
}

func drawWrappedText(img draw.Image, face font.Face, rect image.Rectangle, lines []string, clr color.Color) {
	if len(lines) == 0 {
		return
	}
	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()
	textHeight := lineHeight * len(lines)
	startY := rect.Min.Y + (rect.Dy()-textHeight)/2 + metrics.Ascent.Ceil()

	for i, line := range lines {
		lineWidth := font.MeasureString(face, line).Ceil()
		x := rect.Min.X + (rect.Dx()-lineWidth)/2
		y := startY + i*lineHeight
		drawText(img, face, x, y, line, clr)
	}
}
