package chart

import "github.com/wcharczuk/go-chart/v2/drawing"

var palette = []drawing.Color{
	drawing.ColorFromHex("5F2C56"),
	drawing.ColorFromHex("9A3D88"),
	drawing.ColorFromHex("D75C9C"),
	drawing.ColorFromHex("E884BE"),
	drawing.ColorFromHex("78C4D4"),
	drawing.ColorFromHex("4CAF50"),
}

var (
	colorIncrease  = drawing.ColorFromHex("4CAF50")
	colorDecrease  = drawing.ColorFromHex("D9534F")
	colorGrid      = drawing.ColorFromHex("E6E6E6")
	colorBorder    = drawing.ColorFromHex("BDBDBD")
	colorTrend     = drawing.ColorFromHex("333333")
	colorBenchmark = drawing.ColorFromHex("78C4D4").WithAlpha(96)
)

func seriesColor(i int) drawing.Color {
	return palette[i%len(palette)]
}
