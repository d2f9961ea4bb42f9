package chart

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"finsight-backend/config"
	"finsight-backend/internal/apperr"
	"finsight-backend/internal/model"
)

// Renderer turns chart descriptions into base64 PNG data URIs.
type Renderer interface {
	// Render returns the data URI, or false when the chart cannot be drawn.
	Render(desc model.ChartDescription) (string, bool)
	// RenderAll keeps input order and skips descriptions that fail.
	RenderAll(descs []model.ChartDescription) []string
}

type chartRenderer struct {
	size canvasSize
}

func NewChartRenderer(cfg *config.Config) Renderer {
	size := canvasSize{Width: cfg.Chart.Width, Height: cfg.Chart.Height, DPI: cfg.Chart.DPI}
	if size.Width <= 0 {
		size.Width = 768
	}
	if size.Height <= 0 {
		size.Height = 480
	}
	if size.DPI <= 0 {
		size.DPI = 96
	}
	return &chartRenderer{size: size}
}

func (r *chartRenderer) Render(desc model.ChartDescription) (uri string, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("chart_type", string(desc.Kind)).Msg("Chart rendering panicked")
			uri, ok = "", false
		}
	}()

	c, err := r.build(desc)
	if err == nil {
		uri, err = encodePNG(c)
	}
	if err != nil {
		log.Warn().Err(fmt.Errorf("%w: %v", apperr.ErrRenderFailure, err)).
			Str("chart_type", string(desc.Kind)).
			Str("title", desc.Title).
			Int("rows", len(desc.Rows)).
			Msg("Skipping chart")
		return "", false
	}
	return uri, true
}

func (r *chartRenderer) RenderAll(descs []model.ChartDescription) []string {
	images := make([]string, 0, len(descs))
	for _, desc := range descs {
		if uri, ok := r.Render(desc); ok {
			images = append(images, uri)
		}
	}
	return images
}

func (r *chartRenderer) build(desc model.ChartDescription) (renderable, error) {
	switch desc.Kind {
	case model.ChartPie:
		p, err := planPie(desc)
		if err != nil {
			return nil, err
		}
		return drawPie(desc.Title, p, r.size), nil
	case model.ChartScatter:
		p, err := planScatter(desc)
		if err != nil {
			return nil, err
		}
		return drawScatter(desc.Title, p, r.size), nil
	case model.ChartBox:
		p, err := planBox(desc)
		if err != nil {
			return nil, err
		}
		return drawBox(desc.Title, p, r.size), nil
	case model.ChartWaterfall:
		p, err := planWaterfall(desc)
		if err != nil {
			return nil, err
		}
		return drawWaterfall(desc.Title, p, r.size), nil
	case model.ChartStackedBar:
		p, ok, err := planStacked(desc)
		if err != nil {
			return nil, err
		}
		if ok {
			return drawStacked(desc.Title, p, r.size), nil
		}
		// nothing to stack, draw it as a plain bar chart
		desc.Kind = model.ChartBar
	}

	p, err := planCategory(desc)
	if err != nil {
		return nil, err
	}
	return drawCategory(desc.Title, p, r.size), nil
}
