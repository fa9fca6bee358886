package render

import (
	"fmt"
	"hash/fnv"
	"html/template"
	"math"
	"strconv"
	"strings"

	"dataagent/internal/envelope"
)

// Chart geometry keeps the 8:5 aspect of the classic figure size.
const (
	chartWidth   = 640
	chartHeight  = 400
	marginLeft   = 64
	marginRight  = 16
	marginTop    = 16
	marginBottom = 56
	barFraction  = 0.4
	yTicks       = 5
)

type frame struct {
	plotW, plotH float64
	lo, hi       float64
	slot         float64
}

func newFrame(s envelope.Series) frame {
	f := frame{
		plotW: chartWidth - marginLeft - marginRight,
		plotH: chartHeight - marginTop - marginBottom,
	}
	f.lo, f.hi = 0, 0
	for _, v := range s.Data {
		f.lo = math.Min(f.lo, v)
		f.hi = math.Max(f.hi, v)
	}
	if f.hi == f.lo {
		f.hi = f.lo + 1
	}
	if n := len(s.Data); n > 0 {
		f.slot = f.plotW / float64(n)
	}
	return f
}

func (f frame) y(v float64) float64 {
	return marginTop + f.plotH*(f.hi-v)/(f.hi-f.lo)
}

func (f frame) xCenter(i int) float64 {
	return marginLeft + f.slot*(float64(i)+0.5)
}

// BarSVG draws one hatched bar per category. Each bar is barFraction of its
// slot wide.
func BarSVG(s envelope.Series) template.HTML {
	f := newFrame(s)
	id := patternID(s)
	var b strings.Builder
	openSVG(&b, "bar")
	fmt.Fprintf(&b, `<defs><pattern id="%s" patternUnits="userSpaceOnUse" width="8" height="8">`+
		`<rect width="8" height="8" fill="#ffffff"/>`+
		`<path d="M-2,2 l4,-4 M0,8 l8,-8 M6,10 l4,-4" stroke="#1f77b4" stroke-width="1.2"/></pattern></defs>`, id)
	axes(&b, f)
	barW := f.slot * barFraction
	zero := f.y(0)
	for i, v := range s.Data {
		top := math.Min(f.y(v), zero)
		h := math.Abs(zero - f.y(v))
		fmt.Fprintf(&b, `<rect class="bar" x="%s" y="%s" width="%s" height="%s" fill="url(#%s)" stroke="#1f77b4"><title>%s: %s</title></rect>`,
			num(f.xCenter(i)-barW/2), num(top), num(barW), num(h), id,
			template.HTMLEscapeString(s.Columns[i]), formatNumber(v))
	}
	categoryLabels(&b, f, s.Columns)
	b.WriteString("</svg>")
	return template.HTML(b.String())
}

// LineSVG draws the series as a polyline over the categories, in order.
func LineSVG(s envelope.Series) template.HTML {
	f := newFrame(s)
	var b strings.Builder
	openSVG(&b, "line")
	axes(&b, f)
	points := make([]string, 0, len(s.Data))
	for i, v := range s.Data {
		points = append(points, num(f.xCenter(i))+","+num(f.y(v)))
	}
	fmt.Fprintf(&b, `<polyline class="series" fill="none" stroke="#1f77b4" stroke-width="2" points="%s"/>`, strings.Join(points, " "))
	for i, v := range s.Data {
		fmt.Fprintf(&b, `<circle cx="%s" cy="%s" r="3" fill="#1f77b4"><title>%s: %s</title></circle>`,
			num(f.xCenter(i)), num(f.y(v)), template.HTMLEscapeString(s.Columns[i]), formatNumber(v))
	}
	categoryLabels(&b, f, s.Columns)
	b.WriteString("</svg>")
	return template.HTML(b.String())
}

func openSVG(b *strings.Builder, kind string) {
	fmt.Fprintf(b, `<svg class="chart chart-%s" xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif" font-size="11">`,
		kind, chartWidth, chartHeight, chartWidth, chartHeight)
}

func axes(b *strings.Builder, f frame) {
	left, right := float64(marginLeft), float64(marginLeft)+f.plotW
	bottom := float64(marginTop) + f.plotH
	fmt.Fprintf(b, `<line x1="%s" y1="%d" x2="%s" y2="%s" stroke="#333"/>`, num(left), marginTop, num(left), num(bottom))
	for i := 0; i <= yTicks; i++ {
		v := f.lo + (f.hi-f.lo)*float64(i)/yTicks
		y := f.y(v)
		fmt.Fprintf(b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="#e5e5e5"/>`, num(left), num(y), num(right), num(y))
		fmt.Fprintf(b, `<text x="%s" y="%s" text-anchor="end">%s</text>`, num(left-6), num(y+4), formatNumber(roundTick(v)))
	}
	zero := f.y(0)
	fmt.Fprintf(b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="#333"/>`, num(left), num(zero), num(right), num(zero))
}

func categoryLabels(b *strings.Builder, f frame, labels []string) {
	y := float64(marginTop) + f.plotH + 16
	for i, l := range labels {
		fmt.Fprintf(b, `<text class="category" x="%s" y="%s" text-anchor="middle">%s</text>`,
			num(f.xCenter(i)), num(y), template.HTMLEscapeString(shorten(l, 14)))
	}
}

func shorten(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

// patternID is stable for a series so repeated renders are byte-identical
// while distinct charts on one page keep separate patterns.
func patternID(s envelope.Series) string {
	h := fnv.New32a()
	for _, c := range s.Columns {
		h.Write([]byte(c))
		h.Write([]byte{0})
	}
	for _, v := range s.Data {
		h.Write([]byte(strconv.FormatFloat(v, 'g', -1, 64)))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("hatch-%08x", h.Sum32())
}

func roundTick(v float64) float64 {
	return math.Round(v*100) / 100
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
