package metrics

import (
	"image/color"
	"io"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/predictive/pkg/errors"
)

// ResidualPlotSize は残差プロットの一辺の長さ
const ResidualPlotSize = 4 * vg.Inch

// PlotResiduals は予測値を横軸、残差 (yTrue - yPred) を縦軸とする散布図を描画し w に書き出す
//
// format は gonum/plot が対応する形式 ("png", "svg", "pdf" など)。
func PlotResiduals(yTrue, yPred *mat.VecDense, w io.Writer, format string) error {
	n, err := checkPair("PlotResiduals", yTrue, yPred)
	if err != nil {
		return err
	}

	pts := make(plotter.XYs, n)
	var lo, hi float64
	for i := 0; i < n; i++ {
		pred := yPred.AtVec(i)
		pts[i].X = pred
		pts[i].Y = yTrue.AtVec(i) - pred
		if i == 0 || pred < lo {
			lo = pred
		}
		if i == 0 || pred > hi {
			hi = pred
		}
	}

	p := plot.New()
	p.Title.Text = "Residuals"
	p.X.Label.Text = "Predicted"
	p.Y.Label.Text = "Residual"
	p.Add(plotter.NewGrid())

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "PlotResiduals: scatter")
	}
	s.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(s)

	// 残差0の基準線
	zero, err := plotter.NewLine(plotter.XYs{{X: lo, Y: 0}, {X: hi, Y: 0}})
	if err != nil {
		return errors.Wrap(err, "PlotResiduals: baseline")
	}
	zero.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(zero)

	wt, err := p.WriterTo(ResidualPlotSize, ResidualPlotSize, format)
	if err != nil {
		return errors.Wrapf(err, "PlotResiduals: format %q", format)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "PlotResiduals: write")
	}
	return nil
}
