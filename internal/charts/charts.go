package charts

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wcharczuk/go-chart/v2"

	"github.com/ivanoskov/fintrack_bot/internal/service"
)

const (
	width       = 1000
	pieHeight   = 700
	dailyHeight = 450
	// Категории с меньшей долей на диаграмме не подписываются
	minShare = 1.0
)

var errNoExpenses = errors.New("no expenses to chart")

// ChartGenerator генерирует графики для раздела аналитики
type ChartGenerator struct{}

// NewChartGenerator создает новый генератор графиков
func NewChartGenerator() *ChartGenerator {
	return &ChartGenerator{}
}

// RenderReport рисует распределение расходов и динамику по дням одним PNG
func (g *ChartGenerator) RenderReport(report *service.MonthlyReport) ([]byte, error) {
	pie, err := g.GenerateCategoryPieChart(report)
	if err != nil {
		return nil, err
	}

	// Для одного дня линейный график не строится
	if len(report.Daily) < 2 {
		return pie, nil
	}

	daily, err := g.GenerateDailyChart(report)
	if err != nil {
		return nil, err
	}
	return stackVertically(pie, daily)
}

// GenerateCategoryPieChart создает круговую диаграмму расходов по категориям
func (g *ChartGenerator) GenerateCategoryPieChart(report *service.MonthlyReport) ([]byte, error) {
	if !report.HasExpenses() {
		return nil, errNoExpenses
	}

	values := make([]chart.Value, 0, len(report.Expenses))
	other := 0.0
	for _, cat := range report.Expenses {
		amount := cat.Amount.InexactFloat64()
		// Мелкие категории объединяем
		if cat.Share < minShare {
			other += amount
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s: %.0f (%.1f%%)", cat.Name, amount, cat.Share),
			Value: amount,
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		})
	}
	if other > 0 {
		values = append(values, chart.Value{Label: fmt.Sprintf("Other: %.0f", other), Value: other})
	}

	pie := chart.PieChart{
		Title:  "Expenses for " + report.Period,
		Width:  width,
		Height: pieHeight,
		Values: values,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := pie.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render category pie chart: %w", err)
	}
	return buffer.Bytes(), nil
}

// dailyValues ряды дневного графика
type dailyValues struct {
	dates   []time.Time
	expense []float64
	income  []float64
	saving  []float64
	// накопительный баланс: доходы минус расходы и накопления
	balance []float64
}

func newDailyValues(points []service.DailyPoint) dailyValues {
	v := dailyValues{
		dates:   make([]time.Time, len(points)),
		expense: make([]float64, len(points)),
		income:  make([]float64, len(points)),
		saving:  make([]float64, len(points)),
		balance: make([]float64, len(points)),
	}

	running := decimal.Zero
	for i, point := range points {
		v.dates[i] = point.Date
		v.expense[i] = point.Expense.InexactFloat64()
		v.income[i] = point.Income.InexactFloat64()
		v.saving[i] = point.Saving.InexactFloat64()
		running = running.Add(point.Income).Sub(point.Expense).Sub(point.Saving)
		v.balance[i] = running.InexactFloat64()
	}
	return v
}

// GenerateDailyChart создает график расходов, доходов, накоплений и накопительного баланса по дням
func (g *ChartGenerator) GenerateDailyChart(report *service.MonthlyReport) ([]byte, error) {
	values := newDailyValues(report.Daily)

	graph := chart.Chart{
		Width:  width,
		Height: dailyHeight,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    30,
				Left:   50,
				Right:  50,
				Bottom: 30,
			},
			FillColor: chart.ColorWhite,
		},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("02.01"),
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.0f", v.(float64))
			},
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Expenses",
				XValues: values.dates,
				YValues: values.expense,
				Style: chart.Style{
					StrokeColor: chart.ColorRed,
					StrokeWidth: 2,
				},
			},
			chart.TimeSeries{
				Name:    "Income",
				XValues: values.dates,
				YValues: values.income,
				Style: chart.Style{
					StrokeColor: chart.ColorGreen,
					StrokeWidth: 2,
				},
			},
			chart.TimeSeries{
				Name:    "Savings",
				XValues: values.dates,
				YValues: values.saving,
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
					StrokeWidth: 2,
				},
			},
			chart.TimeSeries{
				Name:    "Balance",
				XValues: values.dates,
				YValues: values.balance,
				Style: chart.Style{
					StrokeColor:     chart.ColorBlack,
					StrokeWidth:     2,
					StrokeDashArray: []float64{5.0, 5.0},
				},
			},
		},
	}

	// Добавляем легенду
	graph.Elements = []chart.Renderable{
		chart.Legend(&graph, chart.Style{
			FontSize:  12,
			FontColor: chart.ColorBlack,
		}),
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render daily chart: %w", err)
	}
	return buffer.Bytes(), nil
}

// stackVertically склеивает PNG-изображения одно под другим
func stackVertically(images ...[]byte) ([]byte, error) {
	decoded := make([]image.Image, 0, len(images))
	w, h := 0, 0
	for _, data := range images {
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode chart: %w", err)
		}
		decoded = append(decoded, img)
		if b := img.Bounds(); b.Dx() > w {
			w = b.Dx()
		}
		h += img.Bounds().Dy()
	}

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	y := 0
	for _, img := range decoded {
		b := img.Bounds()
		draw.Draw(canvas, image.Rect(0, y, b.Dx(), y+b.Dy()), img, b.Min, draw.Src)
		y += b.Dy()
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := png.Encode(buffer, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode chart: %w", err)
	}
	return buffer.Bytes(), nil
}
