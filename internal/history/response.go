package history

type PointResponse struct {
	Date       string  `json:"date"`
	TotalValue string  `json:"totalValue"`
	TotalCost  string  `json:"totalCost"`
	Profit     string  `json:"profit"`
	NAV        float64 `json:"nav"`
}

type StatsResponse struct {
	MaxDrawdown      string `json:"maxDrawdown"`
	MaxDrawdownStart string `json:"maxDrawdownStart"`
	MaxDrawdownEnd   string `json:"maxDrawdownEnd"`
	PeriodReturn     string `json:"periodReturn"`
	DataPoints       int    `json:"dataPoints"`
}

// Response is the JSON body of the history endpoint.
type Response struct {
	Data  []PointResponse `json:"data"`
	Stats StatsResponse   `json:"stats"`
}

// Response renders r with every amount fixed to two decimals.
func (r *Result) Response() Response {
	data := make([]PointResponse, 0, len(r.Series))
	for _, p := range r.Series {
		data = append(data, PointResponse{
			Date:       p.Date,
			TotalValue: p.TotalValue.StringFixed(2),
			TotalCost:  p.TotalCost.StringFixed(2),
			Profit:     p.Profit.StringFixed(2),
			NAV:        p.NAV.InexactFloat64(),
		})
	}
	return Response{
		Data: data,
		Stats: StatsResponse{
			MaxDrawdown:      r.Stats.MaxDrawdown.StringFixed(2),
			MaxDrawdownStart: r.Stats.MaxDrawdownStart,
			MaxDrawdownEnd:   r.Stats.MaxDrawdownEnd,
			PeriodReturn:     r.Stats.PeriodReturn.StringFixed(2),
			DataPoints:       r.Stats.PointCount,
		},
	}
}
