package api

import (
	"net/http"
)

func (h *Handler) dailySales(w http.ResponseWriter, r *http.Request) {
	var revenue float64
	var count int64
	err := h.db.QueryRowContext(r.Context(),
		`SELECT COALESCE(SUM(total_price), 0), COUNT(*) FROM sales
         WHERE DATE(date) = DATE('now') AND status != 'Cancelled'`).Scan(&revenue, &count)
	if err != nil {
		h.serverError(w, "unable to fetch daily sales", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"revenue": revenue, "salesCount": count})
}

type monthlyReportRow struct {
	Month        string  `db:"month" json:"month"`
	TotalSales   int64   `db:"total_sales" json:"totalSales"`
	TotalRevenue float64 `db:"total_revenue" json:"totalRevenue"`
	TotalProfit  float64 `db:"total_profit" json:"totalProfit"`
	StockLevel   int64   `db:"-" json:"stockLevel"`
}

// monthlyReport aggregates sales count, revenue and profit per month.
// Profit comes from the unit_cost_price snapshots taken at sale time,
// so later cost changes on the catalog never rewrite history. Cancelled
// sales are excluded throughout.
func (h *Handler) monthlyReport(w http.ResponseWriter, r *http.Request) {
	rows := []monthlyReportRow{}
	err := h.db.SelectContext(r.Context(), &rows,
		`SELECT strftime('%Y-%m', s.date) AS month,
                COUNT(DISTINCT s.id) AS total_sales,
                COALESCE(SUM(si.sub_total), 0) AS total_revenue,
                COALESCE(SUM((si.unit_price - si.unit_cost_price) * si.quantity), 0) AS total_profit
         FROM sales s
         JOIN sale_items si ON si.sale_id = s.id
         WHERE s.status != 'Cancelled'
         GROUP BY month
         ORDER BY month DESC`)
	if err != nil {
		h.serverError(w, "unable to fetch monthly report", err)
		return
	}

	var stockLevel int64
	if err := h.db.GetContext(r.Context(), &stockLevel,
		`SELECT COALESCE(SUM(quantity), 0) FROM inventory`); err != nil {
		h.serverError(w, "unable to fetch stock level", err)
		return
	}
	for i := range rows {
		rows[i].StockLevel = stockLevel
	}
	respondJSON(w, http.StatusOK, rows)
}
