package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"

	"optimaster/m/domain"
)

// saleInvoice renders a sale as a printable PDF invoice.
func (h *Handler) saleInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseSaleID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	sale, err := h.ledger.GetSale(r.Context(), id)
	if err != nil {
		h.storeError(w, "unable to load sale", err)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(120, 10, "OptiMaster Opticals")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 10, sale.Code, "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, sale.Date, "", 1, "R", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, "Billed to", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, sale.CustomerName, "", 1, "L", false, 0, "")
	if sale.CustomerMobile != "" {
		pdf.CellFormat(0, 6, sale.CustomerMobile, "", 1, "L", false, 0, "")
	}
	if sale.CustomerPlace != "" {
		pdf.CellFormat(0, 6, sale.CustomerPlace, "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(70, 8, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "SKU", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 8, "Unit Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 8, "Subtotal", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range sale.Items {
		pdf.CellFormat(70, 8, item.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 8, item.SKU, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 8, fmt.Sprintf("%d", item.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, money(item.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, money(item.SubTotal), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	invoiceTotal(pdf, "Subtotal", money(sale.SubTotal))
	invoiceTotal(pdf, "Discount", money(sale.Discount))
	invoiceTotal(pdf, "Total", money(sale.TotalPrice))
	invoiceTotal(pdf, "Advance Paid", money(sale.AdvancePaid))
	pdf.SetFont("Helvetica", "B", 10)
	invoiceTotal(pdf, "Balance Due", money(sale.Balance))
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 6, "Status: "+string(sale.Status), "", 1, "L", false, 0, "")

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%s.pdf", sale.Code))
	if err := pdf.Output(w); err != nil {
		h.log.Error("unable to render invoice", zap.Error(err))
	}
}

func invoiceTotal(pdf *gofpdf.Fpdf, label, value string) {
	pdf.CellFormat(155, 7, label, "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, value, "", 1, "R", false, 0, "")
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
