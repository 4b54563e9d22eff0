package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Dan9191/budget-service/internal/models"
	"github.com/Dan9191/budget-service/internal/service"
	"github.com/phpdave11/gofpdf"
)

var pdfColumns = []struct {
	title string
	width float64
	align string
}{
	{"DATE", 26, "C"},
	{"TYPE", 22, "C"},
	{"CATEGORY", 32, "C"},
	{"DESCRIPTION", 72, "L"},
	{"AMOUNT", 30, "R"},
}

func writePDF(w io.Writer, st *service.Statement) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.SetAutoPageBreak(false, 14)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Statement")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.Cell(0, 6, tr(fmt.Sprintf("%s <%s>", st.User.FullName, st.User.Email)))
	pdf.Ln(5)
	pdf.Cell(0, 6, "Generated: "+st.GeneratedAt.Format(time.RFC3339))
	pdf.Ln(10)

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetFillColor(248, 248, 248)
	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(60, 10, "Income", "1", 0, "C", true, 0, "")
	pdf.CellFormat(60, 10, "Expenses", "1", 0, "C", true, 0, "")
	pdf.CellFormat(62, 10, "Balance", "1", 1, "C", true, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(60, 10, formatAmount(st.Balance.TotalIncome), "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 10, formatAmount(st.Balance.TotalExpenses), "1", 0, "C", false, 0, "")
	pdf.CellFormat(62, 10, formatAmount(st.Balance.CurrentBalance), "1", 1, "C", false, 0, "")
	pdf.Ln(6)

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(245, 245, 245)
		for i, col := range pdfColumns {
			ln := 0
			if i == len(pdfColumns)-1 {
				ln = 1
			}
			pdf.CellFormat(col.width, 8, col.title, "1", ln, "C", true, 0, "")
		}
		pdf.SetFont("Helvetica", "", 9)
	}
	header()

	if len(st.Transactions) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 8, "No transactions", "1", 1, "C", false, 0, "")
	}
	for _, tx := range st.Transactions {
		if pdf.GetY() > 270 {
			pdf.AddPage()
			header()
		}
		cells := []string{
			tx.Date.Format("2006-01-02"),
			strings.ToUpper(string(tx.Type)),
			string(tx.Category),
			tr(truncate(tx.Description, 40)),
			signedAmount(tx),
		}
		for i, col := range pdfColumns {
			ln := 0
			if i == len(pdfColumns)-1 {
				ln = 1
			}
			pdf.CellFormat(col.width, 8, cells[i], "1", ln, col.align, false, 0, "")
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf build failed: %w", err)
	}
	return nil
}

func signedAmount(tx models.Transaction) string {
	if tx.Type == models.TransactionExpense {
		return "-" + formatAmount(tx.Amount)
	}
	return formatAmount(tx.Amount)
}

func truncate(s string, max int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max-3]) + "..."
}
