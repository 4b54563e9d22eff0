package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Dan9191/budget-service/internal/service"
	"github.com/beevik/etree"
)

func writeXML(w io.Writer, st *service.Statement) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("statement")
	root.CreateAttr("generated_at", st.GeneratedAt.Format(time.RFC3339))

	user := root.CreateElement("user")
	user.CreateAttr("public_id", st.User.PublicID.String())
	user.CreateElement("email").SetText(st.User.Email)
	user.CreateElement("full_name").SetText(st.User.FullName)

	balance := root.CreateElement("balance")
	balance.CreateElement("total_income").SetText(formatAmount(st.Balance.TotalIncome))
	balance.CreateElement("total_expenses").SetText(formatAmount(st.Balance.TotalExpenses))
	balance.CreateElement("current_balance").SetText(formatAmount(st.Balance.CurrentBalance))
	balance.CreateElement("transaction_count").SetText(strconv.Itoa(st.Balance.TransactionCount))

	txs := root.CreateElement("transactions")
	for _, tx := range st.Transactions {
		el := txs.CreateElement("transaction")
		el.CreateAttr("public_id", tx.PublicID.String())
		el.CreateAttr("type", string(tx.Type))
		el.CreateAttr("category", string(tx.Category))
		el.CreateElement("amount").SetText(formatAmount(tx.Amount))
		el.CreateElement("date").SetText(tx.Date.Format(time.RFC3339))
		if tx.Description != "" {
			el.CreateElement("description").SetText(tx.Description)
		}
	}

	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write XML: %w", err)
	}
	return nil
}
