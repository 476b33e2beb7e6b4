// Package report delivers per-transaction summaries after the ledger has
// been updated. Delivery is best-effort: a failed send is logged and never
// rolls back the pipeline.
package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/Shafi-prog/money-tracker-sub001/internal/ledger"
	"github.com/Shafi-prog/money-tracker-sub001/internal/models"
)

// Notifier sends one human-readable summary to the user's channel.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Summary renders the post-processing message shown to the user: direction,
// amount, merchant, category and how much of the category budget remains.
func Summary(tx models.Transaction, res ledger.Result) string {
	var b strings.Builder

	if tx.IsIncoming {
		b.WriteString("استلمت ")
	} else {
		b.WriteString("صرفت ")
	}
	fmt.Fprintf(&b, "%s %s", tx.Amount.StringFixed(2), tx.Currency)
	if tx.Merchant != "" && tx.Merchant != models.MerchantUnspecified {
		fmt.Fprintf(&b, " — %s", tx.Merchant)
	}
	fmt.Fprintf(&b, "\nالتصنيف: %s", tx.Category)

	budget := res.Budget
	if budget.Budgeted.IsPositive() {
		fmt.Fprintf(&b, "\nالمتبقي من ميزانية %s: %s %s",
			budget.Category, budget.Remaining.StringFixed(2), tx.Currency)
		switch budget.Status {
		case models.BudgetOver:
			b.WriteString(" ⚠️ تجاوزت الميزانية")
		case models.BudgetWarn:
			b.WriteString(" ⚠️ اقتربت من الحد")
		}
	}

	fmt.Fprintf(&b, "\nالرصيد: %s %s", res.Balance.Balance.StringFixed(2), tx.Currency)
	return b.String()
}
