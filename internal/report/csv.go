package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatQuantity prints a quantity without trailing zeros, with a decimal comma.
func FormatQuantity(d decimal.Decimal) string {
	return strings.Replace(d.String(), ".", ",", 1)
}

// FormatMoney prints an amount rounded to grosze, with a decimal comma.
func FormatMoney(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}

func formatBoxes(boxes []Box) string {
	var b strings.Builder
	for _, box := range boxes {
		fmt.Fprintf(&b, "(skrz%d: %s) ", box.OrderNumber, FormatQuantity(box.Quantity))
	}
	return b.String()
}

func writeAll(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func WriteProducerBoxCSV(w io.Writer, rows []ProductBoxes) error {
	out := [][]string{{"Produkt", "Skrzynki"}}
	for _, r := range rows {
		out = append(out, []string{r.ProductName, formatBoxes(r.Boxes)})
	}
	return writeAll(w, out)
}

func WriteMassBoxCSV(w io.Writer, rows []ProductBoxes) error {
	out := [][]string{{"Producent", "Ilość łącznie", "W magazynie", "Produkt", "Lista skrzynek"}}
	for _, r := range rows {
		stock := " "
		if r.StockBeforeOrders.Valid {
			stock = FormatQuantity(r.StockBeforeOrders.Decimal)
		}
		out = append(out, []string{r.ProducerShort, FormatQuantity(r.Ordered), stock, r.ProductName, formatBoxes(r.Boxes)})
	}
	return writeAll(w, out)
}

func WriteProducerProductsCSV(w io.Writer, rep *ProducerProductsReport) error {
	out := [][]string{
		{fmt.Sprintf("Przychód łącznie: %s zł", FormatMoney(rep.Total)), rep.Producer.Name},
		{"Nazwa produktu", "Zamówiona ilość", "Przychód"},
	}
	for _, p := range rep.Products {
		out = append(out, []string{p.ProductName, FormatQuantity(p.Ordered), FormatMoney(p.Income)})
	}
	return writeAll(w, out)
}

func WriteProducersFinanceCSV(w io.Writer, rows []ProducerFinance) error {
	out := [][]string{{"Nazwa producenta", "Kwoty zamówień", "Kwoty dostaw"}}
	for _, r := range rows {
		out = append(out, []string{r.Short, FormatMoney(r.OrderedTotal), FormatMoney(r.SuppliedTotal)})
	}
	return writeAll(w, out)
}

func memberBoxRows(box MemberBoxReport) [][]string {
	out := [][]string{
		{".", fmt.Sprintf("Skrzynka %d; do zapłaty: %s zł; fundusz %s",
			box.OrderNumber, FormatMoney(box.CostWithFund), FormatQuantity(box.Fund))},
		{"Producent", "Nazwa produktu", "Zamówiona ilość"},
	}
	for _, l := range box.Lines {
		out = append(out, []string{l.ProducerShort, l.ProductName, FormatQuantity(l.Quantity)})
	}
	return out
}

func WriteMemberBoxCSV(w io.Writer, box MemberBoxReport) error {
	return writeAll(w, memberBoxRows(box))
}

// WriteMemberBoxesCSV writes every pick slip one after another, separated by an empty row.
func WriteMemberBoxesCSV(w io.Writer, boxes []MemberBoxReport) error {
	var out [][]string
	for i, box := range boxes {
		if i > 0 {
			out = append(out, []string{""})
		}
		out = append(out, memberBoxRows(box)...)
	}
	return writeAll(w, out)
}

func WriteMembersCSV(w io.Writer, rows []MemberRow) error {
	out := [][]string{{"Imię i nazwisko", "Numer skrzynki", "Dzień odbioru", "Numer telefonu"}}
	for _, r := range rows {
		out = append(out, []string{r.Name, strconv.Itoa(r.OrderNumber), string(r.PickUpDay), r.PhoneNumber})
	}
	return writeAll(w, out)
}

func WriteMembersFinanceCSV(w io.Writer, rows []MemberFinance) error {
	out := [][]string{{"imie nazwisko", "koop ID", "kwota zamowienia", "fundusz", "kwota z funduszem", "numer skrzynki"}}
	for _, r := range rows {
		koopID := ""
		if r.KoopID != nil {
			koopID = strconv.FormatUint(uint64(*r.KoopID), 10)
		}
		out = append(out, []string{
			r.Name,
			koopID,
			FormatMoney(r.Cost),
			FormatQuantity(r.Fund),
			FormatMoney(r.CostWithFund),
			strconv.Itoa(r.OrderNumber),
		})
	}
	return writeAll(w, out)
}

func WriteExcessCSV(w io.Writer, rows []ExcessRow) error {
	out := [][]string{{"Producent", "Produkt", "Dostarczono", "Zamówiono", "Nadwyżka"}}
	for _, r := range rows {
		out = append(out, []string{r.ProducerShort, r.ProductName, FormatQuantity(r.Supplied), FormatQuantity(r.Ordered), FormatQuantity(r.Excess)})
	}
	return writeAll(w, out)
}
