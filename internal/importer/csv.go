// Package importer converts CSV collection files and text decklists to and
// from the batch requests the deck and collection services accept.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/codyseavey/sorcery-tracker/internal/models"
	"github.com/codyseavey/sorcery-tracker/internal/search"
)

// CSVHeader is the column layout of collection exports and imports.
var CSVHeader = []string{"Card Name", "Set", "Finish", "Product", "Quantity", "Condition", "Purchase Price"}

// Resolver maps card names and printing details to catalog records.
type Resolver interface {
	ResolveName(name string) (search.Card, bool)
	ResolveVariant(cardID, setName, finish, product string) (*models.Variant, error)
}

// CSVRow is one parsed line of a collection CSV.
type CSVRow struct {
	Line          int
	CardName      string
	Set           string
	Finish        string
	Product       string
	Quantity      int
	Condition     models.Condition // empty when the column is blank
	PurchasePrice *float64
}

// Problem describes an input line that could not be used.
type Problem struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ParseCSV reads a collection CSV. The header row is matched by name, so
// columns may appear in any order; only Card Name is required. Bad lines are
// reported and skipped.
func ParseCSV(r io.Reader) ([]CSVRow, []Problem, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, errors.New("empty CSV")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read CSV header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	if _, ok := columns["card name"]; !ok {
		return nil, nil, errors.New("CSV header must include \"Card Name\"")
	}

	field := func(record []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []CSVRow
	var problems []Problem
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			problems = append(problems, Problem{Line: line, Message: err.Error()})
			continue
		}
		line, _ = reader.FieldPos(0)

		row := CSVRow{
			Line:      line,
			CardName:  field(record, "card name"),
			Set:       field(record, "set"),
			Finish:    field(record, "finish"),
			Product:   field(record, "product"),
			Quantity:  1,
		}
		if row.CardName == "" {
			continue
		}
		// A blank condition stays empty so merges keep the existing row's condition
		if c := field(record, "condition"); c != "" {
			row.Condition = models.NormalizeCondition(c)
		}
		if q := field(record, "quantity"); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil || n <= 0 {
				problems = append(problems, Problem{Line: line, Message: fmt.Sprintf("invalid quantity %q", q)})
				continue
			}
			row.Quantity = n
		}
		if p := strings.TrimPrefix(field(record, "purchase price"), "$"); p != "" {
			price, err := strconv.ParseFloat(p, 64)
			if err != nil || price < 0 {
				problems = append(problems, Problem{Line: line, Message: fmt.Sprintf("invalid purchase price %q", p)})
				continue
			}
			row.PurchasePrice = &price
		}
		rows = append(rows, row)
	}
	return rows, problems, nil
}

// CollectionBatch resolves parsed rows to batch items. Rows whose card or
// variant can't be resolved are reported and left out.
func CollectionBatch(rows []CSVRow, resolver Resolver) ([]models.BatchCollectionItem, []Problem) {
	items := make([]models.BatchCollectionItem, 0, len(rows))
	var problems []Problem
	for _, row := range rows {
		card, ok := resolver.ResolveName(row.CardName)
		if !ok {
			problems = append(problems, Problem{Line: row.Line, Message: fmt.Sprintf("unknown card %q", row.CardName)})
			continue
		}
		variant, err := resolver.ResolveVariant(card.ID, row.Set, row.Finish, row.Product)
		if err != nil {
			problems = append(problems, Problem{Line: row.Line, Message: fmt.Sprintf("no printing of %q: %v", card.Name, err)})
			continue
		}
		items = append(items, models.BatchCollectionItem{
			CardID:        card.ID,
			VariantID:     variant.ID,
			Quantity:      row.Quantity,
			Condition:     row.Condition,
			PurchasePrice: row.PurchasePrice,
		})
	}
	return items, problems
}

// WriteCSV writes collection rows in the import format. Rows must have their
// Card and Variant (with Set) loaded.
func WriteCSV(w io.Writer, rows []models.CollectionCard) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeader); err != nil {
		return err
	}
	for _, row := range rows {
		var name, set, finish, product string
		if row.Card != nil {
			name = row.Card.Name
		}
		if row.Variant != nil {
			set = row.Variant.Set.Name
			finish = row.Variant.Finish
			product = row.Variant.Product
		}
		price := ""
		if row.PurchasePrice != nil {
			price = strconv.FormatFloat(*row.PurchasePrice, 'f', 2, 64)
		}
		record := []string{name, set, finish, product, strconv.Itoa(row.Quantity), string(row.Condition), price}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
