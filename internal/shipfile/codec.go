package shipfile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	templatedomain "github.com/rateshoplabs/rateshop/internal/template/domain"
	zonedomain "github.com/rateshoplabs/rateshop/internal/zone/domain"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	sheetRates        = "Rates"
	sheetBands        = "Bands"
	sheetSurcharges   = "Surcharges"
	sheetMeta         = "Meta"
	sheetCountryZones = "CountryZones"

	dateLayout = "2006-01-02"
)

// parsedTemplate is one country (or zone) row-group accumulated across
// the three data sheets.
type parsedTemplate struct {
	key         string
	countryName string
	currency    string
	brackets    []templatedomain.BracketInput
	surcharges  []templatedomain.SurchargeInput
}

func ratesHeader(mode templatedomain.Mode) []string {
	var cols []string
	if mode == templatedomain.ModeCarrier {
		cols = []string{"zone"}
	} else {
		cols = []string{"country_code", "country_name", "currency"}
	}
	for kg := 1; kg <= templatedomain.MaxFlatKg; kg++ {
		cols = append(cols, fmt.Sprintf("kg_%d", kg))
	}
	return cols
}

func bandsHeader(mode templatedomain.Mode) []string {
	return []string{keyColumn(mode), "min_kg", "max_kg", "price_per_kg", "base_price"}
}

func surchargesHeader(mode templatedomain.Mode) []string {
	return []string{keyColumn(mode), "name", "type", "amount", "percent",
		"valid_from", "valid_to", "min_weight_kg", "max_weight_kg"}
}

func keyColumn(mode templatedomain.Mode) string {
	if mode == templatedomain.ModeCarrier {
		return "zone"
	}
	return "country_code"
}

func colName(n int) string {
	name, err := excelize.ColumnNumberToName(n)
	if err != nil {
		return ""
	}
	return name
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseRates reads the Rates sheet into one parsedTemplate per key,
// preserving file order.
func parseRates(f *excelize.File, mode templatedomain.Mode, defaultCurrency string, rep *ValidationReport) (map[string]*parsedTemplate, []string) {
	rows, err := f.GetRows(sheetRates)
	if err != nil || len(rows) == 0 {
		rep.add(sheetRates, 1, "", "missing sheet")
		return nil, nil
	}

	keyOffset := 0
	flatOffset := 3
	if mode == templatedomain.ModeCarrier {
		flatOffset = 1
	}

	tpls := make(map[string]*parsedTemplate)
	var order []string
	for i, row := range rows[1:] {
		rowNum := i + 2
		rawKey := cell(row, keyOffset)
		if rawKey == "" {
			continue
		}

		tpl := &parsedTemplate{currency: defaultCurrency}
		if mode == templatedomain.ModeCarrier {
			tpl.key = templatedomain.NormalizeZone(rawKey)
			if tpl.key == "" {
				rep.add(sheetRates, rowNum, "A", "invalid zone")
				continue
			}
			tpl.countryName = tpl.key
		} else {
			tpl.key = templatedomain.NormalizeCountryCode(rawKey)
			if !templatedomain.ValidCountryCode(tpl.key) {
				rep.add(sheetRates, rowNum, "A", fmt.Sprintf("invalid country code %q", rawKey))
				continue
			}
			tpl.countryName = cell(row, 1)
			if cur := templatedomain.NormalizeCurrency(cell(row, 2)); cur != "" {
				if !templatedomain.ValidCurrency(cur) {
					rep.add(sheetRates, rowNum, "C", fmt.Sprintf("invalid currency %q", cur))
					continue
				}
				tpl.currency = cur
			}
		}

		if _, dup := tpls[tpl.key]; dup {
			rep.add(sheetRates, rowNum, "A", fmt.Sprintf("duplicate key %q", tpl.key))
			continue
		}

		for kg := 1; kg <= templatedomain.MaxFlatKg; kg++ {
			col := flatOffset + kg - 1
			raw := cell(row, col)
			if raw == "" {
				continue
			}
			price, err := decimal.NewFromString(raw)
			if err != nil || price.IsNegative() {
				rep.add(sheetRates, rowNum, colName(col+1), fmt.Sprintf("invalid price %q for kg %d", raw, kg))
				continue
			}
			tpl.brackets = append(tpl.brackets, templatedomain.BracketInput{
				Kind:  templatedomain.BracketFlatUnder21,
				Kg:    kg,
				Price: price,
			})
		}

		tpls[tpl.key] = tpl
		order = append(order, tpl.key)
	}
	return tpls, order
}

// parseBands appends per-kg bands; the sheet is optional.
func parseBands(f *excelize.File, mode templatedomain.Mode, tpls map[string]*parsedTemplate, rep *ValidationReport) {
	rows, err := f.GetRows(sheetBands)
	if err != nil || len(rows) == 0 {
		return
	}
	for i, row := range rows[1:] {
		rowNum := i + 2
		rawKey := cell(row, 0)
		if rawKey == "" {
			continue
		}
		tpl := lookupTemplate(tpls, mode, rawKey)
		if tpl == nil {
			rep.add(sheetBands, rowNum, "A", fmt.Sprintf("%s %q has no Rates row", keyColumn(mode), rawKey))
			continue
		}

		minKg, err := strconv.ParseFloat(cell(row, 1), 64)
		if err != nil {
			rep.add(sheetBands, rowNum, "B", "min_kg is not numeric")
			continue
		}
		var maxKg *float64
		if raw := cell(row, 2); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				rep.add(sheetBands, rowNum, "C", "max_kg is not numeric")
				continue
			}
			maxKg = &v
		}
		perKg, err := decimal.NewFromString(cell(row, 3))
		if err != nil {
			rep.add(sheetBands, rowNum, "D", "price_per_kg is not numeric")
			continue
		}
		base := decimal.Zero
		if raw := cell(row, 4); raw != "" {
			base, err = decimal.NewFromString(raw)
			if err != nil {
				rep.add(sheetBands, rowNum, "E", "base_price is not numeric")
				continue
			}
		}
		tpl.brackets = append(tpl.brackets, templatedomain.BracketInput{
			Kind:       templatedomain.BracketPerKgOver21,
			MinKg:      minKg,
			MaxKg:      maxKg,
			PricePerKg: perKg,
			BasePrice:  base,
		})
	}
}

// parseSurcharges appends surcharge rows; the sheet is optional.
func parseSurcharges(f *excelize.File, mode templatedomain.Mode, tpls map[string]*parsedTemplate, rep *ValidationReport) {
	rows, err := f.GetRows(sheetSurcharges)
	if err != nil || len(rows) == 0 {
		return
	}
	for i, row := range rows[1:] {
		rowNum := i + 2
		rawKey := cell(row, 0)
		if rawKey == "" {
			continue
		}
		tpl := lookupTemplate(tpls, mode, rawKey)
		if tpl == nil {
			rep.add(sheetSurcharges, rowNum, "A", fmt.Sprintf("%s %q has no Rates row", keyColumn(mode), rawKey))
			continue
		}

		in := templatedomain.SurchargeInput{
			Name: cell(row, 1),
			Type: templatedomain.SurchargeType(strings.ToLower(cell(row, 2))),
		}
		if in.Name == "" {
			rep.add(sheetSurcharges, rowNum, "B", "name is required")
			continue
		}
		ok := true
		if raw := cell(row, 3); raw != "" {
			v, err := decimal.NewFromString(raw)
			if err != nil {
				rep.add(sheetSurcharges, rowNum, "D", "amount is not numeric")
				ok = false
			} else {
				in.Amount = &v
			}
		}
		if raw := cell(row, 4); raw != "" {
			v, err := decimal.NewFromString(raw)
			if err != nil {
				rep.add(sheetSurcharges, rowNum, "E", "percent is not numeric")
				ok = false
			} else {
				in.Percent = &v
			}
		}
		if raw := cell(row, 5); raw != "" {
			t, err := time.Parse(dateLayout, raw)
			if err != nil {
				rep.add(sheetSurcharges, rowNum, "F", "valid_from is not a date (YYYY-MM-DD)")
				ok = false
			} else {
				in.ValidFrom = &t
			}
		}
		if raw := cell(row, 6); raw != "" {
			t, err := time.Parse(dateLayout, raw)
			if err != nil {
				rep.add(sheetSurcharges, rowNum, "G", "valid_to is not a date (YYYY-MM-DD)")
				ok = false
			} else {
				in.ValidTo = &t
			}
		}
		if raw := cell(row, 7); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				rep.add(sheetSurcharges, rowNum, "H", "min_weight_kg is not numeric")
				ok = false
			} else {
				in.MinWeightKg = &v
			}
		}
		if raw := cell(row, 8); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				rep.add(sheetSurcharges, rowNum, "I", "max_weight_kg is not numeric")
				ok = false
			} else {
				in.MaxWeightKg = &v
			}
		}
		if !ok {
			continue
		}
		tpl.surcharges = append(tpl.surcharges, in)
	}
}

func lookupTemplate(tpls map[string]*parsedTemplate, mode templatedomain.Mode, rawKey string) *parsedTemplate {
	var key string
	if mode == templatedomain.ModeCarrier {
		key = templatedomain.NormalizeZone(rawKey)
	} else {
		key = templatedomain.NormalizeCountryCode(rawKey)
	}
	return tpls[key]
}

// parseMeta reads carrier-mode workbook metadata. Values already set in
// opts win over the sheet.
func parseMeta(f *excelize.File) (carrier, serviceCode, currency string) {
	rows, err := f.GetRows(sheetMeta)
	if err != nil {
		return "", "", ""
	}
	for _, row := range rows {
		key := strings.ToLower(cell(row, 0))
		val := cell(row, 1)
		switch key {
		case "carrier":
			carrier = templatedomain.NormalizeCarrier(val)
		case "service_code", "service":
			serviceCode = templatedomain.NormalizeServiceCode(val)
		case "currency":
			currency = templatedomain.NormalizeCurrency(val)
		}
	}
	return carrier, serviceCode, currency
}

func parseCountryZones(f *excelize.File, rep *ValidationReport) []zonedomain.MappingInput {
	rows, err := f.GetRows(sheetCountryZones)
	if err != nil || len(rows) == 0 {
		rep.add(sheetCountryZones, 1, "", "missing sheet")
		return nil
	}
	seen := make(map[string]bool)
	var out []zonedomain.MappingInput
	for i, row := range rows[1:] {
		rowNum := i + 2
		rawCode := cell(row, 0)
		if rawCode == "" {
			continue
		}
		code := templatedomain.NormalizeCountryCode(rawCode)
		if !templatedomain.ValidCountryCode(code) {
			rep.add(sheetCountryZones, rowNum, "A", fmt.Sprintf("invalid country code %q", rawCode))
			continue
		}
		if seen[code] {
			rep.add(sheetCountryZones, rowNum, "A", fmt.Sprintf("duplicate country %q", code))
			continue
		}
		zone := templatedomain.NormalizeZone(cell(row, 2))
		if zone == "" {
			rep.add(sheetCountryZones, rowNum, "C", "zone is required")
			continue
		}
		seen[code] = true
		out = append(out, zonedomain.MappingInput{
			CountryCode: code,
			CountryName: cell(row, 1),
			Zone:        zone,
		})
	}
	return out
}

// renderWorkbook builds the export workbook from full templates.
func renderWorkbook(mode templatedomain.Mode, carrier, serviceCode, currency string,
	templates []templatedomain.RateTemplate, mappings []zonedomain.CountryZoneMapping) (*excelize.File, error) {

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetRates); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(sheetBands); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(sheetSurcharges); err != nil {
		return nil, err
	}

	writeRow := func(sheet string, rowNum int, values []any) error {
		cellRef, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheet, cellRef, &values)
	}

	if err := writeRow(sheetRates, 1, toAny(ratesHeader(mode))); err != nil {
		return nil, err
	}
	if err := writeRow(sheetBands, 1, toAny(bandsHeader(mode))); err != nil {
		return nil, err
	}
	if err := writeRow(sheetSurcharges, 1, toAny(surchargesHeader(mode))); err != nil {
		return nil, err
	}

	ratesRow, bandsRow, surRow := 2, 2, 2
	for _, tpl := range templates {
		key := tpl.CountryCode
		if mode == templatedomain.ModeCarrier {
			key = tpl.Zone
		}

		flat := make(map[int]decimal.Decimal)
		for _, b := range tpl.WeightBrackets {
			switch b.Kind {
			case templatedomain.BracketFlatUnder21:
				flat[b.Kg] = b.Price
			case templatedomain.BracketPerKgOver21:
				row := []any{key, b.MinKg}
				if b.MaxKg != nil {
					row = append(row, *b.MaxKg)
				} else {
					row = append(row, "")
				}
				row = append(row, b.PricePerKg.String(), b.BasePrice.String())
				if err := writeRow(sheetBands, bandsRow, row); err != nil {
					return nil, err
				}
				bandsRow++
			}
		}

		var row []any
		if mode == templatedomain.ModeCarrier {
			row = []any{key}
		} else {
			row = []any{key, tpl.CountryName, tpl.Currency}
		}
		for kg := 1; kg <= templatedomain.MaxFlatKg; kg++ {
			if price, ok := flat[kg]; ok {
				row = append(row, price.String())
			} else {
				row = append(row, "")
			}
		}
		if err := writeRow(sheetRates, ratesRow, row); err != nil {
			return nil, err
		}
		ratesRow++

		for _, sc := range tpl.Surcharges {
			row := []any{key, sc.Name, string(sc.Type)}
			row = append(row, decimalCell(sc.Amount), decimalCell(sc.Percent))
			row = append(row, dateCell(sc.ValidFrom), dateCell(sc.ValidTo))
			row = append(row, floatCell(sc.MinWeightKg), floatCell(sc.MaxWeightKg))
			if err := writeRow(sheetSurcharges, surRow, row); err != nil {
				return nil, err
			}
			surRow++
		}
	}

	if mode == templatedomain.ModeCarrier {
		if _, err := f.NewSheet(sheetMeta); err != nil {
			return nil, err
		}
		metaRows := [][]any{
			{"carrier", carrier},
			{"service_code", serviceCode},
			{"currency", currency},
		}
		for i, row := range metaRows {
			if err := writeRow(sheetMeta, i+1, row); err != nil {
				return nil, err
			}
		}

		if _, err := f.NewSheet(sheetCountryZones); err != nil {
			return nil, err
		}
		if err := writeRow(sheetCountryZones, 1, []any{"country_code", "country_name", "zone"}); err != nil {
			return nil, err
		}
		for i, m := range mappings {
			if err := writeRow(sheetCountryZones, i+2, []any{m.CountryCode, m.CountryName, m.Zone}); err != nil {
				return nil, err
			}
		}
	}

	return f, nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func decimalCell(d *decimal.Decimal) any {
	if d == nil {
		return ""
	}
	return d.String()
}

func dateCell(t *time.Time) any {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func floatCell(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
