package ingest

import (
	"fmt"
	"strings"

	"medkey/internal/textnorm"
)

// columnMap resolves the heterogeneous header names seen across source
// bases (English export names and the Portuguese curated base).
type columnMap struct {
	code       int
	name       int
	method     int
	specimen   int
	synonyms   int
	searchable int
}

var columnAliases = map[string][]string{
	"code":       {"id", "loinc", "loinc_num", "codigo"},
	"name":       {"name", "exame", "descricao", "componente"},
	"method":     {"analytical_method", "metodo", "método"},
	"specimen":   {"specimen_type", "sistema", "material", "coleta"},
	"synonyms":   {"synonyms", "sinonimos"},
	"searchable": {"searchable_terms", "termos_busca"},
}

func mapColumns(header []string) (columnMap, error) {
	index := map[string]int{}
	for i, raw := range header {
		key := textnorm.Fold(strings.TrimSpace(raw))
		if key == "" {
			continue
		}
		if _, ok := index[key]; !ok {
			index[key] = i
		}
	}

	find := func(field string) int {
		for _, alias := range columnAliases[field] {
			if i, ok := index[textnorm.Fold(alias)]; ok {
				return i
			}
		}
		return -1
	}

	cols := columnMap{
		code:       find("code"),
		name:       find("name"),
		method:     find("method"),
		specimen:   find("specimen"),
		synonyms:   find("synonyms"),
		searchable: find("searchable"),
	}
	if cols.name < 0 {
		return cols, fmt.Errorf("base file has no name column (header: %s)", strings.Join(header, ", "))
	}
	return cols, nil
}

func (c columnMap) parse(record []string) row {
	at := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	return row{
		Code:            at(c.code),
		Name:            at(c.name),
		Method:          at(c.method),
		Specimen:        at(c.specimen),
		Synonyms:        at(c.synonyms),
		SearchableTerms: at(c.searchable),
	}
}
