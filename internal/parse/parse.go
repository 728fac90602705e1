// Package parse turns raw multi-line input text into an ordered batch.
package parse

import (
	"bufio"
	"strings"

	"reelbatch/internal/entity"
)

// nameSeparator splits a line into URL and custom name. Only the first
// occurrence counts, so names may themselves contain " - ".
const nameSeparator = " - "

// Items parses raw text into an ordered sequence of batch items. Lines that
// are empty after trimming are dropped; everything else becomes one item, in
// input order, duplicates allowed. URL syntax is not validated here: a bad
// URL surfaces later as a retrieval failure.
func Items(raw string) []entity.BatchItem {
	var items []entity.BatchItem

	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		item := entity.BatchItem{Position: len(items)}

		url, name, found := strings.Cut(line, nameSeparator)
		if found {
			item.SourceURL = strings.TrimSpace(url)
			item.CustomName = strings.TrimSpace(name)
		} else {
			item.SourceURL = line
		}

		items = append(items, item)
	}

	return items
}
