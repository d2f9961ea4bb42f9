package model

import (
	"encoding/json"
	"strings"
)

// ChartColumnOrders walks the raw JSON of an analysis answer and returns, for each
// entry of its "charts" value, the data keys in the order the model wrote them.
// The result lines up with the decoded charts list; entries without rows are nil.
func ChartColumnOrders(source string) [][]string {
	dec := json.NewDecoder(strings.NewReader(source))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	var orders [][]string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return orders
		}
		tok, err := dec.Token()
		if err != nil {
			return orders
		}
		if key, _ := keyTok.(string); key != "charts" {
			if skipFrom(dec, tok) != nil {
				return orders
			}
			continue
		}
		// a repeated key replaces the earlier value, as encoding/json does
		orders = nil
		if tok != json.Delim('[') {
			cols, err := chartColumnsFrom(dec, tok)
			orders = append(orders, cols)
			if err != nil {
				return orders
			}
			continue
		}
		for dec.More() {
			elem, err := dec.Token()
			if err != nil {
				return orders
			}
			cols, err := chartColumnsFrom(dec, elem)
			orders = append(orders, cols)
			if err != nil {
				return orders
			}
		}
		if _, err := dec.Token(); err != nil {
			return orders
		}
	}
	return orders
}

// chartColumnsOf reads the row key order from a chart encoded as a JSON string.
func chartColumnsOf(s string) []string {
	dec := json.NewDecoder(strings.NewReader(s))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	cols, _ := chartColumnsFrom(dec, tok)
	return cols
}

// chartColumnsFrom consumes one chart value whose first token is tok.
func chartColumnsFrom(dec *json.Decoder, tok json.Token) ([]string, error) {
	switch t := tok.(type) {
	case string:
		return chartColumnsOf(t), nil
	case json.Delim:
		if t != '{' {
			return nil, skipFrom(dec, tok)
		}
	default:
		return nil, nil
	}

	var data, rows []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch keyTok {
		case "data":
			if data, err = rowColumns(dec); err != nil {
				return nil, err
			}
		case "rows":
			if rows, err = rowColumns(dec); err != nil {
				return nil, err
			}
		default:
			if err := skipValue(dec); err != nil {
				return nil, err
			}
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if data != nil {
		return data, nil
	}
	return rows, nil
}

// rowColumns reads a list of row objects and returns their keys in first-seen order.
func rowColumns(dec *json.Decoder) ([]string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok != json.Delim('[') {
		return nil, skipFrom(dec, tok)
	}
	cols := []string{}
	seen := make(map[string]bool)
	for dec.More() {
		item, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if item != json.Delim('{') {
			if err := skipFrom(dec, item); err != nil {
				return nil, err
			}
			continue
		}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			if key, ok := keyTok.(string); ok && !seen[key] {
				seen[key] = true
				cols = append(cols, key)
			}
			if err := skipValue(dec); err != nil {
				return nil, err
			}
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return cols, nil
}

func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	return skipFrom(dec, tok)
}

// skipFrom consumes the rest of a value whose first token has already been read.
func skipFrom(dec *json.Decoder, tok json.Token) error {
	depth := 0
	for {
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
		if depth == 0 {
			return nil
		}
		var err error
		if tok, err = dec.Token(); err != nil {
			return err
		}
	}
}
