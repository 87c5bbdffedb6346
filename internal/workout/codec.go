package workout

import (
	"encoding/json"
	"fmt"
)

// Marshal encodes the document in its wire form.
func Marshal(doc Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a wire document and normalizes it over Default.
func Unmarshal(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode document: %w", err)
	}
	return Normalize(doc), nil
}
