package couchkit

import "encoding/json"

// DesignGet fetches a design document by name (with or without the
// "_design/" prefix). The document body is returned in the result's Meta
// field; no rows are produced.
func (b *Bucket) DesignGet(name string) (*ViewResult, error) {
	path, err := designPath(name)
	if err != nil {
		return nil, err
	}
	return b.slurpPath("GET", path, nil)
}

// DesignPut stores a design document. doc may be raw serialized bytes (a
// []byte, string or json.RawMessage whose "_id" field names the design
// path), or a structured value that is serialized to JSON after extracting
// its "_id".
func (b *Bucket) DesignPut(doc any) (*ViewResult, error) {
	body, err := designBody(doc)
	if err != nil {
		return nil, err
	}

	var ident struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(body, &ident); err != nil {
		return nil, ErrMalformedRequest
	}
	path, err := designPath(ident.ID)
	if err != nil {
		return nil, err
	}
	return b.slurpPath("PUT", path, body)
}

// DesignRemove deletes a design document by name.
func (b *Bucket) DesignRemove(name string) (*ViewResult, error) {
	path, err := designPath(name)
	if err != nil {
		return nil, err
	}
	return b.slurpPath("DELETE", path, nil)
}

func designBody(doc any) ([]byte, error) {
	switch v := doc.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return []byte(v), nil
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(doc)
	}
}

func designPath(name string) (string, error) {
	if name == "" {
		return "", ErrMalformedRequest
	}
	if len(name) >= len("_design/") && name[:len("_design/")] == "_design/" {
		return name, nil
	}
	return "_design/" + name, nil
}
