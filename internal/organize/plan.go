package organize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"filebutler/internal/services"
)

// Plan maps folder names to the file IDs destined for them. Folder order is
// preserved from the decoded JSON because deduplication keeps the first
// occurrence of an ID in plan order.
type Plan struct {
	Folders map[string][]int64
	Order   []string
}

// NewPlan returns an empty plan ready for Add.
func NewPlan() *Plan {
	return &Plan{Folders: make(map[string][]int64)}
}

// Add appends a file ID to a folder, registering the folder on first use.
func (p *Plan) Add(folder string, id int64) {
	if p.Folders == nil {
		p.Folders = make(map[string][]int64)
	}
	if _, ok := p.Folders[folder]; !ok {
		p.Order = append(p.Order, folder)
	}
	p.Folders[folder] = append(p.Folders[folder], id)
}

// IsEmpty reports whether the plan contains no file assignments at all.
func (p *Plan) IsEmpty() bool {
	if p == nil {
		return true
	}
	for _, ids := range p.Folders {
		if len(ids) > 0 {
			return false
		}
	}
	return true
}

// FileCount returns the total number of file assignments across folders.
func (p *Plan) FileCount() int {
	total := 0
	for _, ids := range p.Folders {
		total += len(ids)
	}
	return total
}

// AssignedIDs returns the set of file IDs referenced anywhere in the plan.
func (p *Plan) AssignedIDs() map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, folderIDs := range p.Folders {
		for _, id := range folderIDs {
			ids[id] = struct{}{}
		}
	}
	return ids
}

// MarshalJSON renders the canonical {"folders": {...}} shape with folders in
// plan order, suitable for echoing back during refinement.
func (p *Plan) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"folders":{`)
	for i, folder := range p.Order {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(folder)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		ids, err := json.Marshal(p.Folders[folder])
		if err != nil {
			return nil, err
		}
		buf.Write(ids)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// DecodePlan parses a plan document while preserving the order folders appear
// in. encoding/json's map decoding discards key order, so the folders object
// is walked token by token instead.
func DecodePlan(data []byte) (*Plan, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, planError("plan must be a JSON object", err)
	}

	plan := NewPlan()
	sawFolders := false
	for dec.More() {
		key, err := stringToken(dec)
		if err != nil {
			return nil, planError("malformed plan object", err)
		}
		if key != "folders" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, planError("malformed plan value", err)
			}
			continue
		}
		sawFolders = true
		if err := decodeFolders(dec, plan); err != nil {
			return nil, err
		}
	}
	if !sawFolders {
		return nil, planError(`plan is missing the "folders" object`, nil)
	}
	return plan, nil
}

func decodeFolders(dec *json.Decoder, plan *Plan) error {
	if err := expectDelim(dec, '{'); err != nil {
		return planError(`"folders" must be an object`, err)
	}
	for dec.More() {
		folder, err := stringToken(dec)
		if err != nil {
			return planError("malformed folder name", err)
		}
		ids, err := decodeIDList(dec)
		if err != nil {
			return planError(fmt.Sprintf("folder %q has an invalid file list", folder), err)
		}
		for _, id := range ids {
			plan.Add(folder, id)
		}
		// A folder mentioned with no files still keeps its place in the
		// order so later repair steps can fill it.
		if len(ids) == 0 {
			if _, ok := plan.Folders[folder]; !ok {
				plan.Order = append(plan.Order, folder)
				plan.Folders[folder] = nil
			}
		}
	}
	_, err := dec.Token() // closing brace
	return err
}

func decodeIDList(dec *json.Decoder) ([]int64, error) {
	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}
	var ids []int64
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch v := tok.(type) {
		case json.Number:
			id, err := v.Int64()
			if err != nil {
				return nil, fmt.Errorf("non-integer file id %q", v.String())
			}
			ids = append(ids, id)
		case string:
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("non-integer file id %q", v)
			}
			ids = append(ids, id)
		default:
			return nil, fmt.Errorf("unexpected file id token %v", tok)
		}
	}
	if _, err := dec.Token(); err != nil { // closing bracket
		return nil, err
	}
	return ids, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %v", tok)
	}
	return s, nil
}

func planError(message string, err error) error {
	return services.Wrap(services.ErrValidation, "planning", "decode plan", message, err)
}
