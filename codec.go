package pdftemplate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// UnmarshalJSON decodes a tagged-union element list. A missing "type" means
// text; an unknown one is an ErrInvalidTemplate. Null entries are dropped.
func (es *Elements) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*es = nil
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("%w: elements: %v", ErrInvalidTemplate, err)
	}
	out := make(Elements, 0, len(raws))
	for i, raw := range raws {
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		e, err := decodeElement(raw)
		if err != nil {
			return fmt.Errorf("%w: element %d: %v", ErrInvalidTemplate, i, err)
		}
		out = append(out, e)
	}
	*es = out
	return nil
}

func decodeElement(raw json.RawMessage) (Element, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	base := Base{BBox: DefaultBBox()}

	var e Element
	switch Kind(strings.ToLower(head.Type)) {
	case KindText, "":
		e = &TextElement{Base: base}
	case KindCheckbox:
		e = &CheckboxElement{Base: base}
	case KindImage:
		e = &ImageElement{Base: base}
	case KindRepeat:
		e = &RepeatElement{Base: base}
	case KindBarcode:
		e = &BarcodeElement{Base: base}
	default:
		return nil, fmt.Errorf("unknown element type %q", head.Type)
	}
	if err := json.Unmarshal(raw, e); err != nil {
		return nil, err
	}
	if r, ok := e.(*RepeatElement); ok && r.RowHeight <= 0 {
		r.RowHeight = DefaultRowHeight
	}
	return e, nil
}

// MarshalJSON encodes a nil list as an empty array.
func (es Elements) MarshalJSON() ([]byte, error) {
	if es == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Element(es))
}

// ParseElements converts a generic JSON value (as found in a decoded request
// body) into an element list.
func ParseElements(v any) (Elements, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: elements: %v", ErrInvalidTemplate, err)
	}
	var es Elements
	if err := json.Unmarshal(data, &es); err != nil {
		return nil, err
	}
	return es, nil
}

// UnmarshalJSON fills in defaults for missing bbox keys.
func (b *BBox) UnmarshalJSON(data []byte) error {
	var raw struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
		W *float64 `json:"w"`
		H *float64 `json:"h"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = DefaultBBox()
	if raw.X != nil {
		b.X = *raw.X
	}
	if raw.Y != nil {
		b.Y = *raw.Y
	}
	if raw.W != nil {
		b.W = *raw.W
	}
	if raw.H != nil {
		b.H = *raw.H
	}
	return nil
}

// UnmarshalJSON fills in the default column width.
func (c *Column) UnmarshalJSON(data []byte) error {
	var raw struct {
		Key   string   `json:"key"`
		X     float64  `json:"x"`
		W     *float64 `json:"w"`
		Align Align    `json:"align"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Column{Key: raw.Key, X: raw.X, W: DefaultColumnW, Align: raw.Align}
	if raw.W != nil {
		c.W = *raw.W
	}
	return nil
}

func (e *TextElement) MarshalJSON() ([]byte, error) {
	type alias TextElement
	return json.Marshal(struct {
		Type Kind `json:"type"`
		*alias
	}{KindText, (*alias)(e)})
}

func (e *CheckboxElement) MarshalJSON() ([]byte, error) {
	type alias CheckboxElement
	return json.Marshal(struct {
		Type Kind `json:"type"`
		*alias
	}{KindCheckbox, (*alias)(e)})
}

func (e *ImageElement) MarshalJSON() ([]byte, error) {
	type alias ImageElement
	return json.Marshal(struct {
		Type Kind `json:"type"`
		*alias
	}{KindImage, (*alias)(e)})
}

func (e *RepeatElement) MarshalJSON() ([]byte, error) {
	type alias RepeatElement
	return json.Marshal(struct {
		Type Kind `json:"type"`
		*alias
	}{KindRepeat, (*alias)(e)})
}

func (e *BarcodeElement) MarshalJSON() ([]byte, error) {
	type alias BarcodeElement
	return json.Marshal(struct {
		Type Kind `json:"type"`
		*alias
	}{KindBarcode, (*alias)(e)})
}
