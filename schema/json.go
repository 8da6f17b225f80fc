package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// orderedJSON is a JSON object that remembers the order keys were set
// in, so ToJSON output is deterministic (spec section 4.5: "iteration
// order MUST follow insertion order"). encoding/json's map[string]any
// does not preserve key order on either decode or encode, so both the
// ingestion side (jsonObject, below) and the emission side need their
// own order-preserving wrapper around it; this is ambient glue, not a
// reimplementation of JSON parsing itself, so it stays on
// encoding/json rather than a third-party decoder (see DESIGN.md).
type orderedJSON struct {
	keys []string
	vals map[string]interface{}
}

func newOrderedJSON() *orderedJSON {
	return &orderedJSON{vals: map[string]interface{}{}}
}

func (o *orderedJSON) set(key string, val interface{}) {
	if _, exists := o.vals[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = val
}

func (o *orderedJSON) len() int { return len(o.keys) }

// MarshalJSON emits keys in insertion order. json.Marshal recurses into
// any value that is itself a json.Marshaler, so nested *orderedJSON
// values serialize correctly without extra work here.
func (o *orderedJSON) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// jsonObject is the ingestion-side counterpart: a JSON object decoded
// with its key order preserved, and its values kept as json.RawMessage
// so a caller can classify the body (testJSON) before committing to a
// concrete shape.
type jsonObject struct {
	keys []string
	vals map[string]json.RawMessage
}

// decodeOrderedObject decodes a single JSON object value from raw,
// preserving the source key order via token-level streaming
// (encoding/json.Decoder), since json.Unmarshal into map[string]any
// would discard it.
func decodeOrderedObject(raw json.RawMessage) (*jsonObject, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("protowire/schema: expected JSON object")
	}
	obj := &jsonObject{vals: map[string]json.RawMessage{}}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("protowire/schema: expected string object key")
		}
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return nil, err
		}
		if _, exists := obj.vals[key]; !exists {
			obj.keys = append(obj.keys, key)
		}
		obj.vals[key] = val
	}
	if _, err := dec.Token(); err != nil { // consume closing '}'
		return nil, err
	}
	return obj, nil
}

// ParseJSON decodes a top-level JSON document into a jsonObject,
// suitable for passing to Namespace.AddJSON.
func ParseJSON(data []byte) (*jsonObject, error) {
	return decodeOrderedObject(json.RawMessage(data))
}

func (o *jsonObject) has(key string) bool {
	_, ok := o.vals[key]
	return ok
}

func (o *jsonObject) str(key string) (string, bool) {
	raw, ok := o.vals[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func (o *jsonObject) num(key string) (float64, bool) {
	raw, ok := o.vals[key]
	if !ok {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	return n, true
}

func (o *jsonObject) boolean(key string) (bool, bool) {
	raw, ok := o.vals[key]
	if !ok {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, false
	}
	return b, true
}

func (o *jsonObject) obj(key string) (*jsonObject, bool) {
	raw, ok := o.vals[key]
	if !ok {
		return nil, false
	}
	sub, err := decodeOrderedObject(raw)
	if err != nil {
		return nil, false
	}
	return sub, true
}

func (o *jsonObject) any(key string) (interface{}, bool) {
	raw, ok := o.vals[key]
	if !ok {
		return nil, false
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	return v, true
}

// classifyAndBuild runs the testJSON classifiers in the order spec
// section 4.5 describes (id => Field, values => Enum, fields => Type,
// methods => Service, else Namespace) and constructs the matching
// concrete object. Method is deliberately excluded here: it is only
// constructed from within a Service's own "methods" map
// (serviceFromJSON), never directly addable to a Namespace, so
// this classifier only ever returns kinds Namespace.Add accepts.
func classifyAndBuild(name string, body *jsonObject) (object, error) {
	switch {
	case body.has("id"):
		return fieldFromJSON(name, body)
	case body.has("values"):
		return enumFromJSON(name, body)
	case body.has("fields"):
		return typeFromJSON(name, body)
	case body.has("methods"):
		return serviceFromJSON(name, body)
	default:
		return namespaceFromJSON(name, body)
	}
}

func applyOptions(b *Base, body *jsonObject) {
	opts, ok := body.obj("options")
	if !ok {
		return
	}
	for _, k := range opts.keys {
		if v, ok := opts.any(k); ok {
			b.SetOption(k, v, false)
		}
	}
}

func namespaceFromJSON(name string, body *jsonObject) (*Namespace, error) {
	ns := NewNamespace(name)
	applyOptions(&ns.Base, body)
	if nested, ok := body.obj("nested"); ok {
		if err := ns.AddJSON(nested); err != nil {
			return nil, err
		}
	}
	return ns, nil
}

func fieldFromJSON(name string, body *jsonObject) (*Field, error) {
	id, ok := body.num("id")
	if !ok {
		return nil, fmt.Errorf("%w: field %q missing id", ErrInvalidField, name)
	}
	typeName, ok := body.str("type")
	if !ok {
		return nil, fmt.Errorf("%w: field %q missing type", ErrInvalidField, name)
	}
	rule := RuleOptional
	if r, ok := body.str("rule"); ok {
		rule = ParseRule(r)
	}
	f := NewField(name, uint32(id), typeName, rule)
	if ext, ok := body.str("extend"); ok {
		f.SetExtend(ext)
	}
	if isMap, ok := body.boolean("map"); ok && isMap {
		f.SetMap(true)
	}
	applyOptions(&f.Base, body)
	return f, nil
}

func enumFromJSON(name string, body *jsonObject) (*Enum, error) {
	e := NewEnum(name)
	values, ok := body.obj("values")
	if !ok {
		return nil, fmt.Errorf("%w: enum %q missing values", ErrInvalidField, name)
	}
	for _, k := range values.keys {
		n, ok := values.num(k)
		if !ok {
			return nil, fmt.Errorf("%w: enum %q value %q is not numeric", ErrInvalidField, name, k)
		}
		e.Add(k, int32(n))
	}
	applyOptions(&e.Base, body)
	return e, nil
}

func typeFromJSON(name string, body *jsonObject) (*Type, error) {
	t := NewType(name)
	applyOptions(&t.Base, body)
	if fields, ok := body.obj("fields"); ok {
		for _, fname := range fields.keys {
			fbody, ok := fields.obj(fname)
			if !ok {
				return nil, fmt.Errorf("%w: type %q field %q is not an object", ErrInvalidField, name, fname)
			}
			f, err := fieldFromJSON(fname, fbody)
			if err != nil {
				return nil, err
			}
			if err := t.AddField(f); err != nil {
				return nil, err
			}
		}
	}
	if oneofs, ok := body.obj("oneofs"); ok {
		for _, ofname := range oneofs.keys {
			ofbody, ok := oneofs.obj(ofname)
			if !ok {
				continue
			}
			oneof := NewOneOf(ofname)
			if members, ok := ofbody.any("oneof"); ok {
				if list, ok := members.([]interface{}); ok {
					for _, m := range list {
						if mname, ok := m.(string); ok {
							if err := t.AddFieldToOneOf(mname, oneof); err != nil {
								return nil, err
							}
						}
					}
				}
			}
		}
	}
	if nested, ok := body.obj("nested"); ok {
		if err := t.AddJSON(nested); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func serviceFromJSON(name string, body *jsonObject) (*Service, error) {
	s := NewService(name)
	applyOptions(&s.Base, body)
	if methods, ok := body.obj("methods"); ok {
		for _, mname := range methods.keys {
			mbody, ok := methods.obj(mname)
			if !ok {
				continue
			}
			requestType, _ := mbody.str("requestType")
			responseType, _ := mbody.str("responseType")
			requestStream, _ := mbody.boolean("requestStream")
			responseStream, _ := mbody.boolean("responseStream")
			m := NewMethod(mname, requestType, responseType, requestStream, responseStream)
			applyOptions(&m.Base, mbody)
			if err := s.AddMethod(m); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// AddJSON ingests nested's entries in source order, classifying each
// body via classifyAndBuild and adding the result (spec section 4.5,
// spec section 9 decision: the upstream reference has a control-flow
// bug here where a single malformed entry aborts silently rather than
// reporting which key failed; this implementation returns a wrapped
// error naming the offending key instead).
func (ns *Namespace) AddJSON(nested *jsonObject) error {
	for _, name := range nested.keys {
		body, ok := nested.obj(name)
		if !ok {
			return fmt.Errorf("%w: %q is not a JSON object", ErrNoJSONMatch, name)
		}
		obj, err := classifyAndBuild(name, body)
		if err != nil {
			return fmt.Errorf("protowire/schema: adding %q: %w", name, err)
		}
		if err := ns.Add(obj); err != nil {
			return fmt.Errorf("protowire/schema: adding %q: %w", name, err)
		}
	}
	return nil
}

// ToJSON renders this namespace back to the ordered dialect AddJSON
// consumes. A namespace that is not explicitly visible and has no
// descendant that produced output emits (nil, false), so an invisible,
// empty branch of the tree is pruned from the output entirely. A
// namespace with no parent (the root) always emits.
func (ns *Namespace) ToJSON() (*orderedJSON, bool) {
	out := newOrderedJSON()
	if len(ns.options) > 0 {
		out.set("options", ns.options)
	}
	nestedOut := newOrderedJSON()
	any := false
	ns.Each(func(name string, child object) bool {
		if j, ok := jsonOf(child); ok {
			nestedOut.set(name, j)
			any = true
		}
		return true
	})
	if any {
		out.set("nested", nestedOut)
	}
	if (ns.visibleSet() && ns.Visible()) || any || ns.parent == nil {
		return out, true
	}
	return nil, false
}

// jsonOf dispatches to the concrete type's own ToJSON, since object
// does not expose one. A Field (including an extension Field at
// namespace scope) always emits; a kind with no case here yields
// (nil, false).
func jsonOf(obj object) (interface{}, bool) {
	switch v := obj.(type) {
	case *Namespace:
		return v.ToJSON()
	case *Type:
		return v.ToJSON()
	case *Enum:
		return v.ToJSON()
	case *Field:
		return v.ToJSON()
	case *Service:
		return v.ToJSON()
	default:
		return nil, false
	}
}
