// Package document encodes rendered node trees into JSON-compatible
// documents for the client.
//
// Rendered nodes become {"__elementName": name, "props": {...}}. Functions
// cannot cross the wire, so each one is replaced by {"__callableId": id}
// and kept in the document's callable table until the next document.
// Objects implementing [export.Exportable] are sent by reference as
// {"__objectId": id}, with ids allocated from an [export.Referencer].
package document

import (
	"encoding"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"time"

	"github.com/go-drift/driftui/pkg/core"
	"github.com/go-drift/driftui/pkg/errors"
	"github.com/go-drift/driftui/pkg/export"
)

// Keys of the encoded document.
const (
	ElementNameKey = "__elementName"
	PropsKey       = "props"
	CallableIDKey  = "__callableId"
	ObjectIDKey    = "__objectId"
)

// CallablePrefix prefixes callable ids.
const CallablePrefix = "cb"

// Document is one encoded tree plus the callables it refers to.
type Document struct {
	Root      map[string]any
	Callables *Callables
}

// Encoder encodes one document. It is not safe for concurrent use; create
// one per outbound message.
type Encoder struct {
	refs      export.Referencer
	callables *Callables
}

// NewEncoder returns an encoder that references exportable objects
// through refs. A nil refs rejects exportable objects.
func NewEncoder(refs export.Referencer) *Encoder {
	return &Encoder{refs: refs, callables: newCallables()}
}

// Encode encodes node and everything below it.
func Encode(refs export.Referencer, node *core.RenderedNode) (*Document, error) {
	e := NewEncoder(refs)
	root, err := e.EncodeNode(node)
	if err != nil {
		return nil, err
	}
	return &Document{Root: root, Callables: e.Callables()}, nil
}

// Callables returns the callables registered so far.
func (e *Encoder) Callables() *Callables {
	return e.callables
}

// EncodeNode encodes a rendered node.
func (e *Encoder) EncodeNode(node *core.RenderedNode) (map[string]any, error) {
	if node == nil {
		return nil, e.fail(nil, fmt.Errorf("nil node"))
	}
	props, err := e.encodeMap(node.Props)
	if err != nil {
		return nil, err
	}
	return map[string]any{ElementNameKey: node.Name, PropsKey: props}, nil
}

// EncodeValue encodes an arbitrary prop value.
func (e *Encoder) EncodeValue(value any) (any, error) {
	switch v := value.(type) {
	case nil, string, bool, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return v, nil
	case *core.RenderedNode:
		return e.EncodeNode(v)
	case export.Exportable:
		return e.encodeObject(v)
	case core.Props:
		return e.encodeMap(v)
	case map[string]any:
		return e.encodeMap(v)
	case []any:
		return e.encodeList(v)
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case encoding.TextMarshaler:
		text, err := v.MarshalText()
		if err != nil {
			return nil, e.fail(v, err)
		}
		return string(text), nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Func:
		if rv.IsNil() {
			return nil, nil
		}
		return map[string]any{CallableIDKey: e.callables.add(value)}, nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil, nil
		}
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return e.encodeList(items)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, e.fail(value, fmt.Errorf("map key type %s is not a string", rv.Type().Key()))
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return e.encodeMap(m)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return e.EncodeValue(rv.Elem().Interface())
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Struct:
		// Plain structs are left to encoding/json.
		return value, nil
	}
	return nil, e.fail(value, fmt.Errorf("unsupported value of type %T", value))
}

func (e *Encoder) encodeMap(m map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(m))
	// Sorted so that callable ids are assigned deterministically.
	for _, key := range slices.Sorted(maps.Keys(m)) {
		v, err := e.EncodeValue(m[key])
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

func (e *Encoder) encodeList(items []any) ([]any, error) {
	out := make([]any, len(items))
	for i, item := range items {
		v, err := e.EncodeValue(item)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *Encoder) encodeObject(obj export.Exportable) (any, error) {
	if e.refs == nil {
		return nil, e.fail(obj, fmt.Errorf("no referencer for %s object", obj.ExportType()))
	}
	ref, err := e.refs.Reference(obj)
	if err != nil {
		return nil, e.fail(obj, err)
	}
	return map[string]any{ObjectIDKey: ref.ID}, nil
}

func (e *Encoder) fail(value any, err error) error {
	return &errors.Error{
		Op:   "document.encode",
		Kind: errors.KindProtocol,
		Err:  fmt.Errorf("encode %T: %w", value, err),
	}
}

// Callables maps the callable ids of one document to their functions.
type Callables struct {
	fns []any
}

func newCallables() *Callables {
	return &Callables{}
}

func (c *Callables) add(fn any) string {
	id := CallablePrefix + strconv.Itoa(len(c.fns))
	c.fns = append(c.fns, fn)
	return id
}

// Len returns the number of callables.
func (c *Callables) Len() int {
	if c == nil {
		return 0
	}
	return len(c.fns)
}

// Lookup returns the function registered under id.
func (c *Callables) Lookup(id string) (any, bool) {
	if c == nil || len(id) <= len(CallablePrefix) || id[:len(CallablePrefix)] != CallablePrefix {
		return nil, false
	}
	n, err := strconv.Atoi(id[len(CallablePrefix):])
	if err != nil || n < 0 || n >= len(c.fns) || CallablePrefix+strconv.Itoa(n) != id {
		return nil, false
	}
	return c.fns[n], true
}
