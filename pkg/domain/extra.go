package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// ErrInvalidID is returned when a stored record carries an id that is not a
// whole number.
var ErrInvalidID = errors.New("domain: record id is not a whole number")

// Extra holds fields present in a stored document that the typed record does
// not carry itself: unmodelled fields, modelled fields whose value does not
// fit the Go type, and modelled fields the struct would leave out when
// encoded ("" or null). They are written back unchanged so typed stores
// never drop data written by other consumers of the same overlay.
type Extra map[string]json.RawMessage

var knownFieldCache sync.Map // reflect.Type -> map[string]struct{}

// marshalWithExtra encodes known (a struct value) and folds in the extra
// fields the struct did not produce itself.
func marshalWithExtra(known any, extra Extra) ([]byte, error) {
	data, err := json.Marshal(known)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	produced := make(map[string]struct{}, len(fields))
	for k := range fields {
		produced[strings.ToLower(k)] = struct{}{}
	}
	for k, v := range extra {
		if _, ok := produced[strings.ToLower(k)]; ok {
			continue
		}
		fields[k] = v
	}
	return json.Marshal(fields)
}

// unmarshalWithExtra decodes data into known (a pointer to a struct without
// custom JSON methods) and returns everything the struct cannot carry. Only
// an id that is not a whole number fails the decode.
func unmarshalWithExtra(data []byte, known any) (Extra, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	names := knownFields(reflect.TypeOf(known).Elem())
	modelled := make(map[string]json.RawMessage, len(fields))
	extra := make(Extra)
	for k, v := range fields {
		if _, ok := names[strings.ToLower(k)]; ok {
			modelled[k] = v
		} else {
			extra[k] = v
		}
	}

	if err := json.Unmarshal(data, known); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return nil, err
		}
		if err := decodeFitting(modelled, extra, known); err != nil {
			return nil, err
		}
	}

	// Keep modelled fields that were present but will not be encoded again.
	out, err := json.Marshal(known)
	if err != nil {
		return nil, err
	}
	var produced map[string]json.RawMessage
	if err := json.Unmarshal(out, &produced); err != nil {
		return nil, err
	}
	emitted := make(map[string]struct{}, len(produced))
	for k := range produced {
		emitted[strings.ToLower(k)] = struct{}{}
	}
	for k, v := range modelled {
		if _, ok := emitted[strings.ToLower(k)]; !ok {
			extra[k] = v
		}
	}

	if len(extra) == 0 {
		return nil, nil
	}
	return extra, nil
}

// decodeFitting decodes the modelled fields one at a time. A field whose
// value does not fit its Go type moves to extra; an id is coerced with
// CoerceID.
func decodeFitting(modelled map[string]json.RawMessage, extra Extra, known any) error {
	t := reflect.TypeOf(known).Elem()
	fit := make(map[string]json.RawMessage, len(modelled))
	for k, v := range modelled {
		one, err := json.Marshal(map[string]json.RawMessage{k: v})
		if err != nil {
			return err
		}
		if json.Unmarshal(one, reflect.New(t).Interface()) == nil {
			fit[k] = v
			continue
		}
		if strings.EqualFold(k, "id") {
			id, ok := rawID(v)
			if !ok {
				return fmt.Errorf("%w: %s", ErrInvalidID, v)
			}
			fit[k] = json.RawMessage(strconv.FormatInt(id, 10))
			continue
		}
		extra[k] = v
		delete(modelled, k)
	}
	reflect.ValueOf(known).Elem().SetZero()
	b, err := json.Marshal(fit)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, known)
}

func rawID(raw json.RawMessage) (int64, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}
	return CoerceID(v)
}

func knownFields(t reflect.Type) map[string]struct{} {
	if cached, ok := knownFieldCache.Load(t); ok {
		return cached.(map[string]struct{})
	}
	names := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "" {
			name = f.Name
		}
		names[strings.ToLower(name)] = struct{}{}
	}
	knownFieldCache.Store(t, names)
	return names
}
