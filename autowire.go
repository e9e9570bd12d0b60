package nasc

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// tagOptions represents parsed options from an inject tag.
type tagOptions struct {
	skip     bool // Don't inject this field
	optional bool // Leave the field alone if no binding is found
}

// parseInjectTag parses an inject struct tag and returns options.
// Supported formats:
//   - `inject:""` - basic injection
//   - `inject:"optional"` - optional injection
//   - `inject:"-"` - never injected
func parseInjectTag(tag string) tagOptions {
	opts := tagOptions{}

	if tag == "-" {
		opts.skip = true
		return opts
	}

	for _, part := range strings.Split(tag, ",") {
		if strings.TrimSpace(part) == "optional" {
			opts.optional = true
		}
	}

	return opts
}

// autoWireFieldInfo holds metadata about a field to inject.
type autoWireFieldInfo struct {
	owner      reflect.Type
	field      reflect.StructField
	fieldValue reflect.Value
	options    tagOptions
}

// getInjectableFields scans a struct and returns fields that need injection.
func (m *Module) getInjectableFields(structValue reflect.Value) []autoWireFieldInfo {
	var fields []autoWireFieldInfo

	structType := structValue.Type()
	if structType.Kind() == reflect.Ptr {
		structType = structType.Elem()
		structValue = structValue.Elem()
	}

	if structType.Kind() != reflect.Struct {
		return fields
	}

	for _, cached := range m.reflectionCache.getFieldInfo(structType) {
		if !cached.isInjectable {
			continue
		}

		opts := parseInjectTag(cached.tag.Get("inject"))
		if opts.skip {
			continue
		}

		fields = append(fields, autoWireFieldInfo{
			owner:      structType,
			field:      structType.Field(cached.index),
			fieldValue: structValue.Field(cached.index),
			options:    opts,
		})
	}

	return fields
}

// AutoWire injects dependencies into the tagged fields of a struct.
// Each tagged field is a dependency requested by its type. A field that
// already holds a non-zero value was set by the caller and is kept.
//
// Supported tag options:
//   - `inject:""` - required (fails if not found)
//   - `inject:"optional"` - optional (skipped if not found)
//   - `inject:"-"` - ignored
//
// Example:
//
//	type Service struct {
//	    Logger Logger `inject:""`
//	    Cache  Cache  `inject:"optional"`
//	}
//
//	service := &Service{}
//	module.AutoWire(service)
func (m *Module) AutoWire(instance any) error {
	if instance == nil {
		return &InvalidBindingError{Reason: "cannot auto-wire nil instance"}
	}

	value := reflect.ValueOf(instance)
	if value.Kind() != reflect.Ptr || value.IsNil() {
		return &InvalidBindingError{Reason: fmt.Sprintf("AutoWire requires a non-nil pointer to struct, got %T", instance)}
	}

	if value.Elem().Kind() != reflect.Struct {
		return &InvalidBindingError{Reason: fmt.Sprintf("AutoWire requires a pointer to struct, got pointer to %v", value.Elem().Kind())}
	}

	return m.autoWire(value, nil)
}

func (m *Module) autoWire(value reflect.Value, chain *frame) error {
	for i, field := range m.getInjectableFields(value) {
		if err := m.injectField(i, field, chain); err != nil {
			return err
		}
	}

	return nil
}

// injectField injects a single field.
func (m *Module) injectField(index int, field autoWireFieldInfo, chain *frame) error {
	if !field.fieldValue.IsZero() {
		return nil
	}

	fieldType := field.field.Type
	instance, err := m.findInstance(fieldType, chain)
	if err != nil {
		if field.options.optional && errors.Is(err, ErrNoInjectable) {
			var missing *NoInjectableError
			if errors.As(err, &missing) && missing.Type == fieldType {
				return nil
			}
		}
		return &UnresolvableDependencyError{
			Function:  field.owner.String(),
			Parameter: field.field.Name,
			Index:     index,
			Types:     []reflect.Type{fieldType},
			Cause:     err,
		}
	}

	v, err := valueFor(instance, fieldType)
	if err != nil {
		return &UnresolvableDependencyError{
			Function:  field.owner.String(),
			Parameter: field.field.Name,
			Index:     index,
			Types:     []reflect.Type{fieldType},
			Cause:     err,
		}
	}

	field.fieldValue.Set(v)
	return nil
}
