package nasc

import (
	"reflect"
	"sync"

	"github.com/toutaio/toutago-nasc-injection/signature"
)

// reflectionCache caches reflection metadata to avoid repeated type analysis.
type reflectionCache struct {
	mu sync.RWMutex

	// Struct field cache for auto-wiring
	fields map[reflect.Type][]fieldInfo

	// Default signatures of function types, before options are applied
	signatures map[reflect.Type]*signature.Signature
}

// fieldInfo stores metadata about a struct field for auto-wiring.
type fieldInfo struct {
	index        int
	name         string
	typ          reflect.Type
	tag          reflect.StructTag
	isInjectable bool
}

// newReflectionCache creates a new reflection cache.
func newReflectionCache() *reflectionCache {
	return &reflectionCache{
		fields:     make(map[reflect.Type][]fieldInfo),
		signatures: make(map[reflect.Type]*signature.Signature),
	}
}

// getFieldInfo retrieves or computes struct field information.
func (rc *reflectionCache) getFieldInfo(typ reflect.Type) []fieldInfo {
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}

	// Fast path: check cache with read lock
	rc.mu.RLock()
	fields, exists := rc.fields[typ]
	rc.mu.RUnlock()

	if exists {
		return fields
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()

	// Double-check after acquiring write lock
	if fields, exists = rc.fields[typ]; exists {
		return fields
	}

	if typ.Kind() != reflect.Struct {
		rc.fields[typ] = nil
		return nil
	}

	numFields := typ.NumField()
	fields = make([]fieldInfo, 0, numFields)

	for i := 0; i < numFields; i++ {
		field := typ.Field(i)

		// Exported and tagged fields only
		_, hasInjectTag := field.Tag.Lookup("inject")

		fields = append(fields, fieldInfo{
			index:        i,
			name:         field.Name,
			typ:          field.Type,
			tag:          field.Tag,
			isInjectable: field.IsExported() && hasInjectTag,
		})
	}

	rc.fields[typ] = fields
	return fields
}

// getSignature returns a private copy of the default signature of fnType,
// or nil for variadic functions.
func (rc *reflectionCache) getSignature(fnType reflect.Type) *signature.Signature {
	rc.mu.RLock()
	sig, exists := rc.signatures[fnType]
	rc.mu.RUnlock()

	if !exists {
		sig = signature.FromType(fnType)
		rc.mu.Lock()
		rc.signatures[fnType] = sig
		rc.mu.Unlock()
	}

	if sig == nil {
		return nil
	}
	return sig.Clone()
}

// clear clears all cached data.
func (rc *reflectionCache) clear() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.fields = make(map[reflect.Type][]fieldInfo)
	rc.signatures = make(map[reflect.Type]*signature.Signature)
}
