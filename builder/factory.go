package builder

import (
	"fmt"

	"github.com/TFMV/chunky/column"
)

// NewListBuilder returns the list builder variant for elem, chosen at run
// time. valueCapacity hints the total number of child elements and
// listCapacity the number of list rows. String children reserve
// valueCapacity times the configured bytes factor (DefaultUtf8BytesFactor
// unless overridden) of payload.
//
// Element types outside {numeric, Utf8, Boolean} are a programming error and
// panic with ErrUnsupportedType.
func NewListBuilder(elem column.DataType, valueCapacity, listCapacity int, name string, opts ...Option) ListBuilder {
	switch elem.Kind() {
	case column.KindBoolean:
		return NewListBoolean(name, listCapacity, valueCapacity, opts...)
	case column.KindUtf8:
		factor := newOptions(opts).utf8BytesFactor
		return NewListUtf8(name, listCapacity, valueCapacity, factor*valueCapacity, opts...)
	case column.KindInt8:
		return NewListNumeric[int8](name, listCapacity, valueCapacity, opts...)
	case column.KindInt16:
		return NewListNumeric[int16](name, listCapacity, valueCapacity, opts...)
	case column.KindInt32:
		return NewListNumeric[int32](name, listCapacity, valueCapacity, opts...)
	case column.KindInt64:
		return NewListNumeric[int64](name, listCapacity, valueCapacity, opts...)
	case column.KindUint8:
		return NewListNumeric[uint8](name, listCapacity, valueCapacity, opts...)
	case column.KindUint16:
		return NewListNumeric[uint16](name, listCapacity, valueCapacity, opts...)
	case column.KindUint32:
		return NewListNumeric[uint32](name, listCapacity, valueCapacity, opts...)
	case column.KindUint64:
		return NewListNumeric[uint64](name, listCapacity, valueCapacity, opts...)
	case column.KindFloat32:
		return NewListNumeric[float32](name, listCapacity, valueCapacity, opts...)
	case column.KindFloat64:
		return NewListNumeric[float64](name, listCapacity, valueCapacity, opts...)
	default:
		panic(fmt.Errorf("%w: %s", ErrUnsupportedType, elem))
	}
}
