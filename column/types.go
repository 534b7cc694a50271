package column

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// ---------------------------------------------------------------------
// Logical Types
// ---------------------------------------------------------------------

// Kind enumerates the closed set of logical types a column can have.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindBoolean
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindUtf8
	KindList
	KindCategorical
)

var kindNames = [...]string{
	KindUnknown:     "unknown",
	KindBoolean:     "bool",
	KindInt8:        "i8",
	KindInt16:       "i16",
	KindInt32:       "i32",
	KindInt64:       "i64",
	KindUint8:       "u8",
	KindUint16:      "u16",
	KindUint32:      "u32",
	KindUint64:      "u64",
	KindFloat32:     "f32",
	KindFloat64:     "f64",
	KindUtf8:        "str",
	KindList:        "list",
	KindCategorical: "cat",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// DataType is the logical type of a column. List types carry their element
// type; all other kinds are fully described by their Kind.
type DataType struct {
	kind Kind
	elem *DataType
}

var (
	Boolean     = DataType{kind: KindBoolean}
	Int8        = DataType{kind: KindInt8}
	Int16       = DataType{kind: KindInt16}
	Int32       = DataType{kind: KindInt32}
	Int64       = DataType{kind: KindInt64}
	Uint8       = DataType{kind: KindUint8}
	Uint16      = DataType{kind: KindUint16}
	Uint32      = DataType{kind: KindUint32}
	Uint64      = DataType{kind: KindUint64}
	Float32     = DataType{kind: KindFloat32}
	Float64     = DataType{kind: KindFloat64}
	Utf8        = DataType{kind: KindUtf8}
	Categorical = DataType{kind: KindCategorical}
)

// List returns the list type with the given element type.
func List(elem DataType) DataType {
	return DataType{kind: KindList, elem: &elem}
}

func (d DataType) Kind() Kind { return d.kind }

// Elem returns the element type of a list. It returns the zero DataType for
// every other kind.
func (d DataType) Elem() DataType {
	if d.elem == nil {
		return DataType{}
	}
	return *d.elem
}

func (d DataType) IsNumeric() bool {
	return d.kind >= KindInt8 && d.kind <= KindFloat64
}

func (d DataType) IsFloat() bool {
	return d.kind == KindFloat32 || d.kind == KindFloat64
}

func (d DataType) IsSigned() bool {
	return (d.kind >= KindInt8 && d.kind <= KindInt64) || d.IsFloat()
}

// BitWidth returns the width of one value in bits for fixed-width kinds and
// zero for variable-width kinds.
func (d DataType) BitWidth() int {
	switch d.kind {
	case KindBoolean:
		return 1
	case KindInt8, KindUint8:
		return 8
	case KindInt16, KindUint16:
		return 16
	case KindInt32, KindUint32, KindFloat32, KindCategorical:
		return 32
	case KindInt64, KindUint64, KindFloat64:
		return 64
	default:
		return 0
	}
}

// Equal reports whether two types are identical, recursing into list elements.
func (d DataType) Equal(o DataType) bool {
	if d.kind != o.kind {
		return false
	}
	if d.kind == KindList {
		return d.Elem().Equal(o.Elem())
	}
	return true
}

func (d DataType) String() string {
	if d.kind == KindList {
		return "list[" + d.Elem().String() + "]"
	}
	return d.kind.String()
}

// Arrow returns the physical arrow type backing chunks of this logical type.
// Categorical columns are stored as uint32 codes.
func (d DataType) Arrow() arrow.DataType {
	switch d.kind {
	case KindBoolean:
		return arrow.FixedWidthTypes.Boolean
	case KindInt8:
		return arrow.PrimitiveTypes.Int8
	case KindInt16:
		return arrow.PrimitiveTypes.Int16
	case KindInt32:
		return arrow.PrimitiveTypes.Int32
	case KindInt64:
		return arrow.PrimitiveTypes.Int64
	case KindUint8:
		return arrow.PrimitiveTypes.Uint8
	case KindUint16:
		return arrow.PrimitiveTypes.Uint16
	case KindUint32, KindCategorical:
		return arrow.PrimitiveTypes.Uint32
	case KindUint64:
		return arrow.PrimitiveTypes.Uint64
	case KindFloat32:
		return arrow.PrimitiveTypes.Float32
	case KindFloat64:
		return arrow.PrimitiveTypes.Float64
	case KindUtf8:
		return arrow.BinaryTypes.String
	case KindList:
		return arrow.ListOf(d.Elem().Arrow())
	default:
		panic(fmt.Sprintf("column: no arrow type for %s", d))
	}
}

// TypeFromArrow maps a physical arrow type back to its logical type.
func TypeFromArrow(dt arrow.DataType) (DataType, error) {
	switch dt.ID() {
	case arrow.BOOL:
		return Boolean, nil
	case arrow.INT8:
		return Int8, nil
	case arrow.INT16:
		return Int16, nil
	case arrow.INT32:
		return Int32, nil
	case arrow.INT64:
		return Int64, nil
	case arrow.UINT8:
		return Uint8, nil
	case arrow.UINT16:
		return Uint16, nil
	case arrow.UINT32:
		return Uint32, nil
	case arrow.UINT64:
		return Uint64, nil
	case arrow.FLOAT32:
		return Float32, nil
	case arrow.FLOAT64:
		return Float64, nil
	case arrow.STRING:
		return Utf8, nil
	case arrow.LIST:
		elem, err := TypeFromArrow(dt.(*arrow.ListType).Elem())
		if err != nil {
			return DataType{}, err
		}
		return List(elem), nil
	default:
		return DataType{}, Errorf(ErrSchemaMismatch, "unsupported arrow type %s", dt)
	}
}

// ---------------------------------------------------------------------
// Go type binding
// ---------------------------------------------------------------------

// Numeric is the set of Go types backing the numeric logical types.
type Numeric interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

// NumericType returns the logical type stored by values of type T.
func NumericType[T Numeric]() DataType {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case float32:
		return Float32
	default:
		return Float64
	}
}

// Field is the name and type of a column.
type Field struct {
	Name string
	Type DataType
}

func (f Field) String() string {
	return f.Name + ": " + f.Type.String()
}
