package parquet

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/jacoelho/treeview/internal/value"
)

// convert maps element i of an Arrow array to a Value.
func convert(arr arrow.Array, i int) (value.Value, error) {
	if arr.IsNull(i) {
		return value.NewNull(), nil
	}

	switch a := arr.(type) {
	case *array.Null:
		return value.NewNull(), nil
	case *array.Boolean:
		return value.NewBool(a.Value(i)), nil

	case *array.Int8:
		return value.NewInt(int64(a.Value(i))), nil
	case *array.Int16:
		return value.NewInt(int64(a.Value(i))), nil
	case *array.Int32:
		return value.NewInt(int64(a.Value(i))), nil
	case *array.Int64:
		return value.NewInt(a.Value(i)), nil
	case *array.Uint8:
		return value.NewUint(uint64(a.Value(i))), nil
	case *array.Uint16:
		return value.NewUint(uint64(a.Value(i))), nil
	case *array.Uint32:
		return value.NewUint(uint64(a.Value(i))), nil
	case *array.Uint64:
		return value.NewUint(a.Value(i)), nil

	case *array.Float16:
		return value.NewFloat(float64(a.Value(i).Float32()), 32), nil
	case *array.Float32:
		return value.NewFloat(float64(a.Value(i)), 32), nil
	case *array.Float64:
		return value.NewFloat(a.Value(i), 64), nil

	case *array.Decimal32:
		return decimal(big.NewInt(int64(a.Value(i))), a.DataType()), nil
	case *array.Decimal64:
		return decimal(big.NewInt(int64(a.Value(i))), a.DataType()), nil
	case *array.Decimal128:
		return decimal(a.Value(i).BigInt(), a.DataType()), nil
	case *array.Decimal256:
		return decimal(a.Value(i).BigInt(), a.DataType()), nil

	case *array.String:
		return value.NewString(a.Value(i)), nil
	case *array.LargeString:
		return value.NewString(a.Value(i)), nil
	case *array.StringView:
		return value.NewString(a.Value(i)), nil
	case *array.Binary:
		return value.NewBinary(a.Value(i)), nil
	case *array.LargeBinary:
		return value.NewBinary(a.Value(i)), nil
	case *array.BinaryView:
		return value.NewBinary(a.Value(i)), nil
	case *array.FixedSizeBinary:
		return value.NewBinary(a.Value(i)), nil

	case *array.Timestamp:
		ts := a.DataType().(*arrow.TimestampType)
		return value.NewString(timestamp(a.Value(i).ToTime(ts.Unit), ts)), nil
	case *array.Date32:
		return value.NewString(a.Value(i).ToTime().Format(time.DateOnly)), nil
	case *array.Date64:
		return value.NewString(a.Value(i).ToTime().Format(time.DateOnly)), nil

	case *array.Struct:
		st := a.DataType().(*arrow.StructType)
		obj := value.NewObjectBuilder(a.NumField())
		for f := 0; f < a.NumField(); f++ {
			v, err := convert(a.Field(f), i)
			if err != nil {
				return value.Value{}, err
			}
			obj.Set(st.Field(f).Name, v)
		}
		return obj.Build(), nil

	case *array.Map:
		start, end := a.ValueOffsets(i)
		keys, items := a.Keys(), a.Items()
		obj := value.NewObjectBuilder(int(end - start))
		for j := int(start); j < int(end); j++ {
			k, err := convert(keys, j)
			if err != nil {
				return value.Value{}, err
			}
			v, err := convert(items, j)
			if err != nil {
				return value.Value{}, err
			}
			obj.Set(keyText(k), v)
		}
		return obj.Build(), nil

	case *array.List:
		start, end := a.ValueOffsets(i)
		return list(a.ListValues(), start, end)
	case *array.LargeList:
		start, end := a.ValueOffsets(i)
		return list(a.ListValues(), start, end)
	case *array.FixedSizeList:
		start, end := a.ValueOffsets(i)
		return list(a.ListValues(), start, end)

	case *array.Dictionary:
		return convert(a.Dictionary(), a.GetValueIndex(i))

	default:
		return value.NewString(arr.ValueStr(i)), nil
	}
}

func list(values arrow.Array, start, end int64) (value.Value, error) {
	items := make([]value.Value, 0, end-start)
	for j := start; j < end; j++ {
		v, err := convert(values, int(j))
		if err != nil {
			return value.Value{}, fmt.Errorf("list element %d: %w", j-start, err)
		}
		items = append(items, v)
	}
	return value.NewArray(items), nil
}

func keyText(k value.Value) string {
	if k.Kind().IsContainer() {
		return string(value.AppendJSON(nil, k))
	}
	return k.Text()
}

// decimal renders an unscaled integer with the scale of dt applied as a
// string, so consumers that read numbers as floats cannot round it.
func decimal(unscaled *big.Int, dt arrow.DataType) value.Value {
	scale := 0
	if d, ok := dt.(arrow.DecimalType); ok {
		scale = int(d.GetScale())
	}
	return value.NewString(DecimalLiteral(unscaled, scale))
}

// DecimalLiteral formats unscaled * 10^-scale exactly.
func DecimalLiteral(unscaled *big.Int, scale int) string {
	digits := new(big.Int).Abs(unscaled).String()
	neg := unscaled.Sign() < 0

	switch {
	case scale < 0:
		if digits != "0" {
			digits += strings.Repeat("0", -scale)
		}
	case scale > 0:
		if len(digits) <= scale {
			digits = strings.Repeat("0", scale-len(digits)+1) + digits
		}
		cut := len(digits) - scale
		digits = digits[:cut] + "." + digits[cut:]
	}

	if neg {
		return "-" + digits
	}
	return digits
}

var timestampLayouts = map[arrow.TimeUnit]string{
	arrow.Second:      "2006-01-02T15:04:05",
	arrow.Millisecond: "2006-01-02T15:04:05.000",
	arrow.Microsecond: "2006-01-02T15:04:05.000000",
	arrow.Nanosecond:  "2006-01-02T15:04:05.000000000",
}

// timestamp formats t at the precision of the column. Zone-aware columns are
// normalized to UTC and marked with Z.
func timestamp(t time.Time, ts *arrow.TimestampType) string {
	layout := timestampLayouts[ts.Unit]
	if ts.TimeZone == "" {
		return t.UTC().Format(layout)
	}
	return t.UTC().Format(layout) + "Z"
}
