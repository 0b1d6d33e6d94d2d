package evm

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cast"
)

// ConvertArgs turns manifest values into the Go types go-ethereum packs for
// inputs. Numbers may be given as integers or decimal/hex strings, byte
// values as 0x-prefixed hex.
func ConvertArgs(inputs abi.Arguments, args []any) ([]any, error) {
	if len(inputs) != len(args) {
		return nil, fmt.Errorf("constructor takes %d argument(s), got %d", len(inputs), len(args))
	}

	out := make([]any, len(args))
	for i, input := range inputs {
		v, err := convertValue(input.Type, args[i])
		if err != nil {
			name := input.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			return nil, fmt.Errorf("argument %s (%s): %w", name, input.Type, err)
		}
		out[i] = v
	}
	return out, nil
}

func convertValue(typ abi.Type, v any) (any, error) {
	switch typ.T {
	case abi.AddressTy:
		return toAddress(v)
	case abi.BoolTy:
		return cast.ToBoolE(v)
	case abi.StringTy:
		return cast.ToStringE(v)
	case abi.IntTy, abi.UintTy:
		return toInteger(typ, v)
	case abi.BytesTy:
		return toBytes(v)
	case abi.FixedBytesTy:
		return toFixedBytes(typ, v)
	case abi.SliceTy, abi.ArrayTy:
		return toList(typ, v)
	default:
		return nil, fmt.Errorf("unsupported type")
	}
}

func toAddress(v any) (common.Address, error) {
	switch x := v.(type) {
	case common.Address:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		if !common.IsHexAddress(s) {
			return common.Address{}, fmt.Errorf("'%s' is not an address", s)
		}
		return common.HexToAddress(s), nil
	default:
		return common.Address{}, fmt.Errorf("expected an address, got %T", v)
	}
}

func toBigInt(v any) (*big.Int, error) {
	switch x := v.(type) {
	case *big.Int:
		return new(big.Int).Set(x), nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), "_", "")
		n, ok := new(big.Int).SetString(s, 0)
		if !ok {
			return nil, fmt.Errorf("'%s' is not an integer", x)
		}
		return n, nil
	case uint64:
		return new(big.Int).SetUint64(x), nil
	case uint:
		return new(big.Int).SetUint64(uint64(x)), nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("%v is not an integer", x)
		}
		n, _ := big.NewFloat(x).Int(nil)
		return n, nil
	default:
		n, err := cast.ToInt64E(v)
		if err != nil {
			return nil, err
		}
		return big.NewInt(n), nil
	}
}

func toInteger(typ abi.Type, v any) (any, error) {
	n, err := toBigInt(v)
	if err != nil {
		return nil, err
	}

	size := typ.Size
	if typ.T == abi.UintTy {
		if n.Sign() < 0 || n.BitLen() > size {
			return nil, fmt.Errorf("%s out of range", n)
		}
	} else {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(size-1))
		if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
			return nil, fmt.Errorf("%s out of range", n)
		}
	}

	// uint8..uint64 and int8..int64 pack from their native Go types
	goType := typ.GetType()
	switch goType.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		out := reflect.New(goType).Elem()
		out.SetUint(n.Uint64())
		return out.Interface(), nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		out := reflect.New(goType).Elem()
		out.SetInt(n.Int64())
		return out.Interface(), nil
	default:
		return n, nil
	}
}

func toBytes(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		b, err := hexutil.Decode(strings.TrimSpace(x))
		if err != nil {
			return nil, fmt.Errorf("'%s' is not 0x-prefixed hex: %w", x, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("expected hex bytes, got %T", v)
	}
}

func toFixedBytes(typ abi.Type, v any) (any, error) {
	b, err := toBytes(v)
	if err != nil {
		return nil, err
	}
	if len(b) != typ.Size {
		return nil, fmt.Errorf("expected %d bytes, got %d", typ.Size, len(b))
	}

	out := reflect.New(typ.GetType()).Elem()
	reflect.Copy(out, reflect.ValueOf(b))
	return out.Interface(), nil
}

func toList(typ abi.Type, v any) (any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	if typ.T == abi.ArrayTy && rv.Len() != typ.Size {
		return nil, fmt.Errorf("expected %d elements, got %d", typ.Size, rv.Len())
	}

	var out reflect.Value
	if typ.T == abi.ArrayTy {
		out = reflect.New(typ.GetType()).Elem()
	} else {
		out = reflect.MakeSlice(typ.GetType(), rv.Len(), rv.Len())
	}

	for i := 0; i < rv.Len(); i++ {
		elem, err := convertValue(*typ.Elem, rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(reflect.ValueOf(elem))
	}
	return out.Interface(), nil
}
