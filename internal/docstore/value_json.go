package docstore

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// jsonValue is the persisted form of a Value. The kind tag keeps int/float
// and time/string distinguishable across a round trip, which plain JSON
// values would not.
type jsonValue struct {
	Kind  string           `json:"k"`
	Bool  bool             `json:"b,omitempty"`
	Int   int64            `json:"i,omitempty"`
	Float float64          `json:"f,omitempty"`
	Str   string           `json:"s,omitempty"`
	Time  string           `json:"t,omitempty"`
	List  []Value          `json:"l,omitempty"`
	Map   map[string]Value `json:"m,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	out := jsonValue{Kind: v.Kind.String()}
	switch v.Kind {
	case KindNull, KindServerTimestamp:
	case KindBool:
		out.Bool = v.Bool
	case KindInt:
		out.Int = v.Int
	case KindFloat:
		out.Float = v.Float
	case KindString:
		out.Str = v.Str
	case KindTime:
		out.Time = v.Time.UTC().Format(time.RFC3339Nano)
	case KindList:
		out.List = v.List
	case KindMap:
		out.Map = v.Map
	default:
		return nil, errors.Wrapf(ErrValueUnsupported, "kind %s", v.Kind)
	}
	return json.Marshal(out)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var in jsonValue
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Kind {
	case "null":
		*v = Null()
	case "server-timestamp":
		*v = ServerTimestamp()
	case "bool":
		*v = Bool(in.Bool)
	case "int":
		*v = Int(in.Int)
	case "float":
		*v = Float(in.Float)
	case "string":
		*v = String(in.Str)
	case "time":
		t, err := time.Parse(time.RFC3339Nano, in.Time)
		if err != nil {
			return errors.Wrap(err, "failed to parse time value")
		}
		*v = Time(t)
	case "list":
		if in.List == nil {
			in.List = []Value{}
		}
		*v = Value{Kind: KindList, List: in.List}
	case "map":
		if in.Map == nil {
			in.Map = map[string]Value{}
		}
		*v = Map(in.Map)
	default:
		return errors.Wrapf(ErrValueUnsupported, "kind %q", in.Kind)
	}
	return nil
}
