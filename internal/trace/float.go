package trace

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// jsonFloat encodes NaN and ±Inf as the strings "NaN", "+Inf" and "-Inf",
// which plain JSON numbers cannot represent.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func (f *jsonFloat) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch s {
		case "NaN":
			*f = jsonFloat(math.NaN())
		case "+Inf", "Inf":
			*f = jsonFloat(math.Inf(1))
		case "-Inf":
			*f = jsonFloat(math.Inf(-1))
		default:
			return fmt.Errorf("invalid number %q", s)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = jsonFloat(v)
	return nil
}

// snapshotJSON is the persisted form of a Snapshot.
type snapshotJSON struct {
	Iteration int        `json:"iteration"`
	Timestamp float64    `json:"timestamp"`
	Primal    jsonFloat  `json:"primal"`
	Dual      *jsonFloat `json:"dual,omitempty"`
	Loss      *jsonFloat `json:"loss,omitempty"`
}

// MarshalJSON keeps non-finite objective values, which diverging optimizers
// do report.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{
		Iteration: s.Iteration,
		Timestamp: s.Timestamp,
		Primal:    jsonFloat(s.Primal),
		Dual:      (*jsonFloat)(s.Dual),
		Loss:      (*jsonFloat)(s.Loss),
	})
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var w snapshotJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Snapshot{
		Iteration: w.Iteration,
		Timestamp: w.Timestamp,
		Primal:    float64(w.Primal),
		Dual:      (*float64)(w.Dual),
		Loss:      (*float64)(w.Loss),
	}
	return nil
}
