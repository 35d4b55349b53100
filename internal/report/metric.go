package report

import "encoding/json"

// Metric is a numeric report field that the upstream source may omit. A
// present value marshals as a bare number, a missing one as an empty string,
// which is the shape consumers of the stored report expect.
type Metric struct {
	Value *float64
}

func (m Metric) MarshalJSON() ([]byte, error) {
	if m.Value == nil {
		return []byte(`""`), nil
	}
	return json.Marshal(*m.Value)
}

func (m *Metric) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `""`, "null":
		m.Value = nil
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	m.Value = &v
	return nil
}
